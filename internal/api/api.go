package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

var errNotFound = &service.Error{Kind: service.KindNotFound, Code: "not_found", Message: "not found"}

// parseID reads a numeric path parameter. Anything else cannot name an
// object, so it is reported as not found.
func parseID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, errNotFound
	}
	return uint(id), nil
}

// bindJSON decodes the body into obj. A value of the wrong JSON type is
// reported with the error typeErrors holds for its field path, anything else
// as an invalid field.
func bindJSON(c *gin.Context, obj any, typeErrors map[string]error) error {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if known, ok := typeErrors[typeErr.Field]; ok {
			return fmt.Errorf("%w: %s got a %s", known, typeErr.Field, typeErr.Value)
		}
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", service.ErrRequestTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", service.ErrInvalidField, err)
}

// Paginator turns page/limit query parameters into a PageRequest.
type Paginator struct {
	DefaultLimit int
	MaxLimit     int
}

func NewPaginator(cfg config.APIConfig) Paginator {
	return Paginator{DefaultLimit: cfg.DefaultPageSize, MaxLimit: cfg.MaxPageSize}
}

func (p Paginator) Request(c *gin.Context) (types.PageRequest, error) {
	req := types.PageRequest{Page: 1, Limit: p.DefaultLimit}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, fmt.Errorf("%w: page must be a positive integer", service.ErrInvalidQuery)
		}
		req.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, fmt.Errorf("%w: limit must be a positive integer", service.ErrInvalidQuery)
		}
		req.Limit = min(limit, p.MaxLimit)
	}
	if req.Limit > 0 && req.Page > math.MaxInt/req.Limit {
		return req, fmt.Errorf("%w: page is out of range", service.ErrInvalidQuery)
	}
	return req, nil
}

// newPage wraps results in the paginated envelope with absolute next and
// previous links.
func newPage[T any](c *gin.Context, req types.PageRequest, total int64, results []T) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	page := types.Page[T]{Count: total, Results: results}
	if int64(req.Page*req.Limit) < total {
		page.Next = pageLink(c, req.Page+1)
	}
	if req.Page > 1 {
		page.Previous = pageLink(c, req.Page-1)
	}
	return page
}

func pageLink(c *gin.Context, page int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	query := c.Request.URL.Query()
	if page == 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(page))
	}
	link := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	s := link.String()
	return &s
}

// boolQuery parses an optional 0/1/true/false query flag.
func boolQuery(c *gin.Context, name string) (*bool, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	var v bool
	switch strings.ToLower(raw) {
	case "1", "true":
		v = true
	case "0", "false":
		v = false
	default:
		return nil, fmt.Errorf("%w: %s must be 0 or 1", service.ErrInvalidQuery, name)
	}
	return &v, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string) (int, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidQuery, name)
	}
	return v, true, nil
}

// listQuery collects repeated and comma separated values of a parameter.
func listQuery(c *gin.Context, name string) []string {
	var values []string
	for _, raw := range c.QueryArray(name) {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
