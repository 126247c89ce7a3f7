package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// UserHandler serves user profiles and subscriptions.
type UserHandler struct {
	users service.IUserService
	pages Paginator
}

func NewUserHandler(users service.IUserService, pages Paginator) *UserHandler {
	return &UserHandler{users: users, pages: pages}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.RequireAuth()

	users := router.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/me", auth, h.Me)
		users.GET("/subscriptions", auth, h.Subscriptions)
		users.GET("/:id", h.GetUser)
		users.GET("/:id/subscribe", auth, h.Subscription)
		users.POST("/:id/subscribe", auth, h.Subscribe)
		users.DELETE("/:id/subscribe", auth, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, err := h.pages.Request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, total, err := h.users.ListUsers(c.Request.Context(), middleware.IdentityFrom(c), page)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, views))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.users.GetUser(c.Request.Context(), middleware.IdentityFrom(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Me(c *gin.Context) {
	view, err := h.users.Me(c.Request.Context(), middleware.IdentityFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) recipesLimit(c *gin.Context) (int, error) {
	limit, _, err := intQuery(c, "recipes_limit")
	return limit, err
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, err := h.pages.Request(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	limit, err := h.recipesLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	views, total, err := h.users.Subscriptions(c.Request.Context(), middleware.IdentityFrom(c), page, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, views))
}

func (h *UserHandler) Subscription(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	limit, err := h.recipesLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.users.Subscription(c.Request.Context(), middleware.IdentityFrom(c), id, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	limit, err := h.recipesLimit(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	view, err := h.users.Subscribe(c.Request.Context(), middleware.IdentityFrom(c), id, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.users.Unsubscribe(c.Request.Context(), middleware.IdentityFrom(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	noContent(c)
}
