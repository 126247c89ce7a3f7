package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes bounds a decoded upload.
const MaxImageBytes = 10 << 20

// DecodedImage is a validated upload ready to be stored.
type DecodedImage struct {
	Data        []byte
	Format      string
	ContentType string
}

// Ext returns the file extension for the image format.
func (d *DecodedImage) Ext() string {
	if d.Format == "jpeg" {
		return "jpg"
	}
	return d.Format
}

// DecodeImage accepts either a data URI ("data:image/png;base64,...") or a
// bare base64 payload and verifies that the bytes are a picture.
func DecodeImage(payload string) (*DecodedImage, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrInvalidImage
	}
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("%w: malformed data uri", ErrInvalidImage)
		}
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageBytes)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return &DecodedImage{
		Data:        data,
		Format:      format,
		ContentType: "image/" + format,
	}, nil
}

func newImageKey(img *DecodedImage) string {
	return path.Join("recipes", uuid.NewString()+"."+img.Ext())
}

// ImageStore persists recipe images and resolves their public URL.
type ImageStore interface {
	Save(ctx context.Context, img *DecodedImage) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// LocalImageStore keeps images under a media directory served by the API.
type LocalImageStore struct {
	root    string
	baseURL string
}

// NewLocalImageStore creates the media root if needed.
func NewLocalImageStore(root, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "recipes"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &LocalImageStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalImageStore) Save(_ context.Context, img *DecodedImage) (string, error) {
	key := newImageKey(img)
	if err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(key)), img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return key, nil
}

func (s *LocalImageStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *LocalImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.baseURL + "/" + key
}

// S3API is the subset of the S3 client used for images.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore uploads images to a bucket behind a circuit breaker so an
// unavailable bucket fails recipe writes fast.
type S3ImageStore struct {
	client  S3API
	bucket  string
	url     func(key string) string
	breaker *gobreaker.CircuitBreaker[any]
}

// NewS3ImageStore wraps client with a breaker that opens after five
// consecutive failures and probes again after thirty seconds.
func NewS3ImageStore(client S3API, bucket string, url func(key string) string, logger *zap.Logger) *S3ImageStore {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "s3-images",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &S3ImageStore{client: client, bucket: bucket, url: url, breaker: breaker}
}

func (s *S3ImageStore) Save(ctx context.Context, img *DecodedImage) (string, error) {
	key := newImageKey(img)
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(img.Data),
			ContentType: aws.String(img.ContentType),
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	})
	return err
}

func (s *S3ImageStore) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.url(key)
}
