package sidifa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

type (
	requestIDKey struct{}
	startedAtKey struct{}
)

// WithRequestID attaches a request ID that the client forwards as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID carried by ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ClientConfig points the client at the REST API.
type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sidifa API %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks JSON to the SI-DIFA REST API.
type Client struct {
	http *resty.Client
	log  *logrus.Entry
}

// NewClient builds a resty client against cfg.BaseURL.
func NewClient(cfg ClientConfig, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	rc := resty.New()
	rc.SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	rc.SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(cfg.Token); token != "" {
		rc.SetHeader("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	rc.AddRequestMiddleware(func(_ *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAtKey{}, time.Now()))
		return nil
	})
	rc.AddResponseMiddleware(func(_ *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		startedAt, _ := ctx.Value(startedAtKey{}).(time.Time)
		fields := logrus.Fields{
			"request_id": RequestID(ctx),
			"status":     r.StatusCode(),
			"latency":    time.Since(startedAt).String(),
		}
		if raw := r.Request.RawRequest; raw != nil {
			fields["method"] = raw.Method
			fields["path"] = raw.URL.Path
			fields["query"] = raw.URL.RawQuery
		}
		log.WithFields(fields).Debug("upstream call")
		return nil
	})

	return &Client{http: rc, log: log}
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.http.Close()
}

/*
do sends one request and decodes a 2xx body into result (when non-nil).

A transport failure is returned wrapped; a non-2xx answer becomes *APIError
with the message taken from the body's "message" (or "error") field.
*/
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, result any) error {
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = WithRequestID(ctx, requestID)
	}

	req := c.http.R().SetContext(ctx).SetHeader("X-Request-ID", requestID)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "path": path}).WithError(err).Warn("upstream call failed")
		return fmt.Errorf("sidifa API %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.String(), resp.StatusCode()),
			Method:     method,
			Path:       path,
		}
	}
	return nil
}

func errorMessage(body string, status int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected status"
}
