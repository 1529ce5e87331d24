// Package transport is the single configured HTTP client used to reach the
// document-chat backend. Every failure leaving this package is a
// *domain.ServiceError carrying a human-readable message.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/infrastructure/resilience"
)

const (
	requestIDHeader = "X-Request-Id"
	contentTypeJSON = "application/json"

	DefaultTimeout = 60 * time.Second
)

// RequestObserver receives one observation per completed attempt.
type RequestObserver interface {
	ObserveRequest(operation string, statusCode int, duration time.Duration)
}

type Options struct {
	Timeout        time.Duration
	HTTPClient     *http.Client
	Executor       *resilience.Executor
	RateLimitRPS   float64
	RateLimitBurst int
	Observer       RequestObserver
	Logger         *slog.Logger
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
	observer   RequestObserver
	logger     *slog.Logger
}

func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		executor:   opts.Executor,
		limiter:    limiter,
		observer:   opts.Observer,
		logger:     logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// File is a multipart file part.
type File struct {
	Field    string
	Filename string
	Body     io.Reader
}

type Request struct {
	Operation string
	Method    string
	Path      string
	JSON      any
	File      *File
	Timeout   time.Duration
}

// Do sends req and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return c.fail(req, &domain.ServiceError{
			Operation: req.Operation,
			Message:   fmt.Sprintf("encode %s request: %v", req.Operation, err),
			Err:       err,
		})
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	call := func(callCtx context.Context) error {
		return c.attempt(callCtx, req, body, contentType, out)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, req.Operation, call, resilience.ClassifyServiceError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return c.fail(req, normalizeTransportError(req.Operation, err))
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, req Request, body []byte, contentType string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return normalizeTransportError(req.Operation, err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, reader)
	if err != nil {
		return &domain.ServiceError{
			Operation: req.Operation,
			Message:   fmt.Sprintf("create %s request: %v", req.Operation, err),
			Err:       err,
		}
	}
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	c.logRequest(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req.Operation, 0, time.Since(start))
		return normalizeTransportError(req.Operation, err)
	}
	defer resp.Body.Close()
	c.observe(req.Operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return normalizeResponse(req.Operation, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ServiceError{
			Operation:  req.Operation,
			StatusCode: resp.StatusCode,
			Message:    "invalid response from server",
			Err:        fmt.Errorf("decode %s response: %w", req.Operation, err),
		}
	}
	return nil
}

func (c *Client) logRequest(req *http.Request) {
	c.logger.Info("api_request",
		"method", req.Method,
		"path", req.URL.Path,
		"request_id", req.Header.Get(requestIDHeader),
	)
}

func (c *Client) fail(req Request, err *domain.ServiceError) error {
	c.logger.Warn("api_error",
		"operation", req.Operation,
		"method", req.Method,
		"path", req.Path,
		"status", err.StatusCode,
		"detail", err.Message,
	)
	return err
}

func (c *Client) observe(operation string, statusCode int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(operation, statusCode, duration)
	}
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.File != nil:
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		field := req.File.Field
		if field == "" {
			field = "file"
		}
		part, err := writer.CreateFormFile(field, req.File.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, req.File.Body); err != nil {
			return nil, "", fmt.Errorf("copy file body: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart writer: %w", err)
		}
		return buf.Bytes(), writer.FormDataContentType(), nil
	case req.JSON != nil:
		body, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("marshal json: %w", err)
		}
		return body, contentTypeJSON, nil
	default:
		return nil, contentTypeJSON, nil
	}
}
