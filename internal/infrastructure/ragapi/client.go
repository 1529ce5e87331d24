// Package ragapi exposes the document, chat and health operations of the
// backend as typed calls over the shared transport client.
package ragapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/infrastructure/transport"
)

const uploadField = "file"

type Client struct {
	transport     *transport.Client
	validate      *validator.Validate
	uploadTimeout time.Duration
}

func New(t *transport.Client, uploadTimeout time.Duration) *Client {
	return &Client{
		transport:     t,
		validate:      validator.New(),
		uploadTimeout: uploadTimeout,
	}
}

func (c *Client) UploadDocument(ctx context.Context, file domain.UploadFile) (domain.Document, error) {
	if file.Open == nil {
		return domain.Document{}, &domain.ServiceError{Operation: "upload", Message: "file is not readable"}
	}
	body, err := file.Open()
	if err != nil {
		return domain.Document{}, &domain.ServiceError{
			Operation: "upload",
			Message:   fmt.Sprintf("open %s: %v", file.Name, err),
			Err:       err,
		}
	}
	defer body.Close()

	var doc domain.Document
	err = c.transport.Do(ctx, transport.Request{
		Operation: "upload",
		Method:    http.MethodPost,
		Path:      "/upload",
		File:      &transport.File{Field: uploadField, Filename: file.Name, Body: body},
		Timeout:   c.uploadTimeout,
	}, &doc)
	if err != nil {
		return domain.Document{}, err
	}
	if err := c.checkDocument("upload", &doc); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var response struct {
		Documents []domain.Document `json:"documents"`
	}
	err := c.transport.Do(ctx, transport.Request{
		Operation: "list",
		Method:    http.MethodGet,
		Path:      "/documents",
	}, &response)
	if err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(response.Documents))
	for i := range response.Documents {
		doc := response.Documents[i]
		if err := c.checkDocument("list", &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.transport.Do(ctx, transport.Request{
		Operation: "delete",
		Method:    http.MethodDelete,
		Path:      "/documents/" + url.PathEscape(id),
	}, nil)
}

func (c *Client) SendMessage(ctx context.Context, message string, documentIDs []string) (domain.ChatReply, error) {
	request := struct {
		Message     string   `json:"message"`
		DocumentIDs []string `json:"document_ids"`
	}{
		Message:     message,
		DocumentIDs: documentIDs,
	}

	var response struct {
		Response   string   `json:"response"`
		Sources    []string `json:"sources"`
		Confidence *float64 `json:"confidence"`
	}
	err := c.transport.Do(ctx, transport.Request{
		Operation: "chat",
		Method:    http.MethodPost,
		Path:      "/chat",
		JSON:      request,
	}, &response)
	if err != nil {
		return domain.ChatReply{}, err
	}

	reply := domain.ChatReply{
		Response: response.Response,
		Sources:  response.Sources,
	}
	if reply.Sources == nil {
		reply.Sources = []string{}
	}
	if response.Confidence != nil {
		reply.Confidence = clamp01(*response.Confidence)
	}
	return reply, nil
}

func (c *Client) CheckHealth(ctx context.Context) error {
	return c.transport.Do(ctx, transport.Request{
		Operation: "health",
		Method:    http.MethodGet,
		Path:      "/health",
	}, nil)
}

func (c *Client) checkDocument(operation string, doc *domain.Document) error {
	if err := c.validate.Struct(doc); err != nil {
		return &domain.ServiceError{
			Operation:  operation,
			StatusCode: http.StatusOK,
			Message:    "invalid document in response",
			Err:        fmt.Errorf("validate document: %w", err),
		}
	}
	if doc.Status == "" {
		doc.Status = domain.StatusProcessed
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
