package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docchat/internal/core/domain"
	"github.com/kirillkom/docchat/internal/infrastructure/resilience"
)

const maxPlainTextDetail = 200

func normalizeResponse(operation string, resp *http.Response) *domain.ServiceError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.ServiceError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Message:    extractDetail(raw, resp.StatusCode),
	}
}

// extractDetail prefers the server's structured detail field, then its error
// field, then a bare JSON string, then a short plain-text body, then a generic
// status message. JSON bodies of any other shape get the generic message.
func extractDetail(raw []byte, statusCode int) string {
	fallback := fmt.Sprintf("request failed with status code %d", statusCode)
	trimmed := bytes.TrimSpace(raw)
	if json.Valid(trimmed) {
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
			return fallback
		}
		var body struct {
			Detail json.RawMessage `json:"detail"`
			Error  json.RawMessage `json:"error"`
		}
		if bytes.HasPrefix(trimmed, []byte("{")) && json.Unmarshal(trimmed, &body) == nil {
			if msg := detailText(body.Detail); msg != "" {
				return msg
			}
			if msg := detailText(body.Error); msg != "" {
				return msg
			}
		}
		return fallback
	}

	text := string(trimmed)
	if text != "" && utf8.ValidString(text) && len(text) <= maxPlainTextDetail && !strings.HasPrefix(text, "<") {
		return text
	}
	return fallback
}

// detailText handles both a plain string and a validation list of
// {"msg": "..."} objects.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}

func normalizeTransportError(operation string, err error) *domain.ServiceError {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	out := &domain.ServiceError{Operation: operation, Err: err}
	switch {
	case resilience.IsCircuitOpen(err):
		out.Message = "service temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		out.Message = "request timed out"
	case errors.Is(err, context.Canceled):
		out.Message = "request cancelled"
	default:
		cause := err
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			cause = urlErr.Err
		}
		out.Message = "network error: " + cause.Error()
	}
	return out
}
