package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tollgate/pkg/slogx"
)

// HTTPGateway sends messages through the SMS service JSON API.
type HTTPGateway struct {
	c client
}

func NewHTTPGateway(baseURL string, timeout time.Duration, opts ...Option) *HTTPGateway {
	return &HTTPGateway{c: newClient(baseURL, timeout, opts...)}
}

type smsRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type smsResponse struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"messageId"`
	ErrorMessage string `json:"errorMessage"`
}

// Send posts to /api/sms/send. A 2xx with success=false, or any 4xx, is a
// non-delivery rather than an outage.
func (g *HTTPGateway) Send(ctx context.Context, phoneNumber, message string) (bool, error) {
	const path = "/api/sms/send"

	status, body, err := g.c.do(ctx, "upstream.sms.send", http.MethodPost, path, smsRequest{PhoneNumber: phoneNumber, Message: message})
	if err != nil {
		return false, err
	}

	switch {
	case status >= 200 && status < 300:
		var resp smsResponse
		if len(body) == 0 {
			return true, nil
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return false, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, path, err)
		}
		if !resp.Success {
			slogx.FromContext(ctx).Warn("sms gateway rejected message", slog.String("error", resp.ErrorMessage))
		}
		return resp.Success, nil
	case status >= 400 && status < 500:
		return false, nil
	default:
		return false, unexpected(path, status)
	}
}

// LogGateway writes messages to the log instead of delivering them. Phone
// numbers are masked unless Reveal is set. A masked message reaches nobody, so
// Send only reports delivery when Reveal is set.
type LogGateway struct {
	Logger *slog.Logger
	Reveal bool
}

func (g *LogGateway) Send(ctx context.Context, phoneNumber, message string) (bool, error) {
	log := g.Logger
	if log == nil {
		log = slogx.FromContext(ctx)
	}

	if !g.Reveal {
		log.Warn("sms not delivered, no gateway configured", slog.String("phone", slogx.MaskPhone(phoneNumber)))
		return false, nil
	}
	log.Info("sms delivered to log", slog.String("phone", phoneNumber), slog.String("message", message))
	return true, nil
}
