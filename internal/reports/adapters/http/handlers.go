package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dejobratic/reportwebhook/internal/reports/app"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/signature"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusHeader carries the pipeline status on every 200 response.
const StatusHeader = "X-Report-Status"

// Options configures the webhook routes.
type Options struct {
	Path         string
	MaxBodyBytes int64
	DebugRoutes  bool
}

// Handler exposes the WooCommerce webhook.
type Handler struct {
	service  *app.Service
	verifier *signature.Verifier
	logger   *slog.Logger
	metrics  *Metrics
	opts     Options
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service, verifier *signature.Verifier, logger *slog.Logger, metrics *Metrics, opts Options) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		opts:     opts,
	}
}

// Register binds the webhook handlers to r.
func (h *Handler) Register(r chi.Router) {
	r.Post(h.opts.Path, h.handleWebhook)
	if h.opts.DebugRoutes {
		r.Post("/debug/echo", h.handleEcho)
	}
}

// reportResponse is the body of every 200 answer.
type reportResponse struct {
	Status    domain.Status `json:"status"`
	OrderID   string        `json:"order_id"`
	Code      string        `json:"code,omitempty"`
	Artifact  string        `json:"artifact,omitempty"`
	URL       string        `json:"url,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	if !h.verifier.Configured() {
		h.metrics.RecordRejected(ctx, "unconfigured")
		h.logger.ErrorContext(ctx, "webhook secret not configured",
			"error", domain.ErrConfig,
			"request_id", requestID,
		)
		writeText(w, http.StatusInternalServerError, "server misconfigured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodyBytes+1))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read webhook body",
			"error", err,
			"request_id", requestID,
		)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	if int64(len(body)) > h.opts.MaxBodyBytes {
		h.metrics.RecordRejected(ctx, "too_large")
		h.logger.WarnContext(ctx, "webhook body too large",
			"limit_bytes", h.opts.MaxBodyBytes,
			"request_id", requestID,
		)
		writeText(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if !h.verifier.Verify(body, r.Header.Get(signature.Header)) {
		h.metrics.RecordRejected(ctx, "signature")
		h.logger.WarnContext(ctx, "webhook signature rejected",
			"error", domain.ErrAuth,
			"header_present", r.Header.Get(signature.Header) != "",
			"encoding", h.verifier.Encoding(),
			"remote_addr", r.RemoteAddr,
			"request_id", requestID,
		)
		writeText(w, http.StatusForbidden, "invalid signature")
		return
	}

	order, err := domain.DecodeOrder(body)
	if err != nil {
		h.metrics.RecordRejected(ctx, "parse")
		h.logger.ErrorContext(ctx, "failed to parse webhook order",
			"error", err,
			"request_id", requestID,
		)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	outcome, err := h.service.GenerateReport(ctx, order)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook processing failed",
			"error", err,
			"cause", causeOf(err),
			"order_id", order.ID,
			"request_id", requestID,
		)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := reportResponse{
		Status:  outcome.Status,
		OrderID: outcome.OrderID.String(),
		Code:    outcome.Code,
	}
	if outcome.Artifact != nil {
		resp.Artifact = outcome.Artifact.Name
	}
	if outcome.Link != nil {
		resp.URL = outcome.Link.URL
		expiresAt := outcome.Link.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}

	w.Header().Set(StatusHeader, string(outcome.Status))
	writeJSON(w, http.StatusOK, resp)
}

// handleEcho returns the request headers and body. The signature header
// value is masked.
func (h *Handler) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodyBytes+1))
	if err != nil {
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	if int64(len(body)) > h.opts.MaxBodyBytes {
		writeText(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		headers[key] = strings.Join(values, ", ")
	}
	if key := http.CanonicalHeaderKey(signature.Header); headers[key] != "" {
		headers[key] = "[REDACTED]"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"headers": headers,
		"body":    string(body),
	})
}

// causeOf names the failing stage for logs.
func causeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrDataSource):
		return "data_source"
	case errors.Is(err, domain.ErrExport):
		return "export"
	case errors.Is(err, domain.ErrCredentials):
		return "credentials"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
