package stream

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/twocards/backoffice/internal/apperr"
	"github.com/twocards/backoffice/internal/middleware"
	"github.com/twocards/backoffice/internal/service/ai"
	"github.com/twocards/backoffice/internal/service/audit"
	"github.com/twocards/backoffice/pkg/utils"
)

// Handler streams generated product descriptions via Server-Sent Events
type Handler struct {
	gen    ai.Generator
	audit  audit.Sink
	logger *slog.Logger
}

// New creates a new stream handler
func New(gen ai.Generator, sink audit.Sink, logger *slog.Logger) *Handler {
	if sink == nil {
		sink = audit.NoopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{gen: gen, audit: sink, logger: logger}
}

// RegisterRoutes registers the streaming endpoint
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/ai/description/stream", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var payload ai.DescriptionRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondErr(w, r, err)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.RespondErr(w, r, err)
		return
	}

	// Headers are committed from here on; failures become error events.
	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start"}); err != nil {
		h.logger.Warn("sse client went away", "error", err)
		return
	}

	var full strings.Builder
	err := h.gen.StreamDescribe(r.Context(), payload, func(delta string) error {
		full.WriteString(delta)
		return utils.SendSSEChunk(w, flusher, StreamResponse{Event: "delta", Content: delta})
	})
	if err != nil {
		h.logger.Error("description stream failed", "name_ar", payload.NameAR, "error", err)
		_ = utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", Error: streamErrorMessage(err)})
		return
	}

	actor, _ := middleware.UserFrom(r.Context())
	h.audit.Record(r.Context(), audit.Entry{
		Action:  "ai.description",
		UserID:  audit.UserID(actor.ID),
		Details: map[string]any{"name_ar": payload.NameAR, "stream": true},
	})

	_ = utils.SendSSEChunk(w, flusher, StreamResponse{Event: "message", Content: full.String()})
	_ = utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", Finished: true})
}

func streamErrorMessage(err error) string {
	if errors.Is(err, apperr.ErrGateway) || errors.Is(err, apperr.ErrInvalid) {
		return err.Error()
	}
	return "generation failed"
}
