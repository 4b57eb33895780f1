package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"archplan/internal/engine"
	"archplan/internal/plan"
	"archplan/internal/store"
	"archplan/pkg/response"
)

// DefaultMaxPayloadBytes bounds a submit body when no limit is
// configured.
const DefaultMaxPayloadBytes = 4 << 20

// Handler serves the operations API.
type Handler struct {
	engine          *engine.Engine
	validate        *validator.Validate
	maxPayloadBytes int64
}

// NewHandler creates a Handler over the engine. maxPayloadBytes <= 0
// applies DefaultMaxPayloadBytes.
func NewHandler(e *engine.Engine, maxPayloadBytes int64) *Handler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxPayloadBytes
	}
	return &Handler{
		engine:          e,
		validate:        validator.New(),
		maxPayloadBytes: maxPayloadBytes,
	}
}

// pageQuery is the validated pagination query string shared by poll and
// list.
type pageQuery struct {
	Cursor   string `validate:"omitempty,max=64"`
	PageSize int    `validate:"omitempty,min=1,max=1000"`
	Status   string `validate:"omitempty,oneof=queued processing complete error"`
	Summary  bool
}

func parsePageQuery(r *http.Request) (pageQuery, error) {
	q := pageQuery{
		Cursor: r.URL.Query().Get("cursor"),
		Status: r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, errors.New("pageSize must be an integer")
		}
		q.PageSize = n
	}
	q.Summary = r.URL.Query().Get("summary") == "true"
	return q, nil
}

// Submit accepts a raw batch payload and queues it.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		response.BadRequest(w, "failed to read request body")
		return
	}

	op, err := h.engine.Submit(r.Context(), raw)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	if op.Status.Terminal() || op.Status == plan.StatusProcessing {
		// Idempotent replay of an earlier submission.
		response.Success(w, op)
		return
	}
	response.Accepted(w, op)
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	var verr *plan.ValidationError
	if errors.As(err, &verr) {
		response.ErrorCode(w, http.StatusBadRequest, string(engine.CodeValidation), verr.Error())
		return
	}
	if engine.IsIdempotencyConflict(err) {
		response.ErrorCode(w, http.StatusConflict, string(engine.CodeIdempotency), err.Error())
		return
	}
	if errors.Is(err, engine.ErrQueueClosed) {
		response.Error(w, http.StatusServiceUnavailable, "engine is shutting down")
		return
	}
	response.InternalError(w, err.Error())
}

// Poll returns one operation's status snapshot.
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	q, err := parsePageQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if err := h.validate.Struct(q); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	op, err := h.engine.Poll(r.Context(), id, store.PollOptions{
		Cursor:      q.Cursor,
		PageSize:    q.PageSize,
		SummaryOnly: q.Summary,
	})
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	response.Success(w, op)
}

// List returns a page of recent operation summaries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parsePageQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	if err := h.validate.Struct(q); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	list, err := h.engine.List(r.Context(), store.ListOptions{
		Cursor:   q.Cursor,
		PageSize: q.PageSize,
		Status:   plan.Status(q.Status),
	})
	if err != nil {
		h.writeReadError(w, err)
		return
	}
	response.Success(w, list)
}

func (h *Handler) writeReadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.NotFound(w, "operation not found")
	case errors.Is(err, store.ErrBadCursor):
		response.BadRequest(w, "invalid pagination cursor")
	default:
		response.InternalError(w, err.Error())
	}
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"})
}
