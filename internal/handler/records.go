package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"GatewayAdmin/internal/auth"
	"GatewayAdmin/internal/logger"
	"GatewayAdmin/internal/resource"
	"GatewayAdmin/internal/store"
	"GatewayAdmin/internal/tablequery"
)

// maxBodyBytes bounds write request bodies.
const maxBodyBytes = 1 << 20

// Records is the storage the handlers read and write.
type Records interface {
	List(ctx context.Context, res *resource.Resource, q tablequery.QueryDescriptor) (store.Page, error)
	Add(ctx context.Context, res *resource.Resource, record map[string]any, actor string) (map[string]any, error)
	Update(ctx context.Context, res *resource.Resource, record map[string]any, actor string) (map[string]any, error)
	Delete(ctx context.Context, res *resource.Resource, id string) error
}

// Envelope is the body of write requests.
type Envelope struct {
	Data map[string]any `json:"data"`
	UUID string         `json:"uuid,omitempty"`
}

// Response is the body of every reply.
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RecordHandler serves one resource.
type RecordHandler struct {
	res     *resource.Resource
	records Records
}

func NewRecordHandler(res *resource.Resource, records Records) *RecordHandler {
	return &RecordHandler{res: res, records: records}
}

// List answers GET <path> with one page of records.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := tablequery.ParseQuery(r.URL.Query())
	if err != nil {
		h.fail(w, "bad_query", http.StatusBadRequest, err)
		return
	}
	logger.Debug("list_request", map[string]any{
		"endpoint": h.res.Path,
		"page":     q.Page,
		"limit":    q.Limit,
		"filters":  json.RawMessage(q.Filters),
	})

	page, err := h.records.List(r.Context(), h.res, q)
	if err != nil {
		h.fail(w, "list_failed", http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Message: "Success", Data: page})
}

// Add answers POST <path>.
func (h *RecordHandler) Add(w http.ResponseWriter, r *http.Request) {
	env, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Add(r.Context(), h.res, env.Data, auth.Subject(r.Context()))
	if err != nil {
		h.fail(w, "add_failed", statusOf(err), err)
		return
	}
	logger.Info("record_added", map[string]any{"endpoint": h.res.Path, "uuid": env.UUID})
	writeJSON(w, http.StatusCreated, Response{Message: "Record created", Data: rec})
}

// Update answers PUT <path>. Fields the edit form must not send are dropped.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	env, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Update(r.Context(), h.res, h.res.StripForEdit(env.Data), auth.Subject(r.Context()))
	if err != nil {
		h.fail(w, "update_failed", statusOf(err), err)
		return
	}
	logger.Info("record_updated", map[string]any{"endpoint": h.res.Path, "uuid": env.UUID})
	writeJSON(w, http.StatusOK, Response{Message: "Record updated", Data: rec})
}

// Delete answers DELETE <path>/{id}.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.fail(w, "delete_failed", http.StatusBadRequest, store.ErrMissingID)
		return
	}
	if err := h.records.Delete(r.Context(), h.res, id); err != nil {
		h.fail(w, "delete_failed", statusOf(err), err)
		return
	}
	logger.Info("record_deleted", map[string]any{"endpoint": h.res.Path, "id": id})
	writeJSON(w, http.StatusOK, Response{Message: "Record deleted"})
}

func (h *RecordHandler) decode(w http.ResponseWriter, r *http.Request) (Envelope, bool) {
	var env Envelope
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, "read_body_failed", http.StatusBadRequest, err)
		return env, false
	}
	if err := json.Unmarshal(body, &env); err != nil {
		h.fail(w, "invalid_json", http.StatusBadRequest, err)
		return env, false
	}
	if env.Data == nil {
		h.fail(w, "invalid_json", http.StatusBadRequest, errors.New("data is required"))
		return env, false
	}
	return env, true
}

func (h *RecordHandler) fail(w http.ResponseWriter, event string, status int, err error) {
	fields := map[string]any{"endpoint": h.res.Path, "error": err.Error()}
	if status >= http.StatusInternalServerError {
		logger.Error(event, fields)
	} else {
		logger.Warn(event, fields)
	}
	writeJSON(w, status, Response{Message: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrMissingID), errors.Is(err, store.ErrNothingToSave):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}
