package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	"github.com/interacthq/interaction-server-go/internal/service"
)

type InteractionHandler struct {
	interactionService *service.InteractionService
}

func NewInteractionHandler(interactionService *service.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService}
}

func (h *InteractionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Search)
	r.Post("/", h.Create)
	r.Get("/types", h.Types)
	r.Get("/{interactionID}", h.Get)
	r.Put("/{interactionID}", h.Update)
	r.Delete("/{interactionID}", h.Delete)

	return r
}

// GET /interactions
func (h *InteractionHandler) Search(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	p := ParsePagination(r)

	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = q.Get("sort")
	}
	sortDir := q.Get("direction")
	if sortDir == "" {
		sortDir = q.Get("sort_dir")
	}

	page, err := h.interactionService.Search(r.Context(), sc, filters,
		sortBy, sortDir, p.Page, p.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// POST /interactions
func (h *InteractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	var req model.CreateInteractionParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	interaction, err := h.interactionService.Create(r.Context(), sc, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, interaction)
}

// GET /interactions/types
func (h *InteractionHandler) Types(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": h.interactionService.Types()})
}

// GET /interactions/{interactionID}
func (h *InteractionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	id, err := pathID(r, "interactionID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	interaction, err := h.interactionService.Get(r.Context(), sc, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, interaction)
}

// PUT /interactions/{interactionID}
func (h *InteractionHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	id, err := pathID(r, "interactionID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.UpdateInteractionParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	interaction, err := h.interactionService.Update(r.Context(), sc, id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, interaction)
}

// DELETE /interactions/{interactionID}
func (h *InteractionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	id, err := pathID(r, "interactionID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.interactionService.Delete(r.Context(), sc, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Interaction deleted"})
}

func parseFilters(r *http.Request) (model.InteractionFilters, error) {
	q := r.URL.Query()

	filters := model.InteractionFilters{
		Title:       q.Get("title"),
		Type:        q.Get("type"),
		Lead:        q.Get("lead"),
		Location:    q.Get("location"),
		Description: q.Get("description"),
		Notes:       q.Get("notes"),
		Search:      q.Get("search"),
	}

	var err error
	if filters.StartAfter, err = parseTimeParam(q.Get("start_after"), "start_after"); err != nil {
		return filters, err
	}
	if filters.StartBefore, err = parseTimeParam(q.Get("start_before"), "start_before"); err != nil {
		return filters, err
	}

	return filters, nil
}

func parseTimeParam(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperrors.InvalidField(name, "Must be an RFC 3339 timestamp")
	}
	return &t, nil
}
