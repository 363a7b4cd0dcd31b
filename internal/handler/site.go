package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/interacthq/interaction-server-go/internal/errors"
	"github.com/interacthq/interaction-server-go/internal/model"
	"github.com/interacthq/interaction-server-go/internal/service"
)

type SiteHandler struct {
	siteService *service.SiteService
}

func NewSiteHandler(siteService *service.SiteService) *SiteHandler {
	return &SiteHandler{siteService: siteService}
}

func (h *SiteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{siteID}", h.Get)
	r.Put("/{siteID}", h.Update)
	r.Delete("/{siteID}", h.Delete)
	r.Get("/{siteID}/stats", h.Stats)
	r.Get("/{siteID}/users", h.Members)
	r.Post("/{siteID}/users", h.AddMember)
	r.Put("/{siteID}/users/{userID}", h.ChangeRole)
	r.Delete("/{siteID}/users/{userID}", h.RemoveMember)

	return r
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidField(name, "Must be a positive integer")
	}
	return id, nil
}

// GET /sites
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	page, err := h.siteService.ListSites(r.Context(), p.Page, p.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// POST /sites
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	var req service.SiteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	site, err := h.siteService.CreateSite(r.Context(), sc.User, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, site)
}

// GET /sites/{siteID}
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	site, err := h.siteService.GetSite(r.Context(), sc.User, siteID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// PUT /sites/{siteID}
func (h *SiteHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req model.UpdateSiteParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Validation("Invalid request body", nil))
		return
	}

	site, err := h.siteService.UpdateSite(r.Context(), sc.User, siteID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// DELETE /sites/{siteID}
func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	hard := r.URL.Query().Get("hard") == "true"
	if err := h.siteService.DeleteSite(r.Context(), sc.User, siteID, hard); err != nil {
		writeError(w, r, err)
		return
	}

	message := "Site deactivated"
	if hard {
		message = "Site deleted"
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// GET /sites/{siteID}/stats
func (h *SiteHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	stats, err := h.siteService.SiteStats(r.Context(), sc.User, siteID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /sites/{siteID}/users
func (h *SiteHandler) Members(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := ParsePagination(r)
	page, err := h.siteService.SiteMembers(r.Context(), sc.User, siteID, p.Page, p.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// POST /sites/{siteID}/users
func (h *SiteHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Username string     `json:"username"`
		Role     model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		writeError(w, r, apperrors.Validation("Username is required", nil))
		return
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}

	membership, err := h.siteService.AddMember(r.Context(), sc.User, siteID, req.Username, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, membership)
}

// PUT /sites/{siteID}/users/{userID}
func (h *SiteHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Role == "" {
		writeError(w, r, apperrors.Validation("Role is required", nil))
		return
	}

	membership, err := h.siteService.ChangeRole(r.Context(), sc.User, siteID, userID, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, membership)
}

// DELETE /sites/{siteID}/users/{userID}
func (h *SiteHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	sc := requireScope(w, r)
	if sc == nil {
		return
	}

	siteID, err := pathID(r, "siteID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.siteService.RemoveMember(r.Context(), sc.User, siteID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Member removed"})
}
