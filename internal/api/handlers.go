package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ideacards/internal/idea"
	"github.com/starford/ideacards/internal/ideaservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *ideaservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *ideaservice.Service) *Handler {
	return &Handler{svc: svc}
}

func ideaID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// Random handles GET /api/ideas/random.
//
//	@Summary		Random idea with the given status
//	@Tags			ideas
//	@Produce		json
//	@Param			status	query		string	false	"Status filter"	Enums(active, execute, transfer, deleted)
//	@Success		200		{object}	Idea
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas/random [get]
func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	var status idea.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := idea.ParseStatus(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		status = s
	}
	it, err := h.svc.Random(r.Context(), status)
	if err != nil {
		writeError(w, err, "random idea")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Get handles GET /api/ideas/{id}.
//
//	@Summary		Get a single idea
//	@Tags			ideas
//	@Produce		json
//	@Param			id	path		int	true	"Idea id"
//	@Success		200	{object}	Idea
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ideaID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid idea id"))
		return
	}
	it, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, "get idea", slog.Int64("idea_id", id))
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// Search handles GET /api/ideas/search.
//
//	@Summary		Search ideas by keyword, tags, and status
//	@Tags			ideas
//	@Produce		json
//	@Param			keyword	query		string	false	"Substring of the body"
//	@Param			tags	query		string	false	"Comma-separated tags, all must match"
//	@Param			status	query		string	false	"Status filter, empty matches all"
//	@Success		200		{array}		Idea
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := ideaservice.Query{
		Keyword: q.Get("keyword"),
		Tags:    idea.SplitTags(q.Get("tags")),
	}
	if raw := q.Get("status"); raw != "" {
		s, err := idea.ParseStatus(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		query.Status = s
	}
	items, err := h.svc.Search(r.Context(), query)
	if err != nil {
		writeError(w, err, "search ideas", slog.String("keyword", query.Keyword))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Suggest handles GET /api/ideas/suggest.
//
//	@Summary		Active ideas to attach as born-with links
//	@Tags			ideas
//	@Produce		json
//	@Param			keyword	query	string	false	"Substring of the body"
//	@Param			tags	query	string	false	"Comma-separated tags"
//	@Success		200		{array}	Idea
//	@Security		BearerAuth
//	@Router			/ideas/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.Suggest(r.Context(), q.Get("keyword"), idea.SplitTags(q.Get("tags")))
	if err != nil {
		writeError(w, err, "suggest ideas")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/ideas.
//
//	@Summary		Create a new idea
//	@Tags			ideas
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateIdeaRequest	true	"Idea to create"
//	@Success		201		{object}	Idea
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	it, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, err, "create idea")
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

// Update handles PUT /api/ideas/{id}.
//
//	@Summary		Replace body, tags, blockers, and born-with links
//	@Tags			ideas
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Idea id"
//	@Param			body	body		UpdateIdeaRequest	true	"New content"
//	@Success		200		{object}	Idea
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ideaID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid idea id"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req UpdateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	it, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, err, "update idea", slog.Int64("idea_id", id))
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// UpdateStatus handles POST /api/ideas/{id}/status.
//
//	@Summary		Change the status of an idea
//	@Tags			ideas
//	@Produce		json
//	@Param			id		path		int		true	"Idea id"
//	@Param			status	query		string	true	"New status"	Enums(active, execute, transfer, deleted)
//	@Success		200		{object}	Idea
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ideas/{id}/status [post]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ideaID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid idea id"))
		return
	}
	status, err := idea.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	it, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, err, "update status", slog.Int64("idea_id", id))
		return
	}
	writeJSON(w, http.StatusOK, it)
}
