package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/qarchive/internal/models"
	"github.com/starford/qarchive/internal/search"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded route parameter. chi matches on RawPath when
// the request has one, and on the already decoded Path otherwise.
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Load the persisted preferences
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	models.Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.LoadSettings(r.Context())
	if err != nil {
		writeError(w, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// PutSettings handles PUT /api/settings.
//
//	@Summary		Save preferences and switch to the selected data root
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Settings	true	"Preferences"
//	@Success		200		{object}	models.Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var in models.Settings
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "save settings", err)
		return
	}
	saved, err := h.svc.SaveSettings(r.Context(), in)
	if err != nil {
		writeError(w, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// PickDirectory handles POST /api/settings/pick-directory.
//
//	@Summary		Ask the host to pick a data directory
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	PickDirectoryResponse
//	@Security		BearerAuth
//	@Router			/settings/pick-directory [post]
func (h *Handler) PickDirectory(w http.ResponseWriter, r *http.Request) {
	path, ok, err := h.svc.PickDirectory(r.Context())
	if err != nil {
		writeError(w, "pick directory", err)
		return
	}
	var resp PickDirectoryResponse
	if ok {
		resp.Path = &path
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListThreads handles GET /api/threads.
//
//	@Summary		Load the thread index
//	@Tags			threads
//	@Produce		json
//	@Success		200	{object}	map[string]models.Thread
//	@Security		BearerAuth
//	@Router			/threads [get]
func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.svc.Workspace().Threads.Load(r.Context())
	if err != nil {
		writeError(w, "load threads", err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// SaveThreads handles PUT /api/threads.
//
//	@Summary		Replace the whole thread index
//	@Tags			threads
//	@Accept			json
//	@Param			body	body	map[string]models.Thread	true	"Thread index"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/threads [put]
func (h *Handler) SaveThreads(w http.ResponseWriter, r *http.Request) {
	threads := models.NewThreadMap()
	if err := decodeJSON(w, r, threads); err != nil {
		writeError(w, "save threads", err)
		return
	}
	if err := h.svc.Workspace().Threads.Save(r.Context(), threads); err != nil {
		writeError(w, "save threads", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateThread handles POST /api/threads.
//
//	@Summary		Create an empty thread
//	@Tags			threads
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateThreadRequest	true	"Thread name"
//	@Success		201		{object}	CreateThreadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/threads [post]
func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	var req CreateThreadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create thread", err)
		return
	}
	id, err := h.svc.Workspace().Threads.CreateThread(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create thread", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateThreadResponse{ID: id})
}

// RenameThread handles PATCH /api/threads/{id}.
//
//	@Summary		Rename a thread
//	@Tags			threads
//	@Accept			json
//	@Param			id		path	string				true	"Thread id"
//	@Param			body	body	RenameThreadRequest	true	"New name"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/threads/{id} [patch]
func (h *Handler) RenameThread(w http.ResponseWriter, r *http.Request) {
	var req RenameThreadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "rename thread", err)
		return
	}
	if err := h.svc.Workspace().Threads.RenameThread(r.Context(), urlParam(r, "id"), req.Name); err != nil {
		writeError(w, "rename thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteThread handles DELETE /api/threads/{id}.
//
//	@Summary		Delete a thread (its pairs are kept)
//	@Tags			threads
//	@Param			id	path	string	true	"Thread id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/threads/{id} [delete]
func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Workspace().Threads.DeleteThread(r.Context(), urlParam(r, "id")); err != nil {
		writeError(w, "delete thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /api/threads/{id}/items.
//
//	@Summary		Append a pair to a thread
//	@Tags			threads
//	@Accept			json
//	@Param			id		path	string			true	"Thread id"
//	@Param			body	body	AddItemRequest	true	"Pair id"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/threads/{id}/items [post]
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "add to thread", err)
		return
	}
	if err := h.svc.Workspace().Threads.AddToThread(r.Context(), urlParam(r, "id"), req.PairID); err != nil {
		writeError(w, "add to thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveItem handles DELETE /api/threads/{id}/items/{pairID}.
//
//	@Summary		Remove a pair from a thread
//	@Tags			threads
//	@Param			id		path	string	true	"Thread id"
//	@Param			pairID	path	string	true	"Pair id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/threads/{id}/items/{pairID} [delete]
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Workspace().Threads.RemoveFromThread(r.Context(), urlParam(r, "id"), urlParam(r, "pairID"))
	if err != nil {
		writeError(w, "remove from thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem handles POST /api/threads/{id}/items/{pairID}/move.
//
//	@Summary		Move a pair one position up (-1) or down (1)
//	@Tags			threads
//	@Accept			json
//	@Param			id		path	string			true	"Thread id"
//	@Param			pairID	path	string			true	"Pair id"
//	@Param			body	body	MoveItemRequest	true	"Direction"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/threads/{id}/items/{pairID}/move [post]
func (h *Handler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req MoveItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "move in thread", err)
		return
	}
	err := h.svc.Workspace().Threads.MoveInThread(r.Context(), urlParam(r, "id"), urlParam(r, "pairID"), req.Direction)
	if err != nil {
		writeError(w, "move in thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPairs handles GET /api/qa.
//
//	@Summary		List every pair keyed by id, in archive order
//	@Tags			qa
//	@Produce		json
//	@Success		200	{object}	map[string]QAPair
//	@Security		BearerAuth
//	@Router			/qa [get]
func (h *Handler) ListPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.svc.Workspace().Pairs.ListAll(r.Context())
	if err != nil {
		writeError(w, "list pairs", err)
		return
	}
	writeJSON(w, http.StatusOK, pairs)
}

// GetPair handles GET /api/qa/{id}.
//
//	@Summary		Get a single pair
//	@Tags			qa
//	@Produce		json
//	@Param			id	path		string	true	"Pair id"
//	@Success		200	{object}	QAPair
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/qa/{id} [get]
func (h *Handler) GetPair(w http.ResponseWriter, r *http.Request) {
	pair, ok, err := h.svc.Workspace().Pairs.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "get pair", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// CreatePair handles POST /api/qa.
//
//	@Summary		Archive a new pair
//	@Tags			qa
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.QACreateData	true	"Pair content"
//	@Success		201		{object}	QAPair
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/qa [post]
func (h *Handler) CreatePair(w http.ResponseWriter, r *http.Request) {
	var data models.QACreateData
	if err := decodeJSON(w, r, &data); err != nil {
		writeError(w, "create pair", err)
		return
	}
	pair, err := h.svc.Workspace().Pairs.Create(r.Context(), data)
	if err != nil {
		writeError(w, "create pair", err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

// UpdatePair handles PATCH /api/qa/{id}.
//
//	@Summary		Merge fields into a pair and bump its version
//	@Tags			qa
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Pair id"
//	@Param			body	body		models.QAUpdateData	true	"Fields to change"
//	@Success		200		{object}	QAPair
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/qa/{id} [patch]
func (h *Handler) UpdatePair(w http.ResponseWriter, r *http.Request) {
	var data models.QAUpdateData
	if err := decodeJSON(w, r, &data); err != nil {
		writeError(w, "update pair", err)
		return
	}
	pair, ok, err := h.svc.Workspace().Pairs.Update(r.Context(), urlParam(r, "id"), data)
	if err != nil {
		writeError(w, "update pair", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// DeletePair handles DELETE /api/qa/{id}.
//
//	@Summary		Delete a pair (unknown ids succeed)
//	@Tags			qa
//	@Param			id	path	string	true	"Pair id"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/qa/{id} [delete]
func (h *Handler) DeletePair(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Workspace().Pairs.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeError(w, "delete pair", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Substring search over the archive
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Query"
//	@Param			mode	query		string	false	"Match mode"	Enums(full-text, tags)
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := search.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	ids, err := h.svc.Workspace().Search.Search(r.Context(), q.Get("q"), mode)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{IDs: ids})
}
