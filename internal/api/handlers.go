package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/nodepad/internal/models"
	"github.com/starford/nodepad/internal/pageservice"
	"github.com/starford/nodepad/internal/storage"
	"github.com/starford/nodepad/internal/tags"
)

const maxPageBytes = 10 << 20

// Handler holds the page route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

func boolParam(q url.Values, name string, def bool) bool {
	v, err := strconv.ParseBool(q.Get(name))
	if err != nil {
		return def
	}
	return v
}

func intParam(q url.Values, name string) int {
	n, _ := strconv.Atoi(q.Get(name))
	return n
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeBody fills dst from a JSON body, or from the query string for other
// content types so that plain form-less clients can call the same route.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, fromQuery func(url.Values)) bool {
	if !isJSON(r) {
		fromQuery(r.URL.Query())
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func etag(sum string) string { return `"` + sum + `"` }

// Structure handles GET /api/pages/structure.
//
//	@Summary		Get the page tree
//	@Tags			pages
//	@Produce		json
//	@Param			path				query		string	false	"Folder to list, defaults to the root"
//	@Param			sorted				query		bool	false	"Sort by name"	default(true)
//	@Param			directoriesFirst	query		bool	false	"Folders before pages"
//	@Param			tags				query		string	false	"Comma-separated tags every page must carry"
//	@Param			includeCounts		query		bool	false	"Annotate folders with page counts"
//	@Param			includeTitles		query		bool	false	"Annotate pages with their titles"
//	@Success		200					{object}	StructureResponse
//	@Failure		403					{object}	errResponse
//	@Failure		404					{object}	errResponse
//	@Router			/pages/structure [get]
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nodes, total, err := h.svc.Tree(r.Context(), pageservice.TreeQuery{
		Path:      q.Get("path"),
		Tags:      tags.SplitCSV(q.Get("tags")),
		Sorted:    boolParam(q, "sorted", true),
		DirsFirst: boolParam(q, "directoriesFirst", false),
		Counts:    boolParam(q, "includeCounts", false),
		Titles:    boolParam(q, "includeTitles", false),
	})
	if err != nil {
		writeError(w, r, "tree", err)
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	writeJSON(w, http.StatusOK, StructureResponse{Nodes: nodes, TotalFiles: total})
}

// Content handles GET /api/pages/content.
//
//	@Summary		Read page content
//	@Description	Returns the raw markdown, or content with breadcrumbs and tags when includeMeta is set.
//	@Tags			pages
//	@Produce		plain,json
//	@Param			path		query		string	true	"Page path"
//	@Param			includeMeta	query		bool	false	"Wrap the content with metadata"
//	@Success		200			{string}	string
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Router			/pages/content [get]
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Page(r.Context(), q.Get("path"))
	if err != nil {
		writeError(w, r, "read page", err)
		return
	}
	w.Header().Set("ETag", etag(page.Checksum))
	if !boolParam(q, "includeMeta", false) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, page.Content)
		return
	}
	crumbs, err := h.svc.Breadcrumbs(r.Context(), page.Path)
	if err != nil {
		writeError(w, r, "breadcrumbs", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{
		Content:     page.Content,
		Breadcrumbs: crumbs,
		Tags:        page.Tags,
		Checksum:    page.Checksum,
	})
}

// Meta handles GET /api/pages/meta.
//
//	@Summary		Read page tags
//	@Description	Returns the display tags, or both display and normalized forms when includeNormalized is set.
//	@Tags			pages
//	@Produce		json
//	@Param			path				query		string	true	"Page path"
//	@Param			includeNormalized	query		bool	false	"Include normalized tags"
//	@Success		200					{object}	TagMetaResponse
//	@Failure		404					{object}	errResponse
//	@Router			/pages/meta [get]
func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Meta(r.Context(), q.Get("path"))
	if err != nil {
		writeError(w, r, "page meta", err)
		return
	}
	if !boolParam(q, "includeNormalized", false) {
		writeJSON(w, http.StatusOK, page.Tags)
		return
	}
	normalized := tags.NormalizeAll(page.Tags)
	if normalized == nil {
		normalized = []string{}
	}
	writeJSON(w, http.StatusOK, TagMetaResponse{Display: page.Tags, Normalized: normalized})
}

// Detail handles GET /api/pages/detail.
//
//	@Summary		Read page metadata
//	@Tags			pages
//	@Produce		json
//	@Param			path	query		string	true	"Page path"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Router			/pages/detail [get]
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Meta(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, "page detail", err)
		return
	}
	w.Header().Set("ETag", etag(page.Checksum))
	writeJSON(w, http.StatusOK, page)
}

// Save handles POST /api/pages/save.
//
//	@Summary		Save page content
//	@Description	A text/plain body is stored verbatim and echoed back. A JSON body may also replace the tags.
//	@Tags			pages
//	@Accept			plain,json
//	@Produce		plain,json
//	@Param			path		query		string			true	"Page path"
//	@Param			tags		query		string			false	"Comma-separated tags replacing the current ones"
//	@Param			If-Match	header		string			false	"Checksum of the content the edit is based on"
//	@Param			body		body		SavePageRequest	false	"Content and tags"
//	@Success		200			{object}	PageDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/pages/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	r.Body = http.MaxBytesReader(w, r.Body, maxPageBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("page too large", "too_large"))
			return
		}
		badRequest(w, "failed to read body")
		return
	}

	req := pageservice.SaveRequest{
		Path:    q.Get("path"),
		IfMatch: strings.Trim(r.Header.Get("If-Match"), `"`),
	}
	if q.Has("tags") {
		req.Tags = tags.SplitCSV(q.Get("tags"))
		if req.Tags == nil {
			req.Tags = []string{}
		}
	}
	asJSON := isJSON(r)
	if asJSON {
		var in SavePageRequest
		if err := json.Unmarshal(body, &in); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
		req.Content = in.Content
		if in.Tags != nil {
			req.Tags = *in.Tags
		}
	} else {
		req.Content = string(body)
	}

	page, err := h.svc.Save(r.Context(), req)
	if err != nil {
		writeError(w, r, "save page", err)
		return
	}
	w.Header().Set("ETag", etag(page.Checksum))
	if asJSON {
		writeJSON(w, http.StatusOK, page)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, req.Content)
}

// Create handles POST /api/pages/create.
//
//	@Summary		Create a page or folder
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			path	query		string			false	"Entity path (query form)"
//	@Param			type	query		string			false	"file or folder (query form)"
//	@Param			body	body		CreateRequest	false	"Entity to create"
//	@Success		201		{object}	CreateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/pages/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !decodeBody(w, r, &req, func(q url.Values) {
		req.Path, req.Type = q.Get("path"), q.Get("type")
	}) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, "create", err)
		return
	}
	rel, err := h.svc.Create(r.Context(), req.Path, req.Type)
	if err != nil {
		writeError(w, r, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateResponse{Path: rel, Type: storage.EntityType(req.Type)})
}

// Delete handles DELETE /api/pages/delete.
//
//	@Summary		Delete a page or folder
//	@Description	Deleting a non-empty folder answers 409 with code needs_confirmation unless recursive is set.
//	@Tags			pages
//	@Param			path		query	string	true	"Entity path"
//	@Param			recursive	query	bool	false	"Delete folder contents"
//	@Success		204			"Deleted"
//	@Failure		403			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/pages/delete [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.svc.Delete(r.Context(), q.Get("path"), boolParam(q, "recursive", false)); err != nil {
		writeError(w, r, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move handles POST /api/pages/move.
//
//	@Summary		Move a page or folder into another folder
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Source and destination folder"
//	@Success		200		{object}	MoveResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/pages/move [post]
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req, func(q url.Values) {
		req.Path, req.Destination = q.Get("path"), q.Get("destination")
	}) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, "move", err)
		return
	}
	res, err := h.svc.Move(r.Context(), req.Path, req.Destination)
	if err != nil {
		writeError(w, r, "move", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Rename handles POST /api/pages/rename.
//
//	@Summary		Rename a page or folder in place
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameRequest	true	"Entity and its new name"
//	@Success		200		{object}	MoveResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Router			/pages/rename [post]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req, func(q url.Values) {
		req.Path, req.NewName = q.Get("path"), q.Get("newName")
	}) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, "rename", err)
		return
	}
	res, err := h.svc.Rename(r.Context(), req.Path, req.NewName)
	if err != nil {
		writeError(w, r, "rename", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateName handles GET /api/pages/validate-name.
//
//	@Summary		Check a proposed entity name
//	@Tags			pages
//	@Produce		json
//	@Param			parent	query		string	false	"Parent folder"
//	@Param			type	query		string	true	"file or folder"
//	@Param			name	query		string	true	"Proposed name"
//	@Success		200		{object}	NameValidation
//	@Router			/pages/validate-name [get]
func (h *Handler) ValidateName(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.svc.ValidateName(r.Context(), q.Get("parent"), q.Get("type"), q.Get("name")))
}

// Breadcrumbs handles GET /api/pages/breadcrumbs.
//
//	@Summary		Ancestry of a path
//	@Tags			pages
//	@Produce		json
//	@Param			path	query		string	true	"Page path"
//	@Success		200		{array}		models.Breadcrumb
//	@Failure		403		{object}	errResponse
//	@Router			/pages/breadcrumbs [get]
func (h *Handler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	crumbs, err := h.svc.Breadcrumbs(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, r, "breadcrumbs", err)
		return
	}
	if crumbs == nil {
		crumbs = []models.Breadcrumb{}
	}
	writeJSON(w, http.StatusOK, crumbs)
}

// Render handles GET /api/pages/render.
//
//	@Summary		Render a page to HTML
//	@Tags			pages
//	@Produce		json
//	@Param			path	query		string	true	"Page path"
//	@Success		200		{object}	RenderResponse
//	@Failure		404		{object}	errResponse
//	@Router			/pages/render [get]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	html, err := h.svc.Render(r.Context(), path)
	if err != nil {
		writeError(w, r, "render", err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{Path: path, HTML: html})
}

// Search handles GET /api/pages/search.
//
//	@Summary		Ranked full-text search
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query, at least two characters"
//	@Param			tags	query		string	false	"Comma-separated required tags"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/pages/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.svc.Search(r.Context(), q.Get("q"), tags.SplitCSV(q.Get("tags")), intParam(q, "limit"))
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Recent handles GET /api/pages/recent.
//
//	@Summary		Recently modified pages
//	@Tags			search
//	@Produce		json
//	@Param			tags	query		string	false	"Comma-separated required tags"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	PageListResponse
//	@Router			/pages/recent [get]
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pages, err := h.svc.Recent(r.Context(), tags.SplitCSV(q.Get("tags")), intParam(q, "limit"))
	if err != nil {
		writeError(w, r, "recent", err)
		return
	}
	writePages(w, pages)
}

// Untagged handles GET /api/pages/untagged.
//
//	@Summary		Pages without tags
//	@Tags			search
//	@Produce		json
//	@Success		200	{object}	PageListResponse
//	@Router			/pages/untagged [get]
func (h *Handler) Untagged(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.Untagged(r.Context())
	if err != nil {
		writeError(w, r, "untagged", err)
		return
	}
	writePages(w, pages)
}

func writePages(w http.ResponseWriter, pages []models.PageSummary) {
	if pages == nil {
		pages = []models.PageSummary{}
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages})
}

// Tags handles GET /api/pages/tags.
//
//	@Summary		All tags with page counts
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Router			/pages/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.TagCounts(r.Context())
	if err != nil {
		writeError(w, r, "tags", err)
		return
	}
	if counts == nil {
		counts = []tags.Count{}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: counts})
}

// SuggestTags handles GET /api/pages/tags/suggest.
//
//	@Summary		Tag completion
//	@Tags			tags
//	@Produce		json
//	@Param			prefix	query		string	false	"Tag prefix"
//	@Param			limit	query		int		false	"Max suggestions"
//	@Success		200		{object}	SuggestResponse
//	@Router			/pages/tags/suggest [get]
func (h *Handler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	if prefix == "" {
		prefix = q.Get("q")
	}
	suggestions, err := h.svc.SuggestTags(r.Context(), prefix, intParam(q, "limit"))
	if err != nil {
		writeError(w, r, "suggest tags", err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Tags: suggestions})
}

// TagIndex handles GET /api/pages/tags-index.
//
//	@Summary		Tags of every page
//	@Tags			tags
//	@Produce		json
//	@Param			refresh	query		bool	false	"Resynchronize the cache first"
//	@Success		200		{object}	tags.Index
//	@Router			/pages/tags-index [get]
func (h *Handler) TagIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := h.svc.TagIndex(r.Context(), boolParam(r.URL.Query(), "refresh", false))
	if err != nil {
		writeError(w, r, "tag index", err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}
