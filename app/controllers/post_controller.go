package controllers

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spacetraveling/app/locale"
	"spacetraveling/app/middleware"
	"spacetraveling/app/models"
	"spacetraveling/app/services"
	"spacetraveling/app/trace"
	"spacetraveling/logger"

	"github.com/gorilla/mux"
)

// pendingRefreshSeconds is how often the pending page reloads itself.
const pendingRefreshSeconds = 2

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService  *services.PostService
	pageService  *services.StaticPageService
	locale       *locale.Locale
	templates    map[string]*template.Template
	homePageSize int
}

// NewPostController loads the views under basePath/app/views and panics
// when one of them does not parse.
func NewPostController(postService *services.PostService, pageService *services.StaticPageService, loc *locale.Locale, basePath string) *PostController {
	return &PostController{
		postService:  postService,
		pageService:  pageService,
		locale:       loc,
		templates:    loadTemplates(basePath, templateFuncs(loc)),
		homePageSize: postService.PageSize(),
	}
}

func templateFuncs(loc *locale.Locale) template.FuncMap {
	return template.FuncMap{
		"formatDate":  loc.FormatDate,
		"t":           loc.T,
		"readingTime": loc.ReadingTime,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
}

// loadTemplates loads and parses all templates
func loadTemplates(basePath string, funcs template.FuncMap) map[string]*template.Template {
	layout := filepath.Join(basePath, "app/views/layout.html")
	pages := map[string]string{
		"index":     "app/views/posts/index.html",
		"show":      "app/views/posts/show.html",
		"pending":   "app/views/posts/pending.html",
		"not_found": "app/views/posts/not_found.html",
		"error":     "app/views/shared/error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		templates[name] = template.Must(template.New(name).Funcs(funcs).ParseFiles(
			layout,
			filepath.Join(basePath, file),
		))
	}
	return templates
}

type indexData struct {
	Title  string
	Posts  []models.PostSummary
	Cursor models.PageCursor
}

type showData struct {
	Title       string
	Post        *models.PostDetail
	ReadingTime int
}

type statusData struct {
	Title          string
	Message        string
	RefreshSeconds int
}

// apiSummary is a summary as served to the load more control.
type apiSummary struct {
	models.PostSummary
	FormattedDate string `json:"formatted_date"`
}

type apiPage struct {
	Results  []apiSummary `json:"results"`
	NextPage *string      `json:"next_page"`
}

type apiPost struct {
	*models.PostDetail
	FormattedDate string `json:"formatted_date"`
	ReadingTime   int    `json:"reading_time"`
}

// Index renders the home page with the first page of posts.
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	page, err := pc.postService.ListPage(r.Context(), services.ListInput{PageSize: pc.homePageSize})
	if err != nil {
		pc.sendError(w, r, pc.locale.T(locale.KeyFetchFailed), statusFor(err), err)
		return
	}

	data := indexData{
		Title:  pc.locale.T(locale.KeySiteName),
		Posts:  page.Summaries,
		Cursor: page.Cursor,
	}
	pc.render(w, r, "index", http.StatusOK, data)
}

// Show renders a post page. A post still being generated gets the pending
// page, which reloads itself until the post is ready.
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	page, err := pc.pageService.Request(r.Context(), slug)
	if err != nil {
		pc.sendError(w, r, pc.locale.T(locale.KeyFetchFailed), statusFor(err), err)
		return
	}

	switch page.View.State {
	case models.ViewPending:
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Refresh", strconv.Itoa(pendingRefreshSeconds))
		pc.render(w, r, "pending", http.StatusAccepted, statusData{
			Title:          pc.locale.T(locale.KeyLoading),
			Message:        pc.locale.T(locale.KeyLoading),
			RefreshSeconds: pendingRefreshSeconds,
		})
	case models.ViewNotFound:
		pc.render(w, r, "not_found", http.StatusNotFound, statusData{
			Title:   pc.locale.T(locale.KeyNotFound),
			Message: pc.locale.T(locale.KeyNotFound),
		})
	default:
		if notModified(w, r, page) {
			return
		}
		pc.render(w, r, "show", http.StatusOK, showData{
			Title:       page.View.Post.Title,
			Post:        page.View.Post,
			ReadingTime: page.View.ReadingTime,
		})
	}
}

// APIList serves one page of summaries. Without a cursor it serves the
// first page.
func (pc *PostController) APIList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pageSize := pc.homePageSize
	if raw := query.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			pc.sendError(w, r, "page_size must be an integer", http.StatusBadRequest, nil)
			return
		}
		pageSize = n
	}

	page, err := pc.postService.ListPage(r.Context(), services.ListInput{
		PageSize: pageSize,
		Cursor:   models.PageCursor(query.Get("cursor")),
	})
	if err != nil {
		pc.sendError(w, r, errorMessage(err), statusFor(err), err)
		return
	}

	resp := apiPage{Results: make([]apiSummary, 0, len(page.Summaries))}
	for _, s := range page.Summaries {
		resp.Results = append(resp.Results, apiSummary{
			PostSummary:   s,
			FormattedDate: pc.locale.FormatDate(s.FirstPublicationDate),
		})
	}
	if page.Cursor.HasMore() {
		next := string(page.Cursor)
		resp.NextPage = &next
	}
	pc.sendJSON(w, http.StatusOK, resp)
}

// APIShow serves a post, generating it first when it was never built.
func (pc *PostController) APIShow(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	page, err := pc.pageService.Resolve(r.Context(), slug)
	if err != nil {
		pc.sendError(w, r, errorMessage(err), statusFor(err), err)
		return
	}
	if page.View.State != models.ViewReady {
		pc.sendError(w, r, pc.locale.T(locale.KeyNotFound), http.StatusNotFound, nil)
		return
	}
	if notModified(w, r, page) {
		return
	}

	pc.sendJSON(w, http.StatusOK, apiPost{
		PostDetail:    page.View.Post,
		FormattedDate: pc.locale.FormatDate(page.View.Post.FirstPublicationDate),
		ReadingTime:   page.View.ReadingTime,
	})
}

// notModified sets the caching headers of a ready page and answers 304 when
// the client already has it.
func notModified(w http.ResponseWriter, r *http.Request, page services.Page) bool {
	if page.ETag == "" {
		return false
	}
	w.Header().Set("ETag", page.ETag)
	if !page.GeneratedAt.IsZero() {
		w.Header().Set("Last-Modified", page.GeneratedAt.UTC().Format(http.TimeFormat))
	}
	if etagMatches(r.Header.Get("If-None-Match"), page.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrFetchFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		return "Post not found"
	case http.StatusBadGateway:
		return "Failed to fetch posts from the content service"
	default:
		return "Internal server error"
	}
}

func (pc *PostController) render(w http.ResponseWriter, r *http.Request, name string, status int, data interface{}) {
	tmpl, ok := pc.templates[name]
	if !ok {
		pc.sendError(w, r, "Template not found: "+name, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		logger.ErrorWithFields("template error", logger.Fields{
			"template":   name,
			"error":      err.Error(),
			"request_id": trace.RequestIDFromContext(r.Context()),
		})
	}
}

// Helper methods for consistent response handling

func (pc *PostController) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (pc *PostController) sendError(w http.ResponseWriter, r *http.Request, message string, status int, cause error) {
	if status >= http.StatusInternalServerError {
		fields := logger.Fields{
			"path":       r.URL.Path,
			"status":     status,
			"request_id": trace.RequestIDFromContext(r.Context()),
		}
		if cause != nil {
			fields["error"] = cause.Error()
		}
		logger.ErrorWithFields("request failed", fields)
	}

	if r.Header.Get("Accept") == "application/json" || middleware.IsAPIRequest(r) {
		pc.sendJSON(w, status, map[string]string{"error": message})
		return
	}
	if tmpl, ok := pc.templates["error"]; ok {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		tmpl.ExecuteTemplate(w, "layout", statusData{Title: pc.locale.T(locale.KeySiteName), Message: message})
		return
	}
	http.Error(w, message, status)
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
