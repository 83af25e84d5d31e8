// Package server exposes the HTTP API for the document drafting service.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"docforge/internal/app"
	"docforge/internal/ratelimit"
	"docforge/internal/usertoken"
	"docforge/internal/util"
	"docforge/pkg/domain"
	"docforge/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	Verifier                   *usertoken.Verifier
	RedisAddr                  string
	RedisPassword              string
	GenerateRateLimitPerMinute int
	// TrustedProxies may be nil, meaning forwarded headers are ignored.
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the service.
type Server struct {
	app             *app.App
	verifier        *usertoken.Verifier
	mux             *http.ServeMux
	generateLimiter *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server requires the application core")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("server requires a token verifier")
	}
	generateLimit := cfg.GenerateRateLimitPerMinute
	if generateLimit <= 0 {
		generateLimit = 30
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "docforge:ratelimit:generate", generateLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init generate limiter: %w", err)
	}
	s := &Server{
		app:             cfg.App,
		verifier:        cfg.Verifier,
		mux:             http.NewServeMux(),
		generateLimiter: limiter,
		trustedProxies:  cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// projects
	s.mux.Handle("/projects", s.withUser(s.handleProjects))
	s.mux.Handle("/projects/", s.withUser(s.handleProjectByID))

	// generation cascade (rate limited)
	s.mux.Handle("/generate/outline/", s.withUser(s.rateLimited(s.handleGenerateOutline)))
	s.mux.Handle("/generate/section/", s.withUser(s.rateLimited(s.handleGenerateSection)))
	s.mux.Handle("/generate/slide/", s.withUser(s.rateLimited(s.handleGenerateSlide)))
	s.mux.Handle("/generate/all/", s.withUser(s.rateLimited(s.handleGenerateAll)))

	// refinement ledger
	s.mux.Handle("/refine/accept/", s.withUser(s.handleAcceptRefinement))
	s.mux.Handle("/refine/history/", s.withUser(s.handleRefinementHistory))
	s.mux.Handle("/refine/", s.withUser(s.rateLimited(s.handleRefine)))
	s.mux.Handle("/feedback/", s.withUser(s.handleFeedback))

	// export
	s.mux.Handle("/export/", s.withUser(s.handleExport))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type identityHandler func(http.ResponseWriter, *http.Request, domain.Identity)

// withUser resolves the caller identity once at the boundary. There is no
// unauthorized outcome: an absent or invalid token resolves to the fixed
// development identity.
func (s *Server) withUser(next identityHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next(w, r, s.verifier.Resolve(r))
	})
}

func (s *Server) rateLimited(next identityHandler) identityHandler {
	return func(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
		key := identity.ID
		if identity.Anonymous {
			key = identity.ID + "|" + util.ClientIP(r, s.trustedProxies)
		}
		if !s.generateLimiter.Allow(key) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many generation requests")
			return
		}
		next(w, r, identity)
	}
}

// /projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	switch r.Method {
	case http.MethodPost:
		var in app.CreateProjectInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p, err := s.app.CreateProject(identity, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	case http.MethodGet:
		filter := store.ProjectFilter{
			Kind:   domain.DocumentKind(strings.TrimSpace(r.URL.Query().Get("documentType"))),
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Skip:   queryInt(r, "skip", 0),
			Limit:  queryInt(r, "limit", 0),
		}
		projects, err := s.app.ListProjects(identity, filter)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": projects,
			"count": len(projects),
		})
	default:
		methodNotAllowed(w)
	}
}

// /projects/{id}
func (s *Server) handleProjectByID(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	id := strings.TrimPrefix(r.URL.Path, "/projects/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.app.GetProject(identity, id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var in app.UpdateProjectInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p, err := s.app.UpdateProject(identity, id, in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.app.DeleteProject(r.Context(), identity, id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "project deleted"})
	default:
		methodNotAllowed(w)
	}
}

// /generate/outline/{id}?count=5
func (s *Server) handleGenerateOutline(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := singleSegment(r.URL.Path, "/generate/outline/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	count := queryInt(r, "count", 5)
	p, err := s.app.GenerateOutline(r.Context(), identity, id, count)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if p.Kind == domain.KindWord {
		writeJSON(w, http.StatusOK, map[string]any{"sections": p.Sections})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slides": p.Slides})
}

// /generate/section/{id}/{unitID}
func (s *Server) handleGenerateSection(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/generate/section/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	section, err := s.app.GenerateSection(r.Context(), identity, projectID, unitID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sectionId":   section.ID,
		"content":     section.Content,
		"generatedAt": section.GeneratedAt,
	})
}

// /generate/slide/{id}/{unitID}
func (s *Server) handleGenerateSlide(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/generate/slide/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slide, err := s.app.GenerateSlide(r.Context(), identity, projectID, unitID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slideId":     slide.ID,
		"content":     slide.Bullets,
		"generatedAt": slide.GeneratedAt,
	})
}

// /generate/all/{id}
func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := singleSegment(r.URL.Path, "/generate/all/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	p, err := s.app.GenerateAll(r.Context(), identity, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if p.Kind == domain.KindWord {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "all sections generated",
			"status":   p.Status,
			"sections": p.Sections,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "all slides generated",
		"status":  p.Status,
		"slides":  p.Slides,
	})
}

// /refine/{id}/{unitID}
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/refine/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req refineRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.app.Refine(r.Context(), identity, projectID, unitID, req.Prompt)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	refined := any(result.RefinedContent)
	if result.Kind == domain.KindSlide {
		refined = result.RefinedBullets
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unitId":           result.UnitID,
		"originalContent":  result.OriginalContent,
		"refinedContent":   refined,
		"refinementPrompt": result.Instruction,
		"timestamp":        result.Timestamp,
	})
}

// /refine/accept/{id}/{unitID}
func (s *Server) handleAcceptRefinement(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/refine/accept/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	result, err := s.app.AcceptRefinement(identity, projectID, unitID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	newContent := any(result.NewContent)
	if result.Kind == domain.KindSlide {
		newContent = result.NewBullets
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "refinement accepted",
		"newContent": newContent,
	})
}

// /refine/history/{id}/{unitID}
func (s *Server) handleRefinementHistory(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/refine/history/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	history, err := s.app.RefinementHistory(identity, projectID, unitID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unitId":  unitID,
		"history": history,
	})
}

// /feedback/{id}/{unitID}
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	projectID, unitID, ok := twoSegments(r.URL.Path, "/feedback/")
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry, err := s.app.SubmitFeedback(identity, projectID, unitID, req.Liked, req.Comment)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "feedback submitted",
		"feedback": entry,
	})
}

// /export/{id} or /export/{id}/preview
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/export/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] != "preview" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		preview, err := s.app.ExportPreview(identity, id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, preview)
		return
	}

	result, err := s.app.Export(r.Context(), identity, id)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MIMEType)
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

type refineRequest struct {
	Prompt string `json:"prompt"`
}

type feedbackRequest struct {
	Liked   *bool  `json:"liked"`
	Comment string `json:"comment"`
}

func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrProjectNotFound),
		errors.Is(err, app.ErrUnitNotFound),
		errors.Is(err, app.ErrNoRefinements):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrWrongKind),
		errors.Is(err, app.ErrNoContentToRefine),
		errors.Is(err, app.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func singleSegment(path, prefix string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

func twoSegments(path, prefix string) (string, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeFor(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeFor(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "project not found":
		return "PROJECT_NOT_FOUND"
	case message == "unit not found":
		return "UNIT_NOT_FOUND"
	case strings.Contains(message, "wrong document kind"):
		return "PROJECT_WRONG_KIND"
	case strings.Contains(message, "no content to refine"):
		return "REFINE_NO_CONTENT"
	case strings.Contains(message, "no refinements found"):
		return "REFINE_NO_HISTORY"
	case strings.HasPrefix(message, "invalid request"), message == "invalid json body":
		return "PROJECT_INVALID_REQUEST"
	case strings.Contains(message, "too many generation requests"):
		return "GENERATE_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "PROJECT_INVALID_REQUEST"
	case http.StatusNotFound:
		return "PROJECT_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "GENERATE_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
