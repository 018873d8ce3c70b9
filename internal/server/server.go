package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"docqa/internal/app"
	"docqa/internal/ratelimit"
	"docqa/internal/util"
	"docqa/pkg/domain"
	"docqa/pkg/store"
)

// multipartSlack covers form boundaries and headers on top of the file limit.
const multipartSlack = 1 << 20

// Config wires the HTTP server.
type Config struct {
	App *app.App

	// Limiters are optional; nil disables limiting for that route.
	UploadLimiter *ratelimit.FixedWindowLimiter
	QALimiter     *ratelimit.FixedWindowLimiter

	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
}

// Server exposes HTTP handlers for documents and questions.
type Server struct {
	app            *app.App
	uploadLimiter  *ratelimit.FixedWindowLimiter
	qaLimiter      *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	router         chi.Router
}

// New constructs the server.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app required")
	}
	s := &Server{
		app:            cfg.App,
		uploadLimiter:  cfg.UploadLimiter,
		qaLimiter:      cfg.QALimiter,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSOrigins,
	}
	s.router = s.routes()
	return s, nil
}

// Router returns the http.Handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog(
			util.SecurityHeaders(s.trustedProxies)(
				util.CORS(s.corsOrigins)(s.router),
			),
		),
	)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.Get("/healthz", s.handleLiveness)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/documents", func(r chi.Router) {
			r.With(s.limit(s.uploadLimiter)).Post("/", s.handleUpload)
			r.Get("/", s.handleListDocuments)
			r.Delete("/", s.handleDeleteDocument)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Get("/chunks", s.handleDocumentChunks)
				r.Delete("/", s.handleDeleteDocument)
			})
		})

		r.With(s.limit(s.qaLimiter)).Post("/qa", s.handleQA)
	})
	return r
}

func (s *Server) limit(l *ratelimit.FixedWindowLimiter) func(http.Handler) http.Handler {
	key := func(r *http.Request) string {
		return util.ClientIP(r, s.trustedProxies)
	}
	return ratelimit.Middleware(l, key, func(w http.ResponseWriter, r *http.Request) {
		util.LoggerFromContext(r.Context()).Warn("rate limited", "path", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "too many requests", "")
	})
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.app.Health(r.Context())
	status := http.StatusOK
	if health.Status == domain.StatusUnhealthy || health.Services.Database == "failed" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

type uploadJSONRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.app.UploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)

	var in app.UploadInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var req uploadJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeUploadDecodeError(w, r, err, "Invalid JSON body")
			return
		}
		in = app.UploadInput{
			Name:        req.Name,
			Filename:    req.Name,
			ContentType: "text/plain",
			Size:        int64(len(req.Content)),
		}
		if req.Content != "" {
			in.Data = []byte(req.Content)
		}
	default:
		if err := r.ParseMultipartForm(limit + multipartSlack); err != nil {
			s.writeUploadDecodeError(w, r, err, "Invalid form data")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeAppError(w, r, &app.ValidationError{Message: "No file provided"}, "Failed to upload document")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form data", err.Error())
			return
		}
		in = app.UploadInput{
			Name:        r.FormValue("name"),
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
			Size:        header.Size,
		}
	}

	doc, err := s.app.Upload(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to upload document")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"document": doc,
	})
}

func (s *Server) writeUploadDecodeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.writeAppError(w, r, app.TooLarge(s.app.UploadLimit()), "Failed to upload document")
		return
	}
	if errors.Is(err, http.ErrNotMultipart) {
		s.writeAppError(w, r, &app.ValidationError{Message: "No file provided"}, "Failed to upload document")
		return
	}
	writeError(w, http.StatusBadRequest, msg, err.Error())
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.app.ListDocuments(r.Context())
	if err != nil {
		s.writeAppError(w, r, err, "Failed to fetch documents")
		return
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"documents": docs,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.app.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to fetch document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"document": doc,
	})
}

func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.app.DocumentChunks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAppError(w, r, err, "Failed to fetch chunks")
		return
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"chunks":  chunks,
	})
}

// handleDeleteDocument serves both /api/documents/{id} and /api/documents?id=.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	res, err := s.app.DeleteDocument(r.Context(), id)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to delete document")
		return
	}
	body := map[string]any{
		"success": true,
		"message": "Document deleted",
	}
	if res.ArchiveWarning != "" {
		body["warning"] = res.ArchiveWarning
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question json.RawMessage `json:"question"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}
	var question string
	if err := json.Unmarshal(req.Question, &question); err != nil || question == "" {
		writeError(w, http.StatusBadRequest, "Question is required and must be a string", "")
		return
	}
	res, err := s.app.Ask(r.Context(), question)
	if err != nil {
		s.writeAppError(w, r, err, "Failed to generate answer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"answer":  res.Answer,
		"sources": res.Sources,
	})
}

// writeAppError maps app, storage and model errors onto HTTP responses.
// fallback is the message used for storage and unclassified failures.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := util.LoggerFromContext(r.Context())
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		logger.Debug("request rejected", "reason", verr.Message)
		writeError(w, http.StatusBadRequest, verr.Message, "")
	case errors.Is(err, app.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "Document not found", "")
	case errors.Is(err, store.ErrStorage):
		logger.Error("storage failure", "err", err)
		writeError(w, http.StatusInternalServerError, fallback, err.Error())
	default:
		status, msg := modelFailure(err)
		if msg == "" {
			msg = fallback
		}
		logger.Error("request failed", "status", status, "err", err)
		writeError(w, status, msg, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{
		Success:   false,
		Error:     msg,
		Code:      errorCode(status, msg),
		Details:   details,
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}
