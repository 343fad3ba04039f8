package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phpscreening/screener/internal/config"
	"github.com/phpscreening/screener/internal/models"
	"github.com/phpscreening/screener/internal/pdf"
	"github.com/phpscreening/screener/internal/screening"
)

const multipartMemory = 32 << 20

type server struct {
	log     *slog.Logger
	cfg     *config.API
	session *screening.Session
	health  func(ctx context.Context) error
}

type errorResponse struct {
	Error string `json:"error"`
}

type filterRequest struct {
	ID       string `json:"id"`
	Keywords string `json:"keywords"`
	Region   string `json:"region"`
}

type judgeRequest struct {
	Status string `json:"status"`
}

type keyResponse struct {
	Action screening.Action    `json:"action"`
	Result screening.NavResult `json:"result"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/candidates", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleList)
		r.Post("/{index}/select", s.handleSelect)
		r.Get("/{index}/pages/{page}", s.handlePage)
	})
	r.Get("/filters", s.handleGetFilters)
	r.Put("/filters", s.handleFilters)
	r.Get("/current", s.handleCurrent)
	r.Post("/judge", s.handleJudge)
	r.Post("/undo", s.handleUndo)
	r.Post("/next", s.handleNext)
	r.Post("/keys", s.handleKey)
	r.Get("/export", s.handleExport)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("parse upload: %v", err)})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]screening.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("open %s: %v", fh.Filename, err)})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("read %s: %v", fh.Filename, err)})
			return
		}
		files = append(files, screening.UploadedFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	writeJSON(w, http.StatusOK, s.session.Ingest(r.Context(), files))
}

func (s *server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.List())
}

func (s *server) handleGetFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Filters())
}

func (s *server) handleFilters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	selected, err := models.ParseRegionFilter(req.Region)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.session.SetFilters(req.ID, req.Keywords, selected)
	writeJSON(w, http.StatusOK, s.session.List())
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}
	if err := s.session.Select(index); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.handleCurrent(w, r)
}

func (s *server) handleCurrent(w http.ResponseWriter, _ *http.Request) {
	cur, ok := s.session.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no candidate focused"})
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *server) handleJudge(w http.ResponseWriter, r *http.Request) {
	var req judgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.session.Judge(status))
}

func (s *server) handleUndo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Undo())
}

func (s *server) handleNext(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.session.SelectNextPending())
}

func (s *server) handleKey(w http.ResponseWriter, r *http.Request) {
	var ev screening.KeyEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	action, res := s.session.HandleKey(ev)
	writeJSON(w, http.StatusOK, keyResponse{Action: action, Result: res})
}

func (s *server) handlePage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "page must be a non-negative integer"})
		return
	}
	scale := parseScale(r.URL.Query().Get("scale"))

	view, err := s.session.RenderPage(r.Context(), index, page, scale)
	switch {
	case errors.Is(err, screening.ErrOutOfRange), errors.Is(err, pdf.ErrPageOutOfRange):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case err != nil:
		s.log.Warn("render page", slog.Int("index", index), slog.Int("page", page), slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, _, err := s.session.Export(r.Context())
	switch {
	case errors.Is(err, screening.ErrNothingToExport):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.log.Error("export", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, s.cfg.ArchiveName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// parseScale reads the render scale, defaulting to 1.5 and clamping to [0.25, 4].
func parseScale(raw string) float64 {
	if raw == "" {
		return 1.5
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 1.5
	}
	if v < 0.25 {
		return 0.25
	}
	if v > 4 {
		return 4
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
