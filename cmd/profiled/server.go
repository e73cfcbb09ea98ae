package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"profiler/internal/config"
	"profiler/internal/metrics"
	"profiler/internal/parser"
	"profiler/internal/profile"
	"profiler/internal/store"
)

// server holds the request-independent pieces. One instance serves all
// requests; the profiler itself is stateless per run.
type server struct {
	limits  config.Limits
	store   store.Store // nil when persistence is not configured
	metrics metrics.Backend
	log     *log.Logger

	now   func() time.Time
	newID func() string
}

func newServer(limits config.Limits, st store.Store, backend metrics.Backend, logger *log.Logger) *server {
	return &server{
		limits:  limits,
		store:   st,
		metrics: backend,
		log:     logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/profiles", s.handleCreate)
	mux.HandleFunc("GET /v1/profiles/{id}", s.handleGet)
	mux.HandleFunc("GET /v1/profiles", s.handleList)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// profileResponse wraps the profile with its storage identity. ID and
// CreatedAt are empty when no store is configured.
type profileResponse struct {
	ID        string                  `json:"id,omitempty"`
	Dataset   string                  `json:"dataset,omitempty"`
	CreatedAt string                  `json:"createdAt,omitempty"`
	Profile   *profile.DatasetProfile `json:"profile"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleCreate(w http.ResponseWriter, r *http.Request) {
	start := s.now()

	limits := s.limits
	if v := r.URL.Query().Get("max_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "max_rows must be a positive integer")
			return
		}
		if n < limits.MaxRows {
			limits.MaxRows = n
		}
	}

	data, dataset, hint, err := s.readUpload(r)
	if err != nil {
		s.reject(w, "read_body", http.StatusBadRequest, err.Error())
		return
	}
	if q := r.URL.Query().Get("format"); q != "" {
		hint = q
	}

	s.metrics.ObserveHistogram(metrics.UploadBytes, float64(len(data)), metrics.Labels{"format": hint})

	p := profile.New(limits, nil, s.log)
	prof, err := p.Profile(r.Context(), data, hint)
	if err != nil {
		s.profileError(w, hint, err)
		return
	}

	s.metrics.IncCounter(metrics.ProfilesTotal, 1, metrics.Labels{"format": prof.SourceFormat, "status": "ok"})
	s.metrics.IncCounter(metrics.RowsTotal, float64(prof.TotalRows), metrics.Labels{"kind": "total"})
	s.metrics.IncCounter(metrics.RowsTotal, float64(prof.MaterializedRows), metrics.Labels{"kind": "materialized"})
	s.metrics.IncCounter(metrics.RowsTotal, float64(prof.DuplicateRowCount), metrics.Labels{"kind": "duplicate"})
	s.metrics.ObserveHistogram(metrics.ProfileDurationSeconds, s.now().Sub(start).Seconds(),
		metrics.Labels{"format": prof.SourceFormat, "status": "ok"})

	resp := profileResponse{Dataset: dataset, Profile: prof}

	if s.store != nil {
		payload, err := json.Marshal(prof)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "encode profile")
			return
		}
		rec := store.Record{
			ID:        s.newID(),
			Dataset:   dataset,
			Format:    prof.SourceFormat,
			CreatedAt: s.now().UTC(),
			Profile:   payload,
		}
		if err := s.store.Save(r.Context(), rec); err != nil {
			s.log.Printf("save profile: %v", err)
			s.writeError(w, http.StatusInternalServerError, "persist profile")
			return
		}
		resp.ID = rec.ID
		resp.CreatedAt = rec.CreatedAt.Format(time.RFC3339Nano)
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	rec, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.log.Printf("get profile: %v", err)
		s.writeError(w, http.StatusInternalServerError, "load profile")
		return
	}

	var prof profile.DatasetProfile
	if err := json.Unmarshal(rec.Profile, &prof); err != nil {
		s.log.Printf("decode stored profile %s: %v", rec.ID, err)
		s.writeError(w, http.StatusInternalServerError, "decode stored profile")
		return
	}

	s.writeJSON(w, http.StatusOK, profileResponse{
		ID:        rec.ID,
		Dataset:   rec.Dataset,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339Nano),
		Profile:   &prof,
	})
}

type listEntry struct {
	ID        string `json:"id"`
	Dataset   string `json:"dataset"`
	Format    string `json:"format"`
	CreatedAt string `json:"createdAt"`
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no store configured")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.log.Printf("list profiles: %v", err)
		s.writeError(w, http.StatusInternalServerError, "list profiles")
		return
	}

	out := make([]listEntry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, listEntry{
			ID:        rec.ID,
			Dataset:   rec.Dataset,
			Format:    rec.Format,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// readUpload returns the upload bytes, a dataset label and a format
// hint. Multipart requests use the "file" part and its filename; raw
// bodies fall back to the Content-Type header as the hint. The body is
// capped one byte past the limit so oversize uploads surface as
// FileTooLargeError rather than a silent truncation.
func (s *server) readUpload(r *http.Request) (data []byte, dataset, hint string, err error) {
	ct := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ct)

	if mediaType == "multipart/form-data" {
		f, fh, err := r.FormFile("file")
		if err != nil {
			return nil, "", "", errors.New(`multipart upload requires a "file" part`)
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, int64(s.limits.MaxBytes)+1))
		if err != nil {
			return nil, "", "", err
		}
		return data, fh.Filename, fh.Filename, nil
	}

	body := http.MaxBytesReader(nil, r.Body, int64(s.limits.MaxBytes)+1)
	data, err = io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return data, "upload", mediaType, nil
		}
		return nil, "", "", err
	}
	return data, "upload", mediaType, nil
}

// profileError maps pipeline errors onto transport status codes.
func (s *server) profileError(w http.ResponseWriter, hint string, err error) {
	var (
		unsupported *parser.UnsupportedFormatError
		empty       *profile.EmptyDatasetError
		tooLarge    *profile.FileTooLargeError
		badShape    *parser.RowShapeError
	)
	switch {
	case errors.As(err, &unsupported):
		s.reject(w, "unsupported_format", http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &empty):
		s.reject(w, "empty_dataset", http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &tooLarge):
		s.reject(w, "too_large", http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &badShape):
		s.reject(w, "row_shape", http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Printf("profile %q: %v", hint, err)
		s.metrics.IncCounter(metrics.ProfilesTotal, 1, metrics.Labels{"format": hint, "status": "error"})
		s.writeError(w, http.StatusInternalServerError, "profiling failed")
	}
}

func (s *server) reject(w http.ResponseWriter, reason string, status int, msg string) {
	s.metrics.IncCounter(metrics.UploadsRejectedTotal, 1, metrics.Labels{"reason": reason})
	s.writeError(w, status, msg)
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("write response: %v", err)
	}
}
