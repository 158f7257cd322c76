package interview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"interview-pipeline/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps a single multipart upload held in memory before
// spooling to disk.
const maxUploadBytes = 32 << 20

// Handler exposes the ingestion HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and
// optional Metrics. Metrics may be nil to disable metric recording (e.g.
// in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts all ingestion endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/attempts", h.CreateAttempt)
	r.Post("/start-recording/{attempt_id}", h.StartRecording)
	r.Post("/stop-recording/{attempt_id}", h.StopRecording)
	r.Post("/upload-segment/{candidate_id}", h.UploadSegment)
	r.Post("/upload-final/{candidate_id}", h.UploadFinal)
	r.Get("/segments/{candidate_id}", h.ListSegments)
	r.Get("/active-interview", h.ActiveInterview)
	r.Post("/realtime-session", h.CreateRealtimeSession)
}

// attemptResponse is the wire shape of an attempt. videoPath is an
// explicit null when no timeline exists yet.
type attemptResponse struct {
	ID            string    `json:"id"`
	CandidateName string    `json:"candidateName"`
	JobTitle      string    `json:"jobTitle"`
	Status        Status    `json:"status"`
	VideoPath     *string   `json:"videoPath"`
	Segments      []Segment `json:"segments"`
}

func toAttemptResponse(a Attempt) attemptResponse {
	resp := attemptResponse{
		ID:            a.ID,
		CandidateName: a.CandidateName,
		JobTitle:      a.JobTitle,
		Status:        a.Status,
		Segments:      a.Segments,
	}
	if a.Segments == nil {
		resp.Segments = []Segment{}
	}
	if a.VideoPath != "" {
		vp := a.VideoPath
		resp.VideoPath = &vp
	}
	return resp
}

// CreateAttempt handles POST /attempts.
// Body: { "candidateName": "...", "jobTitle": "..." } (both optional).
func (h *Handler) CreateAttempt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CandidateName string `json:"candidateName"`
		JobTitle      string `json:"jobTitle"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.log.Debug("invalid attempt body", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	attempt := h.svc.CreateAttempt(body.CandidateName, body.JobTitle)
	h.log.Info("attempt created",
		slog.String("attempt_id", attempt.ID),
		slog.String("candidate", attempt.CandidateName))
	h.writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

// StartRecording handles POST /start-recording/{attempt_id}.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")
	if attemptID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	egressID, err := h.svc.StartRecording(r.Context(), attemptID)
	if err != nil {
		h.writeError(w, "start recording failed", err,
			slog.String("attempt_id", attemptID))
		return
	}

	h.log.Info("recording started",
		slog.String("attempt_id", attemptID),
		slog.String("egress_id", egressID))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "egressId": egressID})
}

// StopRecording handles POST /stop-recording/{attempt_id}.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")
	if attemptID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.svc.StopRecording(r.Context(), attemptID); err != nil {
		h.writeError(w, "stop recording failed", err,
			slog.String("attempt_id", attemptID))
		return
	}

	h.log.Info("recording stopped", slog.String("attempt_id", attemptID))
	if h.metrics != nil {
		h.metrics.IncAttemptsCompleted()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// UploadSegment handles POST /upload-segment/{candidate_id}.
// Multipart body with one "file" field.
func (h *Handler) UploadSegment(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "candidate_id")
	if candidateID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	file, header, err := h.formFile(w, r)
	if err != nil {
		return
	}
	defer file.Close()

	res, err := h.svc.UploadSegment(r.Context(), candidateID, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.writeError(w, "upload segment failed", err,
			slog.String("candidate_id", candidateID),
			slog.String("filename", header.Filename))
		if h.metrics != nil && errors.Is(err, ErrUploadFailed) {
			h.metrics.IncUploadErrors()
		}
		return
	}

	h.log.Debug("segment ingested",
		slog.String("candidate_id", candidateID),
		slog.Int("total_segments", res.TotalSegments))
	if h.metrics != nil {
		h.metrics.IncSegmentsIngested()
		h.metrics.ObserveSegmentBytes(float64(header.Size))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"segmentUrl":    res.SegmentURL,
		"totalSegments": res.TotalSegments,
		"playlistUrl":   res.PlaylistURL,
	})
}

// UploadFinal handles POST /upload-final/{candidate_id}.
func (h *Handler) UploadFinal(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "candidate_id")
	if candidateID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	file, header, err := h.formFile(w, r)
	if err != nil {
		return
	}
	defer file.Close()

	videoPath, err := h.svc.UploadFinal(r.Context(), candidateID, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.writeError(w, "upload final failed", err,
			slog.String("candidate_id", candidateID))
		if h.metrics != nil && errors.Is(err, ErrUploadFailed) {
			h.metrics.IncUploadErrors()
		}
		return
	}

	h.log.Info("final video uploaded",
		slog.String("candidate_id", candidateID),
		slog.String("video_path", videoPath))
	if h.metrics != nil {
		h.metrics.IncAttemptsCompleted()
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "videoPath": videoPath})
}

// ListSegments handles GET /segments/{candidate_id}.
func (h *Handler) ListSegments(w http.ResponseWriter, r *http.Request) {
	candidateID := chi.URLParam(r, "candidate_id")
	if candidateID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	segments, err := h.svc.ListSegments(r.Context(), candidateID)
	if err != nil {
		h.writeError(w, "list segments failed", err,
			slog.String("candidate_id", candidateID))
		return
	}
	if segments == nil {
		segments = []Segment{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"segments": segments})
}

// ActiveInterview handles GET /active-interview.
func (h *Handler) ActiveInterview(w http.ResponseWriter, r *http.Request) {
	attempt, err := h.svc.ActiveInterview()
	if err != nil {
		h.writeError(w, "active interview lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAttemptResponse(attempt))
}

// CreateRealtimeSession handles POST /realtime-session.
// Body: { "instructions": "..." }.
func (h *Handler) CreateRealtimeSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Instructions string `json:"instructions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Instructions == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	token, err := h.svc.CreateRealtimeSession(r.Context(), body.Instructions)
	if err != nil {
		h.log.Error("realtime session failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadGateway, map[string]any{"error": "realtime session unavailable"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// formFile extracts the single multipart "file" field, writing a 400 on
// malformed bodies.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.log.Debug("invalid multipart body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.log.Debug("missing file field", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return nil, nil, err
	}
	return file, header, nil
}

// writeError maps the failure taxonomy to HTTP statuses. Anything outside
// the taxonomy is logged and reported as a generic 500 without internal
// detail.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error, attrs ...slog.Attr) {
	status := http.StatusInternalServerError
	body := "internal error"

	switch {
	case errors.Is(err, ErrAttemptNotFound):
		status, body = http.StatusNotFound, "not found"
	case errors.Is(err, ErrNoActiveRecording):
		status, body = http.StatusBadRequest, "no active recording"
	case errors.Is(err, ErrAlreadyRecording):
		status, body = http.StatusConflict, "recording already in progress"
	case errors.Is(err, ErrUploadFailed):
		status, body = http.StatusBadGateway, "upload failed"
	case errors.Is(err, ErrRosterUnavailable):
		status, body = http.StatusServiceUnavailable, "roster unavailable"
	}

	attrs = append(attrs, slog.String("error", err.Error()))
	level := slog.LevelInfo
	if status == http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.log.LogAttrs(context.Background(), level, msg, attrs...)
	h.writeJSON(w, status, map[string]any{"success": false, "error": body})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", slog.String("error", err.Error()))
	}
}
