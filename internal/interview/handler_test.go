package interview

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, records ...RosterRecord) *chi.Mux {
	t.Helper()
	svc, _, _ := newTestService(t, records...)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(svc, log, nil)

	r := chi.NewRouter()
	r.Group(h.Routes)
	return r
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHandler_CreateAttempt(t *testing.T) {
	r := newTestRouter(t)

	b, _ := json.Marshal(map[string]string{"candidateName": "Asha", "jobTitle": "Mechanical Designer"})
	req := httptest.NewRequest(http.MethodPost, "/attempts", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec.Body)
	if resp["status"] != "PENDING" {
		t.Errorf("expected PENDING, got %v", resp["status"])
	}
	if resp["videoPath"] != nil {
		t.Errorf("videoPath should be explicit null, got %v", resp["videoPath"])
	}
	if segs, ok := resp["segments"].([]any); !ok || len(segs) != 0 {
		t.Errorf("segments should be an empty array, got %v", resp["segments"])
	}
}

func TestHandler_UploadSegment(t *testing.T) {
	r := newTestRouter(t, ashaRecord())

	body, contentType := multipartBody(t, "chunk0.webm", []byte("frame-data"))
	req := httptest.NewRequest(http.MethodPost, "/upload-segment/C-100", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON(t, rec.Body)
	if resp["success"] != true {
		t.Error("expected success true")
	}
	if resp["totalSegments"] != float64(1) {
		t.Errorf("expected totalSegments 1, got %v", resp["totalSegments"])
	}
	if resp["playlistUrl"] == "" || resp["segmentUrl"] == "" {
		t.Errorf("missing urls in response: %v", resp)
	}
}

func TestHandler_UploadSegment_unknown_candidate(t *testing.T) {
	r := newTestRouter(t, ashaRecord())

	body, contentType := multipartBody(t, "chunk0.webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload-segment/ZZZ", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown candidate, got %d", rec.Code)
	}
}

func TestHandler_UploadSegment_bad_body(t *testing.T) {
	r := newTestRouter(t, ashaRecord())

	req := httptest.NewRequest(http.MethodPost, "/upload-segment/C-100", bytes.NewReader([]byte("not multipart")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_UploadFinal(t *testing.T) {
	r := newTestRouter(t, ashaRecord())

	body, contentType := multipartBody(t, "full.webm", []byte("full-recording"))
	req := httptest.NewRequest(http.MethodPost, "/upload-final/C-100", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeJSON(t, rec.Body)
	if resp["success"] != true || resp["videoPath"] == "" {
		t.Errorf("unexpected response: %v", resp)
	}
}

func TestHandler_ListSegments(t *testing.T) {
	r := newTestRouter(t, ashaRecord())

	req := httptest.NewRequest(http.MethodGet, "/segments/C-100", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec.Body)
	if segs, ok := resp["segments"].([]any); !ok || len(segs) != 0 {
		t.Errorf("expected empty segments array, got %v", resp["segments"])
	}
}

func TestHandler_StartStopRecording(t *testing.T) {
	svc, _, _ := newTestService(t)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(svc, log, nil)
	r := chi.NewRouter()
	r.Group(h.Routes)

	attempt := svc.CreateAttempt("Asha", "Mechanical Designer")

	req := httptest.NewRequest(http.MethodPost, "/start-recording/"+attempt.ID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec.Body)
	if resp["egressId"] == "" || resp["success"] != true {
		t.Errorf("unexpected start response: %v", resp)
	}

	req = httptest.NewRequest(http.MethodPost, "/stop-recording/"+attempt.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: expected 200, got %d", rec.Code)
	}

	// Second stop has no active egress.
	req = httptest.NewRequest(http.MethodPost, "/stop-recording/"+attempt.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second stop: expected 400, got %d", rec.Code)
	}
}

func TestHandler_StartRecording_not_found(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/start-recording/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ActiveInterview(t *testing.T) {
	svc, _, _ := newTestService(t)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(svc, log, nil)
	r := chi.NewRouter()
	r.Group(h.Routes)

	req := httptest.NewRequest(http.MethodGet, "/active-interview", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no attempts, got %d", rec.Code)
	}

	attempt := svc.CreateAttempt("Asha", "Mechanical Designer")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/active-interview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec.Body)
	if resp["id"] != attempt.ID {
		t.Errorf("expected attempt %s, got %v", attempt.ID, resp["id"])
	}
}

func TestHandler_CreateRealtimeSession(t *testing.T) {
	r := newTestRouter(t)

	b, _ := json.Marshal(map[string]string{"instructions": "You are a technical interviewer."})
	req := httptest.NewRequest(http.MethodPost, "/realtime-session", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeJSON(t, rec.Body)
	if resp["token"] != "ek_test" {
		t.Errorf("expected broker token, got %v", resp["token"])
	}
}

func TestHandler_CreateRealtimeSession_missing_instructions(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/realtime-session", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
