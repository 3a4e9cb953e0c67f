package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hoopcoach/shot-coach/internal/coach"
	"github.com/hoopcoach/shot-coach/internal/shot"
	"github.com/hoopcoach/shot-coach/internal/store"
)

type fakeStore struct {
	analysis *shot.Analysis

	started   []string
	completed []store.Outcome
	failed    []string
	failMsgs  []string

	lookupErr   error
	completeErr error
}

func (f *fakeStore) CreateClip(ctx context.Context, storageKey string, durationSeconds float64) (*shot.Clip, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetClip(ctx context.Context, id string) (*shot.Clip, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) CreateAnalysis(ctx context.Context, clipID string) (*shot.Analysis, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetAnalysis(ctx context.Context, id string) (*shot.Analysis, error) {
	return f.analysis, nil
}

func (f *fakeStore) LatestAnalysisForClip(ctx context.Context, clipID string) (*shot.Analysis, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.analysis, nil
}

func (f *fakeStore) StartAnalysis(ctx context.Context, id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeStore) CompleteAnalysis(ctx context.Context, id string, outcome store.Outcome) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, outcome)
	return nil
}

func (f *fakeStore) FailAnalysis(ctx context.Context, id string, errMsg string) error {
	f.failed = append(f.failed, id)
	f.failMsgs = append(f.failMsgs, errMsg)
	return nil
}

func (f *fakeStore) UpsertOverride(ctx context.Context, o *shot.Override) (*shot.Override, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) ListOverrides(ctx context.Context, analysisID string) ([]shot.Override, error) {
	return nil, nil
}

type fakeSigner struct {
	url string
	err error
}

func (f *fakeSigner) SignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return f.url, f.err
}

type fakeClassifier struct {
	call     *coach.ShotCall
	err      error
	gotVideo []byte
}

func (f *fakeClassifier) Classify(ctx context.Context, video []byte, mimeType string) (*coach.ShotCall, error) {
	f.gotVideo = video
	return f.call, f.err
}

const testToken = "worker-secret"

func postAnalyze(t *testing.T, h *Handler, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze_RejectsBadToken(t *testing.T) {
	st := &fakeStore{}
	h := NewHandler(st, &fakeSigner{}, &fakeClassifier{}, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": "wrong",
		"clip_id":       "c-1",
		"storage_key":   "k",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if len(st.started) != 0 {
		t.Error("unauthorized request must not touch the store")
	}
}

func TestAnalyze_RejectsMissingFields(t *testing.T) {
	h := NewHandler(&fakeStore{}, &fakeSigner{}, &fakeClassifier{}, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": testToken,
		"clip_id":       "c-1",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestAnalyze_NoAnalysisRow(t *testing.T) {
	h := NewHandler(&fakeStore{analysis: nil}, &fakeSigner{}, &fakeClassifier{}, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": testToken,
		"clip_id":       "c-1",
		"storage_key":   "k",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAnalyze_Success(t *testing.T) {
	video := []byte("fake-mp4-bytes")
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(video)
	}))
	defer storage.Close()

	st := &fakeStore{analysis: &shot.Analysis{ID: "a-1", ClipID: "c-1", Status: shot.StatusPending}}
	res := shot.ResultMake
	typ := shot.TypeMidRange
	cls := &fakeClassifier{call: &coach.ShotCall{
		MakeMiss:   &res,
		Range:      &typ,
		Confidence: 0.8,
		Tips:       []string{"Bend your knees.", "Follow through."},
	}}
	h := NewHandler(st, &fakeSigner{url: storage.URL}, cls, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": testToken,
		"clip_id":       "c-1",
		"storage_key":   "5b30ea2c-9f0f-4a9e-8c3a-000000000001/clip.mov",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	if !bytes.Equal(cls.gotVideo, video) {
		t.Error("classifier did not receive the downloaded clip bytes")
	}
	if len(st.started) != 1 || st.started[0] != "a-1" {
		t.Errorf("StartAnalysis calls = %v, want [a-1]", st.started)
	}
	if len(st.completed) != 1 {
		t.Fatalf("CompleteAnalysis calls = %d, want 1", len(st.completed))
	}
	if st.completed[0].TipsText != "Bend your knees.\nFollow through." {
		t.Errorf("stored tips = %q", st.completed[0].TipsText)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("status field = %v, want success", resp["status"])
	}
	if resp["analysis_id"] != "a-1" {
		t.Errorf("analysis_id = %v, want a-1", resp["analysis_id"])
	}
	if resp["shot_type"] != "mid_range" || resp["result"] != "make" {
		t.Errorf("classification fields = %v / %v", resp["shot_type"], resp["result"])
	}
	if _, ok := resp["elapsed_s"].(float64); !ok {
		t.Errorf("elapsed_s missing or not a number: %v", resp["elapsed_s"])
	}
}

func TestAnalyze_ClassifierFailureMarksAnalysisFailed(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer storage.Close()

	st := &fakeStore{analysis: &shot.Analysis{ID: "a-1", ClipID: "c-1", Status: shot.StatusPending}}
	cls := &fakeClassifier{err: errors.New("model did not return valid JSON")}
	h := NewHandler(st, &fakeSigner{url: storage.URL}, cls, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": testToken,
		"clip_id":       "c-1",
		"storage_key":   "k/clip.mov",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if len(st.failed) != 1 || st.failed[0] != "a-1" {
		t.Fatalf("FailAnalysis calls = %v, want [a-1]", st.failed)
	}
	if st.failMsgs[0] == "" {
		t.Error("failure must record an error message")
	}
}

func TestAnalyze_StorageErrorMarksAnalysisFailed(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer storage.Close()

	st := &fakeStore{analysis: &shot.Analysis{ID: "a-1", ClipID: "c-1", Status: shot.StatusPending}}
	h := NewHandler(st, &fakeSigner{url: storage.URL}, &fakeClassifier{}, testToken, nil)

	rec := postAnalyze(t, h, map[string]interface{}{
		"x_worker_auth": testToken,
		"clip_id":       "c-1",
		"storage_key":   "k/clip.mov",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if len(st.failed) != 1 {
		t.Fatalf("FailAnalysis calls = %d, want 1", len(st.failed))
	}
	want := fmt.Sprintf("storage returned status %d", http.StatusForbidden)
	if st.failMsgs[0] == "" || !bytes.Contains([]byte(st.failMsgs[0]), []byte(want)) {
		t.Errorf("failure message = %q, want it to mention %q", st.failMsgs[0], want)
	}
}
