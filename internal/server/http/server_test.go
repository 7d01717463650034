package httpserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	cfgpkg "github.com/sudhishp/kestrel/internal/config"
	"github.com/sudhishp/kestrel/internal/runtime"
)

func newServerForTest(t *testing.T) (*Server, *runtime.Runtime) {
	t.Helper()
	dir := t.TempDir()
	cfg := cfgpkg.Default()
	cfg.DataDir = dir
	rt, err := runtime.Open(runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { rt.Close() })
	return New(rt), rt
}

func TestHealthHandler(t *testing.T) {
	s, _ := newServerForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestAddAndGetHandlers(t *testing.T) {
	s, _ := newServerForTest(t)

	addBody, _ := json.Marshal(map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("hello"))})
	req := httptest.NewRequest(http.MethodPost, "/v1/queues/jobs/add", bytes.NewReader(addBody))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("add status: %d body=%s", w.Code, w.Body.String())
	}

	getBody, _ := json.Marshal(map[string]any{})
	req = httptest.NewRequest(http.MethodPost, "/v1/queues/jobs/get", bytes.NewReader(getBody))
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status: %d body=%s", w.Code, w.Body.String())
	}
	var resp getResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Found || string(resp.Data) != "hello" {
		t.Fatalf("unexpected get response: %+v", resp)
	}
}

func TestDeleteHandler(t *testing.T) {
	s, _ := newServerForTest(t)

	addBody, _ := json.Marshal(map[string]any{"data": base64.StdEncoding.EncodeToString([]byte("x"))})
	req := httptest.NewRequest(http.MethodPost, "/v1/queues/jobs/add", bytes.NewReader(addBody))
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("add status: %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/queues/jobs", nil)
	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status: %d", w.Code)
	}
}

func TestSnapshotHandler(t *testing.T) {
	s, _ := newServerForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/snapshot", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

type getResp struct {
	Found       bool   `json:"found"`
	Data        []byte `json:"data,omitempty"`
	AddedAtMs   int64  `json:"addedAtMs,omitempty"`
	ExpiresAtMs int64  `json:"expiresAtMs,omitempty"`
	Xid         string `json:"xid,omitempty"`
}
