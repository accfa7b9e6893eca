package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/store"
)

const injectionStream = "INIT 4\nNEED A\nMZZ A 0\nMX A\n"

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(pipeline.NewRunner(nil, nil, nil), st, nil), st
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if h := decodeBody[health](t, rec); h.Status != "ok" || h.Build.Version == "" {
		t.Errorf("healthz = %+v", h)
	}
}

func TestCompileAndFetchRun(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/compile", map[string]any{
		"stream":             injectionStream,
		"size_from_estimate": false,
		"formats":            []string{"json", "dot"},
		"slice":              10,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody[CompileResponse](t, rec)
	if resp.Slices != 13 {
		t.Errorf("Slices = %d, want 13", resp.Slices)
	}
	if resp.RunID == "" {
		t.Fatal("RunID should be set")
	}
	if !strings.Contains(resp.Artifacts["dot"], "digraph") {
		t.Errorf("dot artifact = %q", resp.Artifacts["dot"])
	}

	rec = do(t, s, http.MethodGet, "/v1/runs/"+resp.RunID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET run status = %d, body %s", rec.Code, rec.Body)
	}
	run := decodeBody[store.Run](t, rec)
	if run.Kind != store.KindCompile || run.Input != injectionStream {
		t.Errorf("run = %+v", run)
	}

	rec = do(t, s, http.MethodGet, "/v1/runs?kind=compile", nil)
	list := decodeBody[struct{ Runs []store.Run }](t, rec)
	if len(list.Runs) != 1 {
		t.Errorf("runs = %d, want 1", len(list.Runs))
	}
}

func TestCompileErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   oserrors.Code
	}{
		{"malformed json", `{"stream":`, http.StatusBadRequest, oserrors.ErrCodeInvalidInput},
		{"unknown field", `{"stream":"INIT 1","bogus":1}`, http.StatusBadRequest, oserrors.ErrCodeInvalidInput},
		{"empty stream", map[string]any{"stream": ""}, http.StatusBadRequest, oserrors.ErrCodeInvalidInput},
		{"bad opcode", map[string]any{"stream": "INIT 2\nCNOT 0 1\n"}, http.StatusBadRequest, oserrors.ErrCodeInvalidInstruction},
		{"liveness", map[string]any{"stream": "INIT 2\nMX A\n", "size_from_estimate": false}, http.StatusUnprocessableEntity, oserrors.ErrCodeLiveness},
		{"huge init", map[string]any{"stream": "INIT 9223372036854775807\n"}, http.StatusUnprocessableEntity, oserrors.ErrCodeSizing},
		{"huge block", map[string]any{
			"stream": "INIT 4\nNEED A\n",
			"block":  map[string]int{"rows": 4, "cols": 8, "depth": 1 << 50},
		}, http.StatusBadRequest, oserrors.ErrCodeInvalidInput},
		{"huge max rows", map[string]any{"stream": "INIT 4\n", "max_rows": 1 << 40}, http.StatusBadRequest, oserrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/v1/compile", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
			resp := decodeBody[errorResponse](t, rec)
			if resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
			if tt.code == oserrors.ErrCodeLiveness && !slices.Contains(resp.Error.Patches, "A") {
				t.Errorf("patches = %v, want the magic state", resp.Error.Patches)
			}
		})
	}
}

func TestEstimate(t *testing.T) {
	s, _ := newTestServer(t)

	body := map[string]any{"experiment": map[string]any{"footprint": 100, "t_count": 1000}}
	rec := do(t, s, http.MethodPost, "/v1/estimate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeBody[EstimateResponse](t, rec)
	if resp.Result.Levels != 2 || resp.Result.Distance != 17 {
		t.Errorf("result = %+v, want 2 levels at d=17", resp.Result)
	}
	if resp.Box == nil {
		t.Error("Box should be set for a feasible estimate")
	}

	rec = do(t, s, http.MethodPost, "/v1/estimate", map[string]any{"experiment": map[string]any{"footprint": 0, "t_count": 1}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid experiment status = %d, want 400", rec.Code)
	}
}

func TestSweep(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/v1/sweep", map[string]any{"kind": "tcount", "points": 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decodeBody[pipeline.SweepResult](t, rec)
	if len(res.TCount) != 4 {
		t.Errorf("points = %d, want 4", len(res.TCount))
	}

	rec = do(t, s, http.MethodPost, "/v1/sweep", map[string]any{"kind": "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d, want 400", rec.Code)
	}
}

func TestRender(t *testing.T) {
	s, _ := newTestServer(t)
	doc := `{"nodes":[{"id":0,"fy":0,"fx":0,"fz":0,"c":"red","op":1,"s":63,"d":2}],"links":[]}`

	rec := do(t, s, http.MethodPost, "/v1/render", `{"document":`+doc+`,"slice":0,"rows":2,"cols":2}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `c0_0 [fillcolor="red", label="MX", penwidth=3]`) {
		t.Errorf("DOT missing decorated cell:\n%s", rec.Body)
	}

	bad := `{"nodes":[{"id":0,"fy":0,"fx":0,"fz":0,"c":"red","op":1,"s":99}],"links":[]}`
	rec = do(t, s, http.MethodPost, "/v1/render", `{"document":`+bad+`}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid document status = %d, want 400", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/v1/render", `{"document":`+doc+`,"format":"png"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("png status = %d, want 400", rec.Code)
	}
}

func TestGetRunErrors(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/runs/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/v1/runs/00000000-0000-0000-0000-000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/v1/runs?limit=-1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestSchema(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/v1/schema", nil)
	if !strings.Contains(rec.Body.String(), "layout.schema.json") {
		t.Error("schema body missing $id")
	}
}

func TestNullStoreOmitsRunID(t *testing.T) {
	s := New(pipeline.NewRunner(nil, nil, nil), nil, nil)
	rec := do(t, s, http.MethodPost, "/v1/estimate", map[string]any{"experiment": map[string]any{"footprint": 10, "t_count": 10}})
	resp := decodeBody[EstimateResponse](t, rec)
	if resp.RunID != "" {
		t.Errorf("RunID = %q, want empty without a store", resp.RunID)
	}
}

func TestServeShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := New(pipeline.NewRunner(nil, nil, nil), nil, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{oserrors.New(oserrors.ErrCodeRouting, "x"), http.StatusUnprocessableEntity},
		{oserrors.New(oserrors.ErrCodeInvalidName, "x"), http.StatusBadRequest},
		{oserrors.New(oserrors.ErrCodeUnsupported, "x"), http.StatusNotImplemented},
		{store.ErrNotFound, http.StatusNotFound},
		{context.Canceled, http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Errorf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
