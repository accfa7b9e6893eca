package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/opensurgery/pkg/compiler"
	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/export"
	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/render/nodelink"
	"github.com/matzehuels/opensurgery/pkg/store"
)

// CompileResponse is the body returned by POST /v1/compile.
type CompileResponse struct {
	RunID    string           `json:"run_id,omitempty"`
	CacheHit bool             `json:"cache_hit"`
	Slices   int              `json:"slices"`
	Stats    compiler.Stats   `json:"stats"`
	Estimate *estimate.Result `json:"estimate,omitempty"`
	// Artifacts holds text formats verbatim and json.zst base64-encoded.
	Artifacts map[string]string `json:"artifacts"`
}

// EstimateRequest is the body of POST /v1/estimate.
type EstimateRequest struct {
	Params     estimate.Params     `json:"params"`
	Experiment estimate.Experiment `json:"experiment"`
}

// EstimateResponse is the body returned by POST /v1/estimate.
type EstimateResponse struct {
	RunID    string          `json:"run_id,omitempty"`
	CacheHit bool            `json:"cache_hit"`
	Result   estimate.Result `json:"result"`
	Box      *estimate.Box   `json:"box,omitempty"`
}

// RenderRequest is the body of POST /v1/render.
type RenderRequest struct {
	Document json.RawMessage `json:"document"`
	Slice    int             `json:"slice"`
	Rows     int             `json:"rows,omitempty"`
	Cols     int             `json:"cols,omitempty"`
	Detailed bool            `json:"detailed,omitempty"`
	// Format is dot or svg.
	Format string `json:"format"`
}

func decode(r *http.Request, w http.ResponseWriter, v any, what string) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err, what)
	}
	if _, err := dec.Token(); err != io.EOF {
		return oserrors.New(oserrors.ErrCodeInvalidInput, "decode %s: trailing data", what)
	}
	return nil
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := decode(r, w, &opts, "compile request"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, oserrors.Wrap(oserrors.ErrCodeInvalidInput, err, "invalid options"))
		return
	}
	opts.Logger = s.logger

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	c := res.Compiled
	resp := CompileResponse{
		CacheHit:  res.CacheInfo.CompileHit,
		Slices:    c.Slices(),
		Stats:     c.Stats,
		Estimate:  c.Estimate,
		Artifacts: make(map[string]string, len(res.Artifacts)),
	}
	for format, data := range res.Artifacts {
		if format == pipeline.FormatJSONCompressed {
			resp.Artifacts[format] = base64.StdEncoding.EncodeToString(data)
		} else {
			resp.Artifacts[format] = string(data)
		}
	}

	summary := fmt.Sprintf("%d instructions, %dx%d grid, %d slices",
		c.Stats.Instructions, c.Stats.Rows, c.Stats.Cols, c.Slices())
	resp.RunID = s.record(r, store.KindCompile, c.StreamHash, opts.Stream, summary, c.Stats)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := decode(r, w, &req, "estimate request"); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, hit, err := s.runner.EstimateWithCacheInfo(r.Context(), req.Params, req.Experiment, false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := EstimateResponse{CacheHit: hit, Result: res}
	if box, err := res.BoxInPatchUnits(); err == nil {
		resp.Box = &box
	}

	input, _ := json.Marshal(req.Experiment)
	summary := fmt.Sprintf("footprint %d, t-count %d: %s levels, d=%d, %d qubits",
		req.Experiment.Footprint, res.TCount, res.LevelsLabel(), res.Distance, res.PhysicalQubits)
	resp.RunID = s.record(r, store.KindEstimate, "", string(input), summary, res)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.SweepOptions
	if err := decode(r, w, &opts, "sweep request"); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		s.writeError(w, r, oserrors.Wrap(oserrors.ErrCodeInvalidInput, err, "invalid sweep"))
		return
	}

	res, err := s.runner.Sweep(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	input, _ := json.Marshal(opts)
	s.record(r, store.KindSweep, "", string(input), fmt.Sprintf("%s sweep, %d points", opts.Kind, res.Len()), res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decode(r, w, &req, "render request"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := export.Validate(req.Document); err != nil {
		s.writeError(w, r, err)
		return
	}
	doc, err := export.ReadJSON(bytes.NewReader(req.Document))
	if err != nil {
		s.writeError(w, r, badRequest(err, "document"))
		return
	}

	slice := doc.Select(export.Options{SliceOnly: true, Slice: req.Slice, IncludeNoop: true})
	dot := nodelink.ToDOT(slice, nodelink.Options{
		Rows:     req.Rows,
		Cols:     req.Cols,
		Detailed: req.Detailed,
		Title:    fmt.Sprintf("t = %d / %d", req.Slice, doc.Extent()),
	})

	switch req.Format {
	case "", pipeline.FormatDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
	case pipeline.FormatSVG:
		svg, err := nodelink.RenderSVG(r.Context(), dot)
		if err != nil {
			s.writeError(w, r, oserrors.Wrap(oserrors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		s.writeError(w, r, oserrors.New(oserrors.ErrCodeInvalidInput, "render format must be dot or svg, got %q", req.Format))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Kind: store.Kind(r.URL.Query().Get("kind"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, oserrors.New(oserrors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, oserrors.Wrap(oserrors.ErrCodeStorage, err, "list runs"))
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := oserrors.ValidateRunID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	_, _ = w.Write(export.Schema())
}

// record saves a run and returns its id, or "" when runs are not kept.
// Store failures are logged and do not fail the request.
func (s *Server) record(r *http.Request, kind store.Kind, inputHash, input, summary string, result any) string {
	if _, ok := s.store.(store.NullStore); ok {
		return ""
	}
	run, err := store.NewRun(kind, inputHash, input, summary, result)
	if err != nil {
		s.logger.Warn("record run", "kind", kind, "err", err)
		return ""
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		s.logger.Warn("record run", "kind", kind, "err", err)
		return ""
	}
	return run.ID
}
