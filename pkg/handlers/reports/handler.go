package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/report-atlas/pkg/adapters"
	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/report"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/reporting"
)

const maxBodyBytes = 32 << 20

type Handler struct {
	catalog registry.Catalog
	reports reporting.Service
}

func NewHandler(catalog registry.Catalog, reports reporting.Service) *Handler {
	return &Handler{
		catalog: catalog,
		reports: reports,
	}
}

func (h *Handler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := make([]api.Definition, 0)
	for _, name := range h.catalog.Names() {
		entry, err := h.catalog.Get(name)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		response = append(response, adapters.MapDefinitionDomainToApi(*entry))
	}

	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) BuildReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "definition")
	logger := zerolog.Ctx(ctx).With().Str("definition", name).Logger()
	ctx = logger.WithContext(ctx)

	shape := api.Shape(r.URL.Query().Get("shape"))
	if shape == "" {
		shape = api.ShapeFlat
	}
	if shape != api.ShapeFlat && shape != api.ShapeNested && shape != api.ShapeHashed {
		http.Error(w, "invalid 'shape'. Expected one of: flat, nested, hashed", http.StatusBadRequest)
		return
	}

	var req api.ReportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	rep, err := h.build(ctx, name, req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	response := api.Report{
		Definition: name,
		Groupers:   rep.GrouperNames(),
		Columns:    rep.Columns(),
		Shape:      shape,
	}

	switch shape {
	case api.ShapeNested:
		response.Rows, err = rep.NestedData(ctx)
	case api.ShapeHashed:
		hashed, hashErr := rep.HashedData(ctx)
		response.Rows, err = adapters.MapHashedDomainToApi(hashed), hashErr
	default:
		response.Rows, err = rep.FlatData(ctx)
	}
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if r.URL.Query().Get("total") == "true" {
		totals, err := rep.TotalData(ctx)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		response.Total = adapters.MapRowsDomainToApi(totals)
	}

	writeJSON(ctx, w, http.StatusOK, response)
}

// build constructs the parent and supplement reports before the report
// that references them.
func (h *Handler) build(ctx context.Context, name string, req api.ReportRequest) (*report.Report, error) {
	params := withRecords(req.ReportInput)

	if req.Parent != nil {
		parent, err := h.reports.Build(ctx, name, withRecords(*req.Parent))
		if err != nil {
			return nil, fmt.Errorf("parent report: %w", err)
		}
		params["parent_report"] = parent
	}

	if len(req.Supplements) > 0 {
		supplements := make(map[string]any, len(req.Supplements))
		for sup, in := range req.Supplements {
			built, err := h.reports.Build(ctx, name, withRecords(in))
			if err != nil {
				return nil, fmt.Errorf("supplement %s: %w", sup, err)
			}
			supplements[sup] = built
		}
		params["supplements"] = supplements
	}

	return h.reports.Build(ctx, name, params)
}

func withRecords(in api.ReportInput) map[string]any {
	params := maps.Clone(in.Params)
	if params == nil {
		params = make(map[string]any)
	}
	if in.Records != nil {
		params["raw_data"] = in.Records
	}
	return params
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := adapters.MapErrorDomainToApi(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to build report")
	} else {
		zerolog.Ctx(ctx).Debug().Err(err).Int("status", status).Msg("report request rejected")
	}
	writeJSON(ctx, w, status, body)
}

// writeJSON encodes before writing the status so an unencodable body turns
// into a 500 instead of a truncated 200.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to write response")
	}
}
