package adapters

import (
	"errors"
	"net/http"

	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/registry"
)

func MapDefinitionDomainToApi(entry registry.Entry) api.Definition {
	dims := entry.Metrics.GrouperNames()
	if dims == nil {
		dims = []string{}
	}
	return api.Definition{
		Name:       entry.Definition.Name,
		Dimensions: dims,
		Measures:   entry.Metrics.MeasureNames(),
	}
}

// MapErrorDomainToApi picks the HTTP status for a report error.
func MapErrorDomainToApi(err error) (int, api.Error) {
	var (
		cfgErr  *domain.ConfigurationError
		dataErr *domain.DataError
		calcErr *domain.CalculationError
	)
	switch {
	case errors.Is(err, registry.ErrDefinitionNotFound):
		return http.StatusNotFound, api.Error{Error: err.Error(), Kind: "not_found"}
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest, api.Error{Error: err.Error(), Kind: "configuration", Field: cfgErr.Field}
	case errors.As(err, &dataErr):
		return http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Kind: "data", Field: dataErr.Field}
	case errors.As(err, &calcErr):
		return http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Kind: "calculation", Field: calcErr.Name}
	default:
		return http.StatusInternalServerError, api.Error{Error: err.Error(), Kind: "internal"}
	}
}

// MapRowsDomainToApi flattens rows into plain maps.
func MapRowsDomainToApi(rows []domain.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = row.Flat()
	}
	return out
}

// MapHashedDomainToApi flattens rows keyed by their hash key.
func MapHashedDomainToApi(rows map[string]domain.Row) map[string]map[string]any {
	out := make(map[string]map[string]any, len(rows))
	for k, row := range rows {
		out[k] = row.Flat()
	}
	return out
}
