package adapters

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/de-tools/report-atlas/pkg/models/domain"
	"github.com/de-tools/report-atlas/pkg/services/registry"
)

func TestMapErrorDomainToApi(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		field  string
	}{
		{
			name:   "unknown definition",
			err:    fmt.Errorf("%w: sales", registry.ErrDefinitionNotFound),
			status: http.StatusNotFound,
			kind:   "not_found",
		},
		{
			name:   "configuration",
			err:    fmt.Errorf("build: %w", &domain.ConfigurationError{Field: "groupers", Reason: "unknown"}),
			status: http.StatusBadRequest,
			kind:   "configuration",
			field:  "groupers",
		},
		{
			name:   "data",
			err:    &domain.DataError{Field: "views", Reason: "not a number"},
			status: http.StatusUnprocessableEntity,
			kind:   "data",
			field:  "views",
		},
		{
			name:   "calculation",
			err:    &domain.CalculationError{Name: "share", Key: "east", Err: errors.New("boom")},
			status: http.StatusUnprocessableEntity,
			kind:   "calculation",
			field:  "share",
		},
		{
			name:   "anything else",
			err:    errors.New("disk full"),
			status: http.StatusInternalServerError,
			kind:   "internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := MapErrorDomainToApi(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.field, body.Field)
			assert.Equal(t, tt.err.Error(), body.Error)
		})
	}
}

func TestMapRowsDomainToApi(t *testing.T) {
	row := domain.NewRow([]string{"region"}, []domain.Value{domain.StringValue("east")}).
		With("views", domain.NumberValue(15))

	assert.Equal(t, []map[string]any{{"region": "east", "views": 15.0}}, MapRowsDomainToApi([]domain.Row{row}))
	assert.Equal(t,
		map[string]map[string]any{"east": {"region": "east", "views": 15.0}},
		MapHashedDomainToApi(map[string]domain.Row{"east": row}))
}
