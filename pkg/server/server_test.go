package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/report-atlas/pkg/models/api"
	"github.com/de-tools/report-atlas/pkg/report/metrics"
	"github.com/de-tools/report-atlas/pkg/services/config"
	"github.com/de-tools/report-atlas/pkg/services/registry"
	"github.com/de-tools/report-atlas/pkg/services/reporting"
	"github.com/de-tools/report-atlas/pkg/services/source"
)

func TestWebAPI_Endpoints(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	catalog := registry.NewCatalog()
	require.NoError(t, catalog.Register(config.Definition{
		Name:       "traffic",
		Dimensions: []string{"region"},
		Measures:   map[string]metrics.MeasureSpec{"views": {Reducer: "sum"}},
		Report:     map[string]any{"groupers": []any{"region"}},
	}))

	router := ConfigureRouter(logger, Dependencies{
		Catalog: catalog,
		Reports: reporting.NewService(catalog, nil, source.NewDefaultRegistry(), nil),
	})
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name:           "ListDefinitions",
			method:         http.MethodGet,
			path:           "/api/v1/definitions",
			expectedStatus: http.StatusOK,
			expected:       []api.Definition{{Name: "traffic", Dimensions: []string{"region"}, Measures: []string{"views"}}},
			parseResponse:  unmarshalResponse[[]api.Definition](),
		},
		{
			name:           "BuildReport",
			method:         http.MethodPost,
			path:           "/api/v1/definitions/traffic/reports",
			body:           `{"records": [{"region": "west", "views": 7}, {"region": "east", "views": 15}]}`,
			expectedStatus: http.StatusOK,
			expected: api.Report{
				Definition: "traffic",
				Groupers:   []string{"region"},
				Columns:    []string{"region", "views"},
				Shape:      api.ShapeFlat,
				Rows: []interface{}{
					map[string]interface{}{"region": "east", "views": 15.0},
					map[string]interface{}{"region": "west", "views": 7.0},
				},
			},
			parseResponse: unmarshalResponse[api.Report](),
		},
		{
			name:           "BuildReport_UnknownDefinition",
			method:         http.MethodPost,
			path:           "/api/v1/definitions/sales/reports",
			body:           `{"records": []}`,
			expectedStatus: http.StatusNotFound,
			expected:       api.Error{Error: "definition not found: sales", Kind: "not_found"},
			parseResponse:  unmarshalResponse[api.Error](),
		},
		{
			name:           "UnknownRoute",
			method:         http.MethodGet,
			path:           "/api/v1/workspaces",
			expectedStatus: http.StatusNotFound,
			expected:       "404 page not found\n",
			parseResponse: func(data []byte) (interface{}, error) {
				return string(data), nil
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")

			assert.Equal(t, tc.expected, actual)
		})
	}

	testServer.Close()
	assert.Contains(t, logs.String(), `"path":"/api/v1/definitions"`)
	assert.Contains(t, logs.String(), `"status":200`)
}

func TestWebAPI_StartStopsOnCancel(t *testing.T) {
	api := NewWebAPI(zerolog.Nop(), Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- api.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var response T
		err := json.Unmarshal(data, &response)
		return response, err
	}
}
