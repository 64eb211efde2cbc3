package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drocsid/core/metrics"
	"drocsid/models"
)

func createTestRouter(report models.StatusReport) (*mux.Router, *MockStatusSource) {
	source := &MockStatusSource{}
	source.On("Status").Return(report)

	router := mux.NewRouter()
	NewStatusHandler(source).SetupEndpoints(router)
	return router, source
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		expected int
	}{
		{name: "connected", state: "connected", expected: http.StatusOK},
		{name: "reconnecting", state: "reconnecting", expected: http.StatusServiceUnavailable},
		{name: "idle", state: "idle", expected: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := createTestRouter(models.StatusReport{Gateway: models.GatewayReport{State: tt.state}})

			rec := serve(router, http.MethodGet, "/health")

			assert.Equal(t, tt.expected, rec.Code)
			assert.JSONEq(t, `{"status":"`+tt.state+`"}`, rec.Body.String())
		})
	}
}

func TestHandleState(t *testing.T) {
	report := models.StatusReport{
		Gateway:       models.GatewayReport{State: "connected", ConnectionID: "conn-1", Attempt: 0},
		Store:         models.StoreStats{Channels: 4, CachedChannels: []string{"c1"}, CachedMessages: 12},
		Status:        models.PresenceIdle,
		ActiveChannel: "c1",
		Sessions:      2,
	}
	router, source := createTestRouter(report)

	rec := serve(router, http.MethodGet, "/state")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got models.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, report, got)
	source.AssertExpectations(t)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := createTestRouter(models.StatusReport{})
	metrics.GatewayConnects.Inc()

	rec := serve(router, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drocsid_gateway_connects_total")
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := createTestRouter(models.StatusReport{})
	rec := serve(router, http.MethodPost, "/state")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
