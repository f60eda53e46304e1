package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdash/internal/logging"
)

type fakeSource struct {
	incidents []Incident
	steps     []Step
	err       error
}

func (f *fakeSource) Incidents(ctx context.Context) ([]Incident, error) {
	return f.incidents, f.err
}

func (f *fakeSource) Steps(ctx context.Context) ([]Step, error) {
	return f.steps, f.err
}

func TestListHandlerFilters(t *testing.T) {
	src := &fakeSource{incidents: []Incident{
		{ID: 1, IncidentID: "INC-1", Status: StatusActive, Severity: SeverityCritical},
		{ID: 2, IncidentID: "INC-2", Status: StatusResolving, Severity: SeverityHigh},
		{ID: 3, IncidentID: "INC-3", Status: StatusActive, Severity: SeverityMedium},
	}}
	h := &ListHandler{Source: src, Logger: logging.Discard()}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/incidents?status=ACTIVE", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []Incident
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "INC-1", got[0].IncidentID)
	assert.Equal(t, "INC-3", got[1].IncidentID)
}

func TestWorkflowHandler(t *testing.T) {
	src := &fakeSource{
		incidents: []Incident{{ID: 1, IncidentID: "INC-2024-001"}, {ID: 2, IncidentID: "INC-2024-002"}},
		steps:     []Step{step(1, 2, "analyze"), step(1, 1, "collect")},
	}
	h := &WorkflowHandler{Source: src, Logger: logging.Discard()}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rca-workflows", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []Workflow
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "INC-2024-001", got[0].Incident.IncidentID)
	assert.Equal(t, []string{"collect", "analyze"}, stepNames(got[0].Steps))
}

func TestHandlersUpstreamError(t *testing.T) {
	src := &fakeSource{err: errors.New("api down")}
	for _, h := range []http.Handler{
		&ListHandler{Source: src, Logger: logging.Discard()},
		&WorkflowHandler{Source: src, Logger: logging.Discard()},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusBadGateway, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStepLabels(t *testing.T) {
	var s Step
	assert.Equal(t, "N/A", s.ConfidenceLabel())
	assert.Equal(t, "in progress", s.DurationLabel())

	conf, dur := 87.5, 12.0
	s.Confidence, s.Duration = &conf, &dur
	assert.Equal(t, "87.5%", s.ConfidenceLabel())
	assert.Equal(t, "12s", s.DurationLabel())
}

func TestStepDecodesMissingKeysAsAbsent(t *testing.T) {
	var s Step
	require.NoError(t, json.Unmarshal([]byte(`{"stepName":"collect","status":"COMPLETED"}`), &s))
	assert.Nil(t, s.IncidentID)
	assert.Nil(t, s.StepNumber)
	assert.Equal(t, StepCompleted, s.Status)
}
