package events

import (
	"encoding/json"
	"sort"
)

// Type is the tag of a live event.
type Type string

const (
	TypeForceRefresh         Type = "force_refresh"
	TypeDashboardCleared     Type = "dashboard_cleared"
	TypeAllDataCleared       Type = "all_data_cleared"
	TypeMetricsUpdated       Type = "metrics_updated"
	TypeIncidentCreated      Type = "incident_created"
	TypeIncidentUpdated      Type = "incident_updated"
	TypeRCAWorkflowCreated   Type = "rca_workflow_created"
	TypeRCAWorkflowUpdated   Type = "rca_workflow_updated"
	TypeRCAWorkflowsUpdated  Type = "rca_workflows_updated"
	TypeActionCreated        Type = "action_created"
	TypeKnowledgeBaseUpdated Type = "knowledge_base_updated"
	TypeEscalationCreated    Type = "escalation_created"
	TypeEscalationUpdated    Type = "escalation_updated"
)

// Event is a push notification from the backend. Data is carried through
// untouched; routing only looks at Type.
type Event struct {
	Type Type            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Key names one cached dashboard resource.
type Key string

const (
	KeyMetrics       Key = "metrics"
	KeyIncidents     Key = "incidents"
	KeyActiveAlerts  Key = "active-alerts"
	KeyRecentActions Key = "recent-actions"
	KeyKnowledgeBase Key = "knowledge-base"
	KeyEscalations   Key = "escalations"
	KeyRCAWorkflows  Key = "rca-workflows"
)

// AllKeys returns the seven resource keys in a fixed order.
func AllKeys() []Key {
	return []Key{
		KeyMetrics,
		KeyIncidents,
		KeyActiveAlerts,
		KeyRecentActions,
		KeyKnowledgeBase,
		KeyEscalations,
		KeyRCAWorkflows,
	}
}

// KeySet is an unordered set of cache keys.
type KeySet map[Key]struct{}

func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Len() int { return len(s) }

// Sorted returns the keys in lexical order, for logs and deterministic iteration.
func (s KeySet) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s KeySet) clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}
