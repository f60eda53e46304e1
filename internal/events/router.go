package events

// routes is the static dispatch table. Types missing from it route to nothing.
var routes = func() map[Type]KeySet {
	all := NewKeySet(AllKeys()...)
	return map[Type]KeySet{
		TypeForceRefresh:         all,
		TypeDashboardCleared:     all,
		TypeAllDataCleared:       all,
		TypeMetricsUpdated:       NewKeySet(KeyMetrics),
		TypeIncidentCreated:      NewKeySet(KeyIncidents, KeyActiveAlerts, KeyMetrics),
		TypeIncidentUpdated:      NewKeySet(KeyIncidents, KeyActiveAlerts, KeyMetrics),
		TypeRCAWorkflowUpdated:   NewKeySet(KeyIncidents, KeyRCAWorkflows),
		TypeRCAWorkflowCreated:   NewKeySet(KeyRCAWorkflows),
		TypeRCAWorkflowsUpdated:  NewKeySet(KeyRCAWorkflows),
		TypeActionCreated:        NewKeySet(KeyRecentActions),
		TypeKnowledgeBaseUpdated: NewKeySet(KeyKnowledgeBase),
		TypeEscalationCreated:    NewKeySet(KeyEscalations),
		TypeEscalationUpdated:    NewKeySet(KeyEscalations),
	}
}()

// Route returns the cache keys made stale by e. Unknown types yield an
// empty set. The returned set is owned by the caller.
func Route(e Event) KeySet {
	keys, ok := routes[e.Type]
	if !ok {
		return KeySet{}
	}
	return keys.clone()
}

// Known reports whether t is part of the routed vocabulary.
func Known(t Type) bool {
	_, ok := routes[t]
	return ok
}
