package incidents

import "sort"

// Workflow is one incident with its RCA steps in display order.
type Workflow struct {
	Incident Incident `json:"incident"`
	Steps    []Step   `json:"steps"`
}

// Aggregate groups steps under their incidents. Incidents keep their input
// order and are dropped when no step references them. Steps are sorted by
// step number; equal numbers keep their input order. Steps without an
// incident reference or a step number, and steps whose incident is not in
// incs, are left out.
func Aggregate(incs []Incident, steps []Step) []Workflow {
	byIncident := make(map[int64][]Step)
	for _, s := range steps {
		if s.IncidentID == nil || s.StepNumber == nil {
			continue
		}
		byIncident[*s.IncidentID] = append(byIncident[*s.IncidentID], s)
	}

	out := []Workflow{}
	for _, inc := range incs {
		group := byIncident[inc.ID]
		if len(group) == 0 {
			continue
		}
		sorted := make([]Step, len(group))
		copy(sorted, group)
		sort.SliceStable(sorted, func(i, j int) bool {
			return *sorted[i].StepNumber < *sorted[j].StepNumber
		})
		out = append(out, Workflow{Incident: inc, Steps: sorted})
	}
	return out
}
