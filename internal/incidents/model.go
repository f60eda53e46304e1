package incidents

import (
	"strconv"
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Status values are passed through as the backend sends them; the mixed case
// is what the API emits.
type Status string

const (
	StatusActive        Status = "ACTIVE"
	StatusResolving     Status = "RESOLVING"
	StatusInvestigating Status = "investigating"
	StatusEscalated     Status = "escalated"
)

type Incident struct {
	ID          int64      `json:"id"`
	IncidentID  string     `json:"incidentId"`
	Severity    Severity   `json:"severity"`
	Status      Status     `json:"status"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	CurrentStep int        `json:"currentStep"`
	TotalSteps  int        `json:"totalSteps"`
}

type StepStatus string

const (
	StepPending    StepStatus = "PENDING"
	StepInProgress StepStatus = "IN_PROGRESS"
	StepCompleted  StepStatus = "COMPLETED"
	StepFailed     StepStatus = "FAILED"
)

// Step is one RCA workflow stage. IncidentID and StepNumber are pointers so
// a record missing either can be told apart from a zero value.
type Step struct {
	ID         int64      `json:"id,omitempty"`
	IncidentID *int64     `json:"incidentId"`
	StepNumber *int       `json:"step"`
	Name       string     `json:"stepName"`
	Status     StepStatus `json:"status"`
	Confidence *float64   `json:"confidence,omitempty"`
	Duration   *float64   `json:"duration,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	Details    *string    `json:"details,omitempty"`
}

// ConfidenceLabel renders the confidence score, or "N/A" when absent.
func (s Step) ConfidenceLabel() string {
	if s.Confidence == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*s.Confidence, 'f', -1, 64) + "%"
}

// DurationLabel renders the duration in seconds, or "in progress" when absent.
func (s Step) DurationLabel() string {
	if s.Duration == nil {
		return "in progress"
	}
	return strconv.FormatFloat(*s.Duration, 'f', -1, 64) + "s"
}
