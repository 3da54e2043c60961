package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/segmentio/encoding/json"
)

// RunState of a daily settlement batch
type RunState string

const (
	RunStatePending        RunState = "PENDING"
	RunStateRunning        RunState = "RUNNING"
	RunStateCompleted      RunState = "COMPLETED"
	RunStatePartialFailure RunState = "PARTIAL_FAILURE"
)

func (s RunState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s RunState) IsTerminal() bool {
	return s == RunStateCompleted || s == RunStatePartialFailure
}

// StepName identifies one step of the daily batch
type StepName string

const (
	StepTimingReset      StepName = "timing_reset"
	StepGuessClear       StepName = "guess_clear"
	StepResultClear      StepName = "result_clear"
	StepGlobalSnapshot   StepName = "global_snapshot"
	StepAccountSnapshots StepName = "account_snapshots"
	StepDisplaySync      StepName = "display_sync"
)

// Steps in execution order
var Steps = []StepName{
	StepTimingReset,
	StepGuessClear,
	StepResultClear,
	StepGlobalSnapshot,
	StepAccountSnapshots,
	StepDisplaySync,
}

func (s StepName) String() string {
	return string(s)
}

// IsValid reports whether s is one of the batch steps
func (s StepName) IsValid() bool {
	for _, step := range Steps {
		if step == s {
			return true
		}
	}
	return false
}

// StepStatus of an executed step
type StepStatus string

const (
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
)

// StepOutcome is the record returned by every scheduled entry point
type StepOutcome struct {
	Step       StepName   `json:"step"`
	Day        string     `json:"day"`
	Status     StepStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	Affected   int64      `json:"affected"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

func (o StepOutcome) Succeeded() bool {
	return o.Status == StepStatusSucceeded
}

// SettlementRun is persisted per day for operator inspection
type SettlementRun struct {
	Day         string         `gorm:"column:day;primary_key" json:"day"`
	State       RunState       `gorm:"column:state;not null" json:"state"`
	FailedSteps pq.StringArray `gorm:"column:failed_steps;type:varchar[]" json:"failed_steps"`
	Outcomes    string         `gorm:"column:outcomes;type:jsonb" json:"-"`
	StartedAt   time.Time      `gorm:"column:started_at" json:"started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at"`
}

func (SettlementRun) TableName() string {
	return "settlement_runs"
}

// NewSettlementRun starts a run record in PENDING
func NewSettlementRun(day string, startedAt time.Time) *SettlementRun {
	return &SettlementRun{
		Day:         day,
		State:       RunStatePending,
		FailedSteps: pq.StringArray{},
		Outcomes:    "[]",
		StartedAt:   startedAt,
	}
}

// SetOutcomes stores the step outcomes and derives the failed step list
func (r *SettlementRun) SetOutcomes(outcomes []StepOutcome) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	r.Outcomes = string(data)
	failed := pq.StringArray{}
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed = append(failed, o.Step.String())
		}
	}
	r.FailedSteps = failed
	return nil
}

// GetOutcomes decodes the stored step outcomes
func (r *SettlementRun) GetOutcomes() ([]StepOutcome, error) {
	outcomes := []StepOutcome{}
	if r.Outcomes == "" {
		return outcomes, nil
	}
	err := json.Unmarshal([]byte(r.Outcomes), &outcomes)
	return outcomes, err
}

// SettlementRunView is the JSON shape of a run with decoded outcomes
type SettlementRunView struct {
	*SettlementRun
	Steps []StepOutcome `json:"steps"`
}
