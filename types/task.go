package types

import "time"

// TaskFrequency controls how far ahead a new task is due.
type TaskFrequency string

const (
	FrequencyDaily   TaskFrequency = "daily"
	FrequencyWeekly  TaskFrequency = "weekly"
	FrequencyMonthly TaskFrequency = "monthly"
)

// DueFrom returns the due date for a task created at createdAt, or nil
// when the frequency does not imply one.
func (f TaskFrequency) DueFrom(createdAt time.Time) *time.Time {
	var due time.Time
	switch f {
	case FrequencyDaily:
		due = createdAt.AddDate(0, 0, 1)
	case FrequencyWeekly:
		due = createdAt.AddDate(0, 0, 7)
	case FrequencyMonthly:
		due = createdAt.AddDate(0, 0, 30)
	default:
		return nil
	}
	return &due
}

// Task is a unit of work assigned to an operator.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// ClientID optionally ties the task to a client.
	ClientID *int `json:"client_id,omitempty" db:"client_id"`

	// OperatorID is the operator the task is assigned to.
	OperatorID int `json:"operator_id" db:"operator_id"`

	// Status is a free-form workflow state, e.g. "pending" or "done".
	Status string `json:"status" db:"status"`

	// Kind is the task category.
	Kind string `json:"kind" db:"kind"`

	Description string        `json:"description,omitempty" db:"description"`
	Frequency   TaskFrequency `json:"frequency,omitempty" db:"frequency"`
	Logistics   string        `json:"logistics,omitempty" db:"logistics"`

	// CreatedAt is set by the server when the task is created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// DueAt is derived from Frequency at creation time.
	DueAt *time.Time `json:"due_at,omitempty" db:"due_at"`
}
