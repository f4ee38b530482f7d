package types

import "time"

// Operator is a farm worker that tasks are assigned to.
type Operator struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Shift     string    `json:"shift" db:"shift"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
