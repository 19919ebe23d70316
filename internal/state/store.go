// Package state persists compilation and run history using SQLite.
package state

import "time"

// RunStatus is the lifecycle state of one pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run records one compile-and-execute cycle of a script.
type Run struct {
	ID          string
	Script      string
	Status      RunStatus
	Errors      int
	Warnings    int
	OutputPath  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// RunUpdate carries the final fields of a finished run.
type RunUpdate struct {
	Status     RunStatus
	OutputPath string
	Errors     int
	Warnings   int
	Error      string
}

// Store is the persistence interface for run history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(script string) (*Run, error)
	CompleteRun(id string, upd RunUpdate) error
	GetRun(id string) (*Run, error)
	RecentRuns(limit int) ([]*Run, error)
}
