package domain

import "time"

// Run identifies one invocation that produced decisions.
type Run struct {
	ID        string
	Command   string
	DryRun    bool
	StartedAt time.Time
}

// Decision is an assignment together with what happened to it.
type Decision struct {
	Assignment
	Applied    bool
	SkipReason string
}
