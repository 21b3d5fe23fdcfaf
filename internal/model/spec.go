package model

import (
	"strings"
	"time"
)

// JobSpec is the caller-supplied description of a job to enqueue.
type JobSpec struct {
	ID             string     `json:"id"`
	Command        string     `json:"command"`
	Priority       int        `json:"priority"`
	TimeoutSeconds int        `json:"timeout"`
	RunAt          *time.Time `json:"run_at"`
	MaxRetries     *int       `json:"max_retries"`
}

// Filter narrows a List query against the store.
type Filter struct {
	State State
	Limit int
}

// ValidJobID reports whether id is safe to use as a filesystem path
// component, since the executor and admin log lookups both derive a log
// file name directly from it.
func ValidJobID(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/\\") && id != "." && id != ".."
}
