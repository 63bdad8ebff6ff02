package domain

import "time"

// RunRecord captures one healing run for the history store.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	Project     string    `json:"project"`
	Language    string    `json:"language"`
	TestCommand string    `json:"test_command"`
	Success     bool      `json:"success"`
	Attempts    int       `json:"attempts"`
	HardBlocker string    `json:"hard_blocker,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	IssueCount  int       `json:"issue_count"`
	ActionCount int       `json:"action_count"`
	DurationMS  int64     `json:"duration_ms"`
}
