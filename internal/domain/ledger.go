package domain

import "sync"

// Ledger is the append-only record of issues detected during one healing run
// and the auto-fix actions executed against them. It is owned by the healer
// for the duration of a run; the controller only reads snapshots.
type Ledger struct {
	project string

	mu      sync.Mutex
	issues  []*Issue
	actions []AutoFixAction
}

// NewLedger creates an empty ledger for the given project.
func NewLedger(project string) *Ledger {
	return &Ledger{project: project}
}

// Project returns the project identifier the ledger belongs to.
func (l *Ledger) Project() string {
	return l.project
}

// Record appends a new issue and returns the stored pointer so the healer
// can later mark it fixed. The project field is filled in when empty.
func (l *Ledger) Record(issue Issue) *Issue {
	if issue.Project == "" {
		issue.Project = l.project
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := &issue
	l.issues = append(l.issues, stored)
	return stored
}

// AddAction appends an executed auto-fix action to the run-wide list.
func (l *Ledger) AddAction(action AutoFixAction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
}

// MarkFixed attaches the resolving action to the issue and flips AutoFixed.
// AutoFixed is monotonic: once true it is never reset within a run.
func (l *Ledger) MarkFixed(issue *Issue, action AutoFixAction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	issue.AutoFixActions = append(issue.AutoFixActions, action)
	issue.AutoFixed = true
}

// AttachAction records a failed or partial attempt on the issue without
// marking it fixed.
func (l *Ledger) AttachAction(issue *Issue, action AutoFixAction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	issue.AutoFixActions = append(issue.AutoFixActions, action)
}

// Unresolved returns the live issues that have not been auto-fixed yet.
func (l *Ledger) Unresolved() []*Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	var pending []*Issue
	for _, issue := range l.issues {
		if !issue.AutoFixed {
			pending = append(pending, issue)
		}
	}
	return pending
}

// Issues returns a snapshot copy of all recorded issues in detection order.
func (l *Ledger) Issues() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Issue, 0, len(l.issues))
	for _, issue := range l.issues {
		out = append(out, *issue)
	}
	return out
}

// Actions returns a snapshot copy of all executed actions in order.
func (l *Ledger) Actions() []AutoFixAction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AutoFixAction, len(l.actions))
	copy(out, l.actions)
	return out
}

// Len returns the number of recorded issues.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.issues)
}
