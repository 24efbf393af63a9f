// Package session supervises background runs of the external analysis tool,
// one per issue, and writes each run's outcome back to the issue as a
// comment.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Key identifies the session of one issue in one storage repository.
func Key(owner, repo string, issue int64) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, issue)
}

// Result is what a finished session produced.
type Result struct {
	Response  string
	SessionID string
	Model     string
	Error     *string
}

// Session is a registry entry.
type Session struct {
	IssueNumber int64
	Owner       string
	Repo        string
	ProjectPath string
	Status      Status
	StartedAt   time.Time
	FinishedAt  *time.Time
	Result      *Result
	// PID is zero once the process has exited.
	PID int
}

// Info is the read-only view of a session handed to callers.
type Info struct {
	IssueNumber int64      `json:"issueNumber"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

func (s *Session) info() Info {
	info := Info{
		IssueNumber: s.IssueNumber,
		Status:      s.Status,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
	if s.Result != nil {
		info.Error = s.Result.Error
	}
	return info
}

// Registry tracks every session started by this process. At most one session
// per key is running at a time. Entries are never removed; a terminal entry
// is replaced when the key is run again.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Begin records s as running under key. It fails with
// apperr.ErrSessionRunning if a session for key is still running. The entry
// it replaced, if any, is returned so a failed spawn can put it back.
func (r *Registry) Begin(key string, s Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[key]
	if prev != nil && prev.Status == StatusRunning {
		return nil, fmt.Errorf("issue #%d: %w", prev.IssueNumber, apperr.ErrSessionRunning)
	}

	s.Status = StatusRunning
	r.sessions[key] = &s
	return prev, nil
}

// Abort undoes a Begin whose process never started.
func (r *Registry) Abort(key string, prev *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev == nil {
		delete(r.sessions, key)
		return
	}
	r.sessions[key] = prev
}

// SetPID records the process id of a running session.
func (r *Registry) SetPID(key string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		s.PID = pid
	}
}

// Finish moves the session under key into a terminal state and forgets its
// process id.
func (r *Registry) Finish(key string, status Status, result Result, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return
	}
	s.Status = status
	s.FinishedAt = &at
	s.Result = &result
	s.PID = 0
}

// Get returns a snapshot of the session under key.
func (r *Registry) Get(key string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return Info{}, false
	}
	return s.info(), true
}

// ActivePID returns the process id of the running session under key. It
// fails with apperr.ErrSessionStarting while the process is being spawned and
// with apperr.ErrNoActiveProcess once the session has finished.
func (r *Registry) ActivePID(key string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	switch {
	case !ok:
		return 0, apperr.ErrSessionNotFound
	case s.Status != StatusRunning:
		return 0, apperr.ErrNoActiveProcess
	case s.PID == 0:
		return 0, apperr.ErrSessionStarting
	}
	return s.PID, nil
}

// List returns snapshots of every known session keyed by session key.
func (r *Registry) List() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Info, len(r.sessions))
	for k, s := range r.sessions {
		out[k] = s.info()
	}
	return out
}
