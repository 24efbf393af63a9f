package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/danielolaszy/attractor/internal/apperr"
	"github.com/danielolaszy/attractor/internal/blocking"
	"github.com/danielolaszy/attractor/internal/gitrepo"
	"github.com/danielolaszy/attractor/internal/logging"
	"github.com/danielolaszy/attractor/internal/notify"
	"github.com/danielolaszy/attractor/internal/store"
	"github.com/danielolaszy/attractor/pkg/models"
)

// stderrTailLines is how much stderr ends up in a failure comment.
const stderrTailLines = 10

// Publisher receives session lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, name string, data any) error
}

// Locker serializes writers of one storage repository.
type Locker interface {
	Lock(ctx context.Context, storePath string) (unlock func(), err error)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// Options configures a Supervisor.
type Options struct {
	// Tool is the executable to launch, looked up in PATH.
	Tool      string
	Registry  *Registry
	Publisher Publisher
	Locker    Locker
	Pool      *blocking.Pool
}

// Request describes one session run.
type Request struct {
	Owner       string
	Repo        string
	Issue       models.Issue
	ProjectPath string
	StorePath   string
	Credential  gitrepo.Credential
	// UserLogin authors the write-back commit.
	UserLogin string
}

// Supervisor launches the tool in the background and writes each run's
// outcome back to the issue.
type Supervisor struct {
	tool      string
	registry  *Registry
	publisher Publisher
	locker    Locker
	pool      *blocking.Pool

	mu   sync.Mutex
	done map[string]chan struct{}
	wg   sync.WaitGroup
}

// NewSupervisor creates a supervisor. Missing options get defaults: the
// "amplifier" tool, a fresh registry, no publisher, no locking and a
// single-slot pool.
func NewSupervisor(opts Options) *Supervisor {
	if opts.Tool == "" {
		opts.Tool = "amplifier"
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Locker == nil {
		opts.Locker = nopLocker{}
	}
	if opts.Pool == nil {
		opts.Pool = blocking.NewPool(1)
	}
	return &Supervisor{
		tool:      opts.Tool,
		registry:  opts.Registry,
		publisher: opts.Publisher,
		locker:    opts.Locker,
		pool:      opts.Pool,
		done:      make(map[string]chan struct{}),
	}
}

// Registry returns the registry the supervisor records sessions in.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Start launches the tool for req.Issue and returns once the process is
// running. It fails with apperr.ErrSessionRunning if the issue already has a
// running session. The process is not tied to ctx; use Cancel to stop it.
func (s *Supervisor) Start(ctx context.Context, req Request) error {
	key := Key(req.Owner, req.Repo, req.Issue.Number)

	prev, err := s.registry.Begin(key, Session{
		IssueNumber: req.Issue.Number,
		Owner:       req.Owner,
		Repo:        req.Repo,
		ProjectPath: req.ProjectPath,
		StartedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := EnsureSettings(req.ProjectPath); err != nil {
		s.registry.Abort(key, prev)
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(s.tool, "run", "--output-format", "json", BuildPrompt(req.Issue))
	cmd.Dir = req.ProjectPath
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		s.registry.Abort(key, prev)
		return fmt.Errorf("failed to spawn %s: %w", s.tool, err)
	}
	s.registry.SetPID(key, cmd.Process.Pid)
	logging.Info("session started", "key", key, "pid", cmd.Process.Pid)

	done := make(chan struct{})
	s.mu.Lock()
	s.done[key] = done
	s.mu.Unlock()

	s.publish(ctx, notify.EventStarted, notify.Started{
		IssueNumber: req.Issue.Number,
		Owner:       req.Owner,
		Repo:        req.Repo,
	})

	s.wg.Add(1)
	go s.supervise(key, req, cmd, &stdout, &stderr, done)
	return nil
}

// supervise waits for the process, writes the outcome back and records the
// terminal state.
func (s *Supervisor) supervise(key string, req Request, cmd *exec.Cmd, stdout, stderr *bytes.Buffer, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	ctx := context.Background()
	waitErr := cmd.Wait()

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		msg := fmt.Sprintf("Failed to wait on amplifier process: %v", waitErr)
		logging.Error("session wait failed", "key", key, "error", waitErr)
		s.registry.Finish(key, StatusFailed, Result{Error: &msg}, time.Now().UTC())
		s.publish(ctx, notify.EventFailed, notify.Failed{
			IssueNumber: req.Issue.Number, Owner: req.Owner, Repo: req.Repo, Error: msg,
		})
		return
	}

	out := evaluate(stdout.Bytes(), stderr.Bytes(), cmd.ProcessState.ExitCode())

	commentID, err := s.writeBack(ctx, req, out.body)
	if err != nil {
		logging.Error("failed to write session result", "key", key, "error", err)
	}

	s.registry.Finish(key, out.status, out.result, time.Now().UTC())
	logging.Info("session finished", "key", key, "status", out.status, "comment", commentID)

	if out.status == StatusCompleted {
		s.publish(ctx, notify.EventCompleted, notify.Completed{
			IssueNumber: req.Issue.Number, Owner: req.Owner, Repo: req.Repo, CommentID: commentID,
		})
		return
	}
	s.publish(ctx, notify.EventFailed, notify.Failed{
		IssueNumber: req.Issue.Number, Owner: req.Owner, Repo: req.Repo, Error: out.body,
	})
}

// writeBack stores body as a bot comment on the issue and publishes it.
func (s *Supervisor) writeBack(ctx context.Context, req Request, body string) (int64, error) {
	unlock, err := s.locker.Lock(ctx, req.StorePath)
	if err != nil {
		return 0, err
	}
	defer unlock()

	return blocking.Run(ctx, s.pool, func() (int64, error) {
		if err := gitrepo.Sync(ctx, req.StorePath, req.Credential); err != nil {
			return 0, fmt.Errorf("sync failed: %w", err)
		}

		comment, err := store.New(req.StorePath).AddComment(req.Issue.Number, body, BotUser(), "BOT", time.Now().UTC())
		if err != nil {
			return 0, fmt.Errorf("write comment failed: %w", err)
		}

		message := fmt.Sprintf("attractor: session result for issue #%d", req.Issue.Number)
		err = gitrepo.CommitAndPush(ctx, req.StorePath, message, req.UserLogin, gitrepo.NoReplyEmail(req.UserLogin), req.Credential)
		if err != nil {
			return 0, fmt.Errorf("commit/push failed: %w", err)
		}
		return comment.ID, nil
	})
}

func (s *Supervisor) publish(ctx context.Context, name string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, name, data); err != nil {
		logging.Warn("failed to publish session event", "event", name, "error", err)
	}
}

// Wait blocks until the most recent session started under key has been
// fully processed. It returns immediately for unknown keys.
func (s *Supervisor) Wait(key string) {
	s.mu.Lock()
	done := s.done[key]
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// WaitAll blocks until every started session has been fully processed.
func (s *Supervisor) WaitAll() {
	s.wg.Wait()
}

// Status reports the session of an issue.
func (s *Supervisor) Status(owner, repo string, issue int64) (Info, error) {
	info, ok := s.registry.Get(Key(owner, repo, issue))
	if !ok {
		return Info{}, fmt.Errorf("issue #%d: %w", issue, apperr.ErrSessionNotFound)
	}
	return info, nil
}

// Cancel asks the running process of an issue's session to stop. The
// session still finishes through the normal exit path.
func (s *Supervisor) Cancel(owner, repo string, issue int64) error {
	key := Key(owner, repo, issue)
	pid, err := s.registry.ActivePID(key)
	if err != nil {
		return fmt.Errorf("issue #%d: %w", issue, err)
	}

	logging.Info("cancelling session", "key", key, "pid", pid)
	if err := terminate(pid); err != nil {
		return fmt.Errorf("failed to cancel session for issue #%d: %w", issue, err)
	}
	return nil
}

type outcome struct {
	body   string
	status Status
	result Result
}

// evaluate turns the captured output of a finished process into the comment
// body, terminal status and result.
func evaluate(stdout, stderr []byte, exitCode int) outcome {
	parsed, ok := ExtractResult(stdout)
	switch {
	case ok && parsed.Status == StatusSuccess:
		return outcome{
			body:   parsed.Response,
			status: StatusCompleted,
			result: Result{Response: parsed.Response, SessionID: parsed.SessionID, Model: parsed.Model},
		}
	case ok:
		msg := "Unknown error"
		if parsed.Error != nil {
			msg = *parsed.Error
		}
		return outcome{
			body:   "Amplifier session failed: " + msg,
			status: StatusFailed,
			result: Result{SessionID: parsed.SessionID, Model: parsed.Model, Error: &msg},
		}
	}

	var msg string
	if len(stderr) > 0 {
		msg = tailLines(string(stderr), stderrTailLines)
	} else {
		msg = fmt.Sprintf("Process exited with code %d", exitCode)
	}
	return outcome{
		body:   "Amplifier session failed: " + msg,
		status: StatusFailed,
		result: Result{Error: &msg},
	}
}

// tailLines returns the last n lines of text.
func tailLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return strings.Join(lines, "\n")
}
