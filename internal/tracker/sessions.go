package tracker

import (
	"context"
	"errors"

	"github.com/danielolaszy/attractor/internal/session"
)

// ErrSessionsUnavailable is returned when the service has no supervisor.
var ErrSessionsUnavailable = errors.New("sessions are not available")

// RunSession starts an analysis session for an issue, run inside
// projectPath. It returns once the tool is running.
func (s *Service) RunSession(ctx context.Context, ref Ref, number int64, projectPath string) (session.Info, error) {
	if s.supervisor == nil {
		return session.Info{}, ErrSessionsUnavailable
	}
	issue, err := s.GetIssue(ctx, ref, number)
	if err != nil {
		return session.Info{}, err
	}

	err = s.supervisor.Start(ctx, session.Request{
		Owner:       ref.Owner,
		Repo:        ref.Repo,
		Issue:       issue,
		ProjectPath: projectPath,
		StorePath:   s.StorePath(ref),
		Credential:  s.cred,
		UserLogin:   s.user.Login,
	})
	if err != nil {
		return session.Info{}, err
	}
	return s.supervisor.Status(ref.Owner, ref.Repo, number)
}

// WaitSession blocks until the session of an issue has been processed.
func (s *Service) WaitSession(ref Ref, number int64) (session.Info, error) {
	if s.supervisor == nil {
		return session.Info{}, ErrSessionsUnavailable
	}
	s.supervisor.Wait(session.Key(ref.Owner, ref.Repo, number))
	return s.supervisor.Status(ref.Owner, ref.Repo, number)
}

// SessionStatus reports the session of an issue.
func (s *Service) SessionStatus(ref Ref, number int64) (session.Info, error) {
	if s.supervisor == nil {
		return session.Info{}, ErrSessionsUnavailable
	}
	return s.supervisor.Status(ref.Owner, ref.Repo, number)
}

// CancelSession stops the running session of an issue.
func (s *Service) CancelSession(ref Ref, number int64) error {
	if s.supervisor == nil {
		return ErrSessionsUnavailable
	}
	return s.supervisor.Cancel(ref.Owner, ref.Repo, number)
}
