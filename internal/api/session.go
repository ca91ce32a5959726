package api

import (
	"errors"
	"fmt"
	"sync"

	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/segment"
)

// session owns the live engine state for one project. The controller is a
// single-writer structure, so every interaction with it happens under the
// session mutex; concurrent drag events are serialized in arrival order.
type session struct {
	mu   sync.Mutex
	ctrl *profile.Controller
	cfg  *config.TuningConfig
}

// withLock runs fn while holding the session's lock.
func (s *session) withLock(fn func(ctrl *profile.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctrl)
}

type sessionPool struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func (p *sessionPool) get(id string) (*session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, ok := p.sessions[id]
	return sess, ok
}

func (p *sessionPool) put(id string, sess *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions == nil {
		p.sessions = make(map[string]*session)
	}
	p.sessions[id] = sess
}

// drop discards a project's session. Called whenever the measurements or
// settings change: persisted solver state is stale by definition and must be
// rebuilt before the next update.
func (p *sessionPool) drop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, id)
}

// sessionFor returns the project's live session, rebuilding the profile from
// the stored measurement table on first access after a load or an edit.
func (s *Server) sessionFor(projectID string) (*session, error) {
	if sess, ok := s.sessions.get(projectID); ok {
		return sess, nil
	}

	project, err := s.db.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Rows(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load measurement rows: %w", err)
	}

	ctrl := profile.NewController(project.Settings)
	if len(rows) > 0 {
		if _, err := ctrl.PrepareInitialProfile(rows); err != nil {
			// Stored measurements that no longer validate leave the
			// controller unprepared; updates will report that.
			var verr *segment.ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
		}
	}

	sess := &session{ctrl: ctrl, cfg: project.Settings}
	s.sessions.put(projectID, sess)
	return sess, nil
}
