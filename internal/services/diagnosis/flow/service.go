package flow

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/diagnosis/internal/platform/id"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/handoff"
	apperrors "github.com/louisbranch/diagnosis/internal/services/diagnosis/platform/errors"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/storage"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/submission"
	"github.com/rs/zerolog"
)

const (
	defaultSessionTTL = 30 * time.Minute
	lockStripes       = 64
)

// Submitter delivers a contact form to the hosted form endpoint.
type Submitter interface {
	Submit(ctx context.Context, form contact.Form) error
}

// Config wires a Service.
type Config struct {
	Store      storage.Store
	Signer     *handoff.Signer
	Submitter  Submitter
	SessionTTL time.Duration
	Pacing     time.Duration
	Now        func() time.Time
}

// Service applies wizard transitions to stored sessions.
type Service struct {
	store     storage.Store
	signer    *handoff.Signer
	submitter Submitter
	ttl       time.Duration
	pacing    time.Duration
	now       func() time.Time
	locks     [lockStripes]sync.Mutex

	deliveryMu sync.Mutex
	delivering map[string]struct{}
}

// Session is the loaded state handed to views.
type Session struct {
	ID        string
	Wizard    *wizard.Wizard
	Submitted bool
	// Created is set when the request had no live session.
	Created bool
}

// SubmitOutcome reports the result of a contact form submission.
type SubmitOutcome struct {
	Form contact.Form
	// Errors is non-empty when validation failed; nothing was sent.
	Errors contact.Errors
	// Failure holds the user-facing message when delivery failed.
	Failure string
}

// New validates cfg and returns a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("handoff signer is required")
	}
	if cfg.Submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:      cfg.Store,
		signer:     cfg.Signer,
		submitter:  cfg.Submitter,
		ttl:        cfg.SessionTTL,
		pacing:     cfg.Pacing,
		now:        cfg.Now,
		delivering: make(map[string]struct{}),
	}, nil
}

// SessionTTL reports how long an idle session survives.
func (s *Service) SessionTTL() time.Duration { return s.ttl }

// Pacing reports the settle delay applied after each answer.
func (s *Service) Pacing() time.Duration { return s.pacing }

// Start resets the browser's session for a new run and returns a handoff
// token carrying the landing page choice. The token is empty when no choice
// was given.
func (s *Service) Start(ctx context.Context, sessionID string, firstOptionID string) (Session, string, error) {
	var token string
	session, err := s.mutate(ctx, sessionID, func(sess *Session) error {
		sess.Wizard.Restart()
		sess.Submitted = false
		firstOptionID = strings.TrimSpace(firstOptionID)
		if firstOptionID == "" {
			return nil
		}
		issued, err := s.signer.Issue(sess.ID, firstOptionID)
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		return Session{}, "", err
	}
	return session, token, nil
}

// Open loads the browser's session, creating one when needed, and applies a
// handoff token the first time one is presented.
func (s *Service) Open(ctx context.Context, sessionID string, token string) (Session, error) {
	token = strings.TrimSpace(token)
	return s.mutate(ctx, sessionID, func(sess *Session) error {
		if token == "" || sess.Wizard.State().HandoffApplied {
			return nil
		}
		first, err := s.signer.Verify(token, sess.ID)
		if err != nil {
			zerolog.Ctx(ctx).Info().Err(err).Str("session_id", sess.ID).Msg("handoff rejected")
			first = ""
		}
		sess.Wizard.ApplyHandoff(first)
		return nil
	})
}

// Answer records an answer for step. A region answer is used when region is
// non-empty. Stale steps and answers arriving while the previous one is
// settling leave the session untouched.
func (s *Service) Answer(ctx context.Context, sessionID string, step int, optionID string, region string) (Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) error {
		var err error
		if strings.TrimSpace(region) != "" {
			err = sess.Wizard.AnswerRegion(step, strings.TrimSpace(region))
		} else {
			err = sess.Wizard.Answer(step, strings.TrimSpace(optionID))
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, wizard.ErrStaleStep), errors.Is(err, wizard.ErrSettling):
			zerolog.Ctx(ctx).Debug().Err(err).Int("step", step).Msg("answer ignored")
			return nil
		case errors.Is(err, wizard.ErrUnknownOption):
			return apperrors.Wrap(apperrors.KindInvalidInput, "unknown option", err)
		default:
			return err
		}
	})
}

// Back moves the session to the previous question.
func (s *Service) Back(ctx context.Context, sessionID string) (Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) error {
		sess.Wizard.Back()
		return nil
	})
}

// Restart deletes the session. Nothing started against it, such as an
// in-flight submission, can change state afterwards.
func (s *Service) Restart(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if !id.Valid(sessionID) {
		return nil
	}
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// Submit validates and delivers the contact form. The form is only accepted
// once the result is showing, and only once per run. The session is not
// locked while the form is in flight; a delivery that finishes after the run
// was restarted or deleted is discarded.
func (s *Service) Submit(ctx context.Context, sessionID string, form contact.Form) (Session, SubmitOutcome, error) {
	var (
		outcome SubmitOutcome
		run     uint64
		send    bool
	)
	session, err := s.mutate(ctx, sessionID, func(sess *Session) error {
		if sess.Wizard.Phase() != wizard.PhaseShowingResult {
			return apperrors.E(apperrors.KindConflict, "diagnosis is not finished")
		}
		if sess.Submitted {
			return nil
		}
		outcome.Form = contact.Normalize(form)
		if errs := contact.Validate(outcome.Form); len(errs) > 0 {
			outcome.Errors = errs
			return nil
		}
		run = sess.Wizard.State().Run
		send = true
		return nil
	})
	if err != nil {
		return Session{}, SubmitOutcome{}, err
	}
	if !send {
		return session, outcome, nil
	}

	if !s.beginDelivery(session.ID) {
		zerolog.Ctx(ctx).Debug().Str("session_id", session.ID).Msg("submission already in flight")
		return session, SubmitOutcome{Form: outcome.Form}, nil
	}
	sendErr := s.submitter.Submit(ctx, outcome.Form)
	s.endDelivery(session.ID)

	settled, found, err := s.update(ctx, session.ID, false, func(sess *Session) error {
		if sess.Wizard.State().Run != run || sess.Wizard.Phase() != wizard.PhaseShowingResult {
			zerolog.Ctx(ctx).Info().Str("session_id", sess.ID).Msg("submission result discarded after restart")
			outcome = SubmitOutcome{}
			return nil
		}
		if sendErr == nil {
			sess.Submitted = true
			return nil
		}
		var verr *submission.ValidationError
		if errors.As(sendErr, &verr) {
			outcome.Errors = verr.Fields
			return nil
		}
		zerolog.Ctx(ctx).Warn().Err(sendErr).Str("session_id", sess.ID).Msg("contact submission failed")
		outcome.Failure = submission.FailureMessage
		return nil
	})
	if err != nil {
		return Session{}, SubmitOutcome{}, err
	}
	if !found {
		zerolog.Ctx(ctx).Info().Str("session_id", session.ID).Msg("submission result discarded for deleted session")
		fresh, err := s.mutate(ctx, "", func(*Session) error { return nil })
		if err != nil {
			return Session{}, SubmitOutcome{}, err
		}
		return fresh, SubmitOutcome{}, nil
	}
	return settled, outcome, nil
}

func (s *Service) beginDelivery(sessionID string) bool {
	s.deliveryMu.Lock()
	defer s.deliveryMu.Unlock()
	if _, busy := s.delivering[sessionID]; busy {
		return false
	}
	s.delivering[sessionID] = struct{}{}
	return true
}

func (s *Service) endDelivery(sessionID string) {
	s.deliveryMu.Lock()
	delete(s.delivering, sessionID)
	s.deliveryMu.Unlock()
}

// Sweep purges expired sessions.
func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// RunSweeper purges expired sessions every interval until ctx ends.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("sweep sessions")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("swept expired sessions")
			}
		}
	}
}

// mutate loads or creates the session, applies fn, and saves the result.
// Nothing is saved when fn fails.
func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Session) error) (Session, error) {
	session, _, err := s.update(ctx, sessionID, true, fn)
	return session, err
}

// update applies fn to the live session under its stripe lock. When the
// session is missing or expired it is created if create is set; otherwise
// update reports found=false and saves nothing.
func (s *Service) update(ctx context.Context, sessionID string, create bool, fn func(*Session) error) (Session, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if !id.Valid(sessionID) {
		sessionID = ""
	}
	if sessionID != "" {
		mu := s.lockFor(sessionID)
		mu.Lock()
		defer mu.Unlock()
	}

	now := s.now().UTC()
	record, found, err := s.load(ctx, sessionID, now)
	if err != nil {
		return Session{}, false, err
	}
	if !found {
		if !create {
			return Session{}, false, nil
		}
		newID, err := id.NewID()
		if err != nil {
			return Session{}, false, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("new session id: %w", err))
		}
		record = storage.Session{ID: newID, CreatedAt: now}
	}

	session := Session{
		ID:        record.ID,
		Wizard:    wizard.Restore(record.Wizard, s.wizardOptions()...),
		Submitted: record.Submitted,
		Created:   !found,
	}
	if err := fn(&session); err != nil {
		return Session{}, found, err
	}

	record.Wizard = session.Wizard.State()
	record.Submitted = session.Submitted
	record.UpdatedAt = now
	record.ExpiresAt = now.Add(s.ttl)
	if err := s.store.PutSession(ctx, record); err != nil {
		return Session{}, found, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("save session: %w", err))
	}
	return session, true, nil
}

func (s *Service) load(ctx context.Context, sessionID string, now time.Time) (storage.Session, bool, error) {
	if sessionID == "" {
		return storage.Session{}, false, nil
	}
	record, ok, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return storage.Session{}, false, apperrors.Wrap(apperrors.KindUnavailable, "", fmt.Errorf("load session: %w", err))
	}
	if !ok || record.Expired(now) {
		return storage.Session{}, false, nil
	}
	return record, true, nil
}

func (s *Service) wizardOptions() []wizard.Option {
	return []wizard.Option{wizard.WithPacing(s.pacing), wizard.WithClock(s.now)}
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}
