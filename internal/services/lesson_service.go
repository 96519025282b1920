package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/lesson"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/sampler"
	"github.com/knutdrand/language-app/internal/store"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
)

// lessonSession is one in-process lesson's ephemeral state plus the
// problem last handed to the client, needed to score the client's next
// answer -- the lesson controller itself only tracks cursors and
// mistakes, not the outstanding problem.
type lessonSession struct {
	userID  uuid.UUID
	family  wordindex.Family
	state   *lesson.State
	pending *models.Problem
	mode    lesson.DrillMode
}

// LessonService implements the lesson start/next/themes operations,
// layering an in-process session table (lesson state lives in process
// memory, keyed by session id, so a client's successive calls within a
// lesson must route to the same process) over the per-family
// lesson.Controller and the shared DrillService's sampler and store.
type LessonService struct {
	Controllers map[wordindex.Family]*lesson.Controller
	Sampler     *sampler.Sampler
	Store       *store.Store

	mu       sync.Mutex
	sessions map[string]*lessonSession
}

// NewLessonService builds a LessonService over one lesson.Controller per
// drill family.
func NewLessonService(controllers map[wordindex.Family]*lesson.Controller, s *sampler.Sampler, st *store.Store) *LessonService {
	return &LessonService{
		Controllers: controllers,
		Sampler:     s,
		Store:       st,
		sessions:    make(map[string]*lessonSession),
	}
}

// StartResult is the lesson start operation's output shape.
type StartResult struct {
	SessionID   string
	LessonID    int
	ThemePairs  []lesson.ThemePair
	TotalDrills int
}

// Start implements the lesson start(theme_id?) operation.
func (l *LessonService) Start(ctx context.Context, userID uuid.UUID, family wordindex.Family, themeID *int) (StartResult, error) {
	controller, ok := l.Controllers[family]
	if !ok {
		return StartResult{}, fmt.Errorf("services: no lesson controller registered for family %q", family)
	}

	singleTypeID := problemTypeID1(family)

	var lessonID int
	var pairStats map[confusion.PairKey]confusion.Beta
	err := l.Store.WithUserProblemTypeLock(ctx, userID, "lesson_id_alloc", func(tx *sql.Tx) error {
		max, err := l.Store.MaxLessonIDTx(ctx, tx)
		if err != nil {
			return err
		}
		lessonID = lesson.NextLessonID(max)

		st, err := l.Store.LoadPosterior(ctx, tx, userID, singleTypeID)
		if err != nil {
			return err
		}
		if st != nil {
			pairStats = l.Sampler.Model.AllPairStats(st)
		}
		return nil
	})
	if err != nil {
		return StartResult{}, err
	}

	state := controller.Start(lessonID, themeID, pairStats)

	sessionID := uuid.NewString()
	l.mu.Lock()
	l.sessions[sessionID] = &lessonSession{userID: userID, family: family, state: state}
	l.mu.Unlock()

	return StartResult{
		SessionID:   sessionID,
		LessonID:    state.LessonID,
		ThemePairs:  state.ThemePairs,
		TotalDrills: len(state.DrillPlan),
	}, nil
}

// NextResult is the lesson next(session_id, previous_answer?) operation's
// output shape: either a drill or a completed-lesson summary.
type NextResult struct {
	Drill    *models.Problem
	Complete bool
	Summary  *lesson.Summary
}

// Next implements the lesson next operation. If a previous answer is
// supplied it is scored against the problem last served for this session,
// recorded by the controller, handed to the sampler/model for the
// posterior update the controller does not own, and persisted as an
// event.
func (l *LessonService) Next(ctx context.Context, sessionID string, prevAnswer *models.Answer) (NextResult, error) {
	l.mu.Lock()
	sess, ok := l.sessions[sessionID]
	l.mu.Unlock()
	if !ok {
		return NextResult{}, fmt.Errorf("services: unknown lesson session %q", sessionID)
	}

	controller, ok := l.Controllers[sess.family]
	if !ok {
		return NextResult{}, fmt.Errorf("services: no lesson controller registered for family %q", sess.family)
	}

	if prevAnswer != nil && sess.pending != nil {
		if err := l.recordAndPersist(ctx, sess, *prevAnswer); err != nil {
			return NextResult{}, err
		}
	}

	outcome, err := controller.NextDrill(sess.state)
	if err != nil {
		return NextResult{}, err
	}

	if outcome.Complete {
		l.mu.Lock()
		delete(l.sessions, sessionID)
		l.mu.Unlock()
		return NextResult{Complete: true, Summary: outcome.Summary}, nil
	}

	sess.pending = outcome.Drill
	sess.mode = outcome.Mode
	return NextResult{Drill: outcome.Drill}, nil
}

// recordAndPersist scores prevAnswer against the session's pending
// problem: records it into the controller's mistake/cursor bookkeeping,
// applies the posterior update via the sampler/model under the usual
// advisory lock, and appends the event record.
func (l *LessonService) recordAndPersist(ctx context.Context, sess *lessonSession, answer models.Answer) error {
	controller := l.Controllers[sess.family]
	problem := *sess.pending
	lessonIDCopy := sess.state.LessonID

	controller.RecordAnswer(sess.state, problem, sess.mode, answer)

	prev := &models.PreviousAnswer{
		ProblemTypeID:    problem.ProblemTypeID,
		WordID:           problem.WordID,
		CorrectSequence:  problem.CorrectSequence,
		SelectedSequence: answer.SelectedSequence,
		Alternatives:     problem.Alternatives,
		ResponseTimeMs:   answer.ResponseTimeMs,
		AudioVoice:       problem.AudioVoice,
		AudioSpeed:       problem.AudioSpeed,
	}

	return l.Store.WithUserProblemTypeLock(ctx, sess.userID, prev.ProblemTypeID, func(tx *sql.Tx) error {
		posteriors := sampler.PosteriorStore{}
		st, err := l.Store.LoadPosterior(ctx, tx, sess.userID, prev.ProblemTypeID)
		if err != nil {
			return err
		}
		if st != nil {
			posteriors[prev.ProblemTypeID] = st
		}
		if _, err := l.Sampler.ApplyAnswer(posteriors, prev); err != nil {
			return err
		}
		if err := l.Store.SavePosterior(ctx, tx, sess.userID, posteriors[prev.ProblemTypeID]); err != nil {
			return err
		}

		event := eventFromPreviousAnswer(prev)
		event.CreatedAt = time.Now()
		event.LessonID = &lessonIDCopy
		_, err = l.Store.AppendEvent(ctx, tx, sess.userID, event)
		return err
	})
}

// Themes returns the fixed theme table for a drill family.
func (l *LessonService) Themes(family wordindex.Family) []lesson.Theme {
	return lesson.Themes(family)
}

func problemTypeID1(family wordindex.Family) string {
	return taxonomy.MakeID(string(family), 1)
}
