// Package store persists the two durable shapes the surrounding service
// owns: posterior states and the append-only drill event log. It also
// enforces the single-writer contract: callers serialize the {load,
// update, save} triple for one (user, problem_type) behind a Postgres
// advisory transaction lock, and a unique-constraint violation on insert
// is retried as an update -- the only retry the persistence layer
// performs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/store/database"
)

// Store is the persistence layer for posteriors and events.
type Store struct {
	db *database.DB
}

// New builds a Store over an open database connection.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// lockKey hashes (userID, problemTypeID) to the int64 pg_advisory_xact_lock
// expects. A 64-bit FNV hash is more than sufficient to avoid contention
// between unrelated (user, problem_type) pairs in practice; false sharing
// only costs extra serialization, never incorrect behavior.
func lockKey(userID uuid.UUID, problemTypeID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(userID.String()))
	h.Write([]byte(":"))
	h.Write([]byte(problemTypeID))
	return int64(h.Sum64())
}

// WithUserProblemTypeLock runs fn inside a transaction holding the
// Postgres advisory lock for (userID, problemTypeID), serializing
// concurrent drill requests for the same learner and family. The
// transaction is committed if fn succeeds, rolled back otherwise.
func (s *Store) WithUserProblemTypeLock(ctx context.Context, userID uuid.UUID, problemTypeID string, fn func(tx *sql.Tx) error) error {
	return s.WithLocks(ctx, userID, []string{problemTypeID}, fn)
}

// WithLocks is WithUserProblemTypeLock generalized to every problem type a
// single request may touch (e.g. a next-drill call that both updates a
// previous answer's problem type and reads/writes the family's
// single-syllable tiering state, when the two differ). Problem type ids
// are sorted before locking so two concurrent requests touching the same
// pair always acquire their advisory locks in the same order, avoiding
// deadlock.
func (s *Store) WithLocks(ctx context.Context, userID uuid.UUID, problemTypeIDs []string, fn func(tx *sql.Tx) error) error {
	ids := append([]string(nil), problemTypeIDs...)
	sort.Strings(ids)
	ids = dedupe(ids)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(userID, id)); err != nil {
			return fmt.Errorf("store: acquiring advisory lock for %q: %w", id, err)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}
	return nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var last string
	for i, v := range sorted {
		if i == 0 || v != last {
			out = append(out, v)
		}
		last = v
	}
	return out
}

// LoadPosterior reads the posterior for (userID, problemTypeID). A missing
// row is not an error: the caller treats it as equivalent to
// initial_state(problem_type_id), so this returns (nil, nil).
func (s *Store) LoadPosterior(ctx context.Context, tx *sql.Tx, userID uuid.UUID, problemTypeID string) (*confusion.State, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT n_classes, prior, model_version, counts
		FROM posterior_states
		WHERE user_id = $1 AND problem_type_id = $2
	`, userID, problemTypeID)

	var nClasses int
	var prior float64
	var version int
	var countsJSON []byte
	if err := row.Scan(&nClasses, &prior, &version, &countsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: loading posterior: %w", err)
	}

	var counts []float64
	if err := json.Unmarshal(countsJSON, &counts); err != nil {
		return nil, fmt.Errorf("store: decoding posterior counts: %w", err)
	}

	kind := confusion.KindLuce
	if confusion.ModelVersion(version) == confusion.ModelVersionBradleyTerryMM {
		kind = confusion.KindBradleyTerry
	}

	return &confusion.State{
		ProblemTypeID: problemTypeID,
		Kind:          kind,
		NClasses:      nClasses,
		Prior:         prior,
		ModelVersion:  confusion.ModelVersion(version),
		Counts:        counts,
	}, nil
}

// SavePosterior writes a posterior's new snapshot, creating the row on
// first observation for (userID, problemTypeID) and updating it
// thereafter. On a unique-constraint violation during the insert attempt
// -- another request created the row first -- it is retried as an
// update, the only retry the core performs.
func (s *Store) SavePosterior(ctx context.Context, tx *sql.Tx, userID uuid.UUID, st *confusion.State) error {
	countsJSON, err := json.Marshal(st.Counts)
	if err != nil {
		return fmt.Errorf("store: encoding posterior counts: %w", err)
	}

	// A failed statement aborts the whole Postgres transaction, so the insert
	// runs under a savepoint that the update retry rolls back to first.
	if _, err := tx.ExecContext(ctx, "SAVEPOINT posterior_insert"); err != nil {
		return fmt.Errorf("store: creating savepoint: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO posterior_states (user_id, problem_type_id, n_classes, prior, model_version, counts, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, userID, st.ProblemTypeID, st.NClasses, st.Prior, int(st.ModelVersion), countsJSON)

	if err == nil {
		return nil
	}

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT posterior_insert"); rbErr != nil {
			return fmt.Errorf("store: rolling back failed posterior insert: %w", rbErr)
		}
		_, updateErr := tx.ExecContext(ctx, `
			UPDATE posterior_states
			SET n_classes = $3, prior = $4, model_version = $5, counts = $6, updated_at = now()
			WHERE user_id = $1 AND problem_type_id = $2
		`, userID, st.ProblemTypeID, st.NClasses, st.Prior, int(st.ModelVersion), countsJSON)
		if updateErr != nil {
			return fmt.Errorf("store: retrying posterior save as update: %w", updateErr)
		}
		return nil
	}

	return fmt.Errorf("store: saving posterior: %w", err)
}

// AppendEvent writes one immutable event record and returns its assigned
// row id. Lesson ids are allocated separately, from MaxLessonIDTx.
func (s *Store) AppendEvent(ctx context.Context, tx *sql.Tx, userID uuid.UUID, e models.Event) (int64, error) {
	correctJSON, err := json.Marshal(e.CorrectSequence)
	if err != nil {
		return 0, fmt.Errorf("store: encoding correct sequence: %w", err)
	}
	altJSON, err := json.Marshal(e.Alternatives)
	if err != nil {
		return 0, fmt.Errorf("store: encoding alternatives: %w", err)
	}
	selectedJSON, err := json.Marshal(e.SelectedSequence)
	if err != nil {
		return 0, fmt.Errorf("store: encoding selected sequence: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO drill_events
			(user_id, problem_type_id, word_id, correct_sequence, alternatives,
			 selected_sequence, is_correct, response_time_ms, audio_voice, audio_speed, lesson_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, userID, e.ProblemTypeID, e.WordID, correctJSON, altJSON, selectedJSON,
		e.IsCorrect, e.ResponseTimeMs, e.AudioVoice, e.AudioSpeed, e.LessonID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: appending event: %w", err)
	}
	return id, nil
}

// EventsForUserProblemType lists the events for (userID, problemTypeID)
// ordered by created_at, the input replay.Reconstruct expects.
func (s *Store) EventsForUserProblemType(ctx context.Context, userID uuid.UUID, problemTypeID string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, problem_type_id, word_id, correct_sequence, alternatives,
		       selected_sequence, is_correct, response_time_ms, audio_voice, audio_speed, lesson_id
		FROM drill_events
		WHERE user_id = $1 AND problem_type_id = $2
		ORDER BY created_at ASC, id ASC
	`, userID, problemTypeID)
	if err != nil {
		return nil, fmt.Errorf("store: querying events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		var correctJSON, altJSON, selectedJSON []byte
		var lessonID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.ProblemTypeID, &e.WordID, &correctJSON, &altJSON,
			&selectedJSON, &e.IsCorrect, &e.ResponseTimeMs, &e.AudioVoice, &e.AudioSpeed, &lessonID); err != nil {
			return nil, fmt.Errorf("store: scanning event: %w", err)
		}
		if err := json.Unmarshal(correctJSON, &e.CorrectSequence); err != nil {
			return nil, fmt.Errorf("store: decoding correct sequence: %w", err)
		}
		if err := json.Unmarshal(altJSON, &e.Alternatives); err != nil {
			return nil, fmt.Errorf("store: decoding alternatives: %w", err)
		}
		if err := json.Unmarshal(selectedJSON, &e.SelectedSequence); err != nil {
			return nil, fmt.Errorf("store: decoding selected sequence: %w", err)
		}
		if lessonID.Valid {
			v := int(lessonID.Int64)
			e.LessonID = &v
		}
		e.UserID = userID
		out = append(out, e)
	}
	return out, rows.Err()
}

// MaxLessonID returns the highest lesson_id seen across every event, or 0
// if none exist, the basis for the lesson controller's NextLessonID.
func (s *Store) MaxLessonID(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(lesson_id) FROM drill_events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("store: querying max lesson id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}

// MaxLessonIDTx is MaxLessonID run against an already-open transaction, so
// lesson-id allocation can be serialized behind the same advisory lock the
// caller is already holding.
func (s *Store) MaxLessonIDTx(ctx context.Context, tx *sql.Tx) (int, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(lesson_id) FROM drill_events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("store: querying max lesson id: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}
