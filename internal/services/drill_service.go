// Package services orchestrates the pure core (taxonomy, confusion,
// sampler, lesson) against the store and the observability surface: a
// service struct holds the store and its collaborators, a constructor
// builds it, and each method runs one load/compute/save transaction.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/knutdrand/language-app/internal/confusion"
	"github.com/knutdrand/language-app/internal/metrics"
	"github.com/knutdrand/language-app/internal/models"
	"github.com/knutdrand/language-app/internal/sampler"
	"github.com/knutdrand/language-app/internal/store"
	"github.com/knutdrand/language-app/internal/taxonomy"
	"github.com/knutdrand/language-app/internal/wordindex"
)

// DrillService implements the next-drill and stats operations, wrapping
// the pure Sampler with the persistence, locking, and observability the
// surrounding service owns.
type DrillService struct {
	Sampler  *sampler.Sampler
	Store    *store.Store
	Registry *taxonomy.Registry
}

// NewDrillService builds a DrillService.
func NewDrillService(s *sampler.Sampler, st *store.Store, registry *taxonomy.Registry) *DrillService {
	return &DrillService{Sampler: s, Store: st, Registry: registry}
}

// NextDrill implements the next-drill operation: loads the posteriors the
// request touches under the advisory lock, runs the pure sampler
// pipeline, persists the updated posteriors and (if a previous answer was
// supplied) the event record, and reports tier/shape-mismatch/BT
// non-convergence to metrics.
func (d *DrillService) NextDrill(ctx context.Context, userID uuid.UUID, family wordindex.Family, prev *models.PreviousAnswer) (models.NextDrillResult, error) {
	timer := prometheus.NewTimer(metrics.UpdateDuration)
	defer timer.ObserveDuration()

	singleTypeID := taxonomy.MakeID(string(family), 1)
	problemTypeIDs := []string{singleTypeID}
	if prev != nil && prev.ProblemTypeID != singleTypeID {
		problemTypeIDs = append(problemTypeIDs, prev.ProblemTypeID)
	}

	var result models.NextDrillResult
	err := d.Store.WithLocks(ctx, userID, problemTypeIDs, func(tx *sql.Tx) error {
		posteriors := sampler.PosteriorStore{}
		for _, id := range problemTypeIDs {
			st, err := d.Store.LoadPosterior(ctx, tx, userID, id)
			if err != nil {
				return err
			}
			if st == nil {
				continue
			}
			if desc, err := d.Registry.Get(id); err == nil {
				if st.NClasses != desc.NClasses || len(st.Counts) != desc.NClasses*desc.NClasses {
					metrics.ShapeMismatchTotal.WithLabelValues(id).Inc()
					log.Printf("services: posterior shape mismatch for problem type %q, re-initializing from priors", id)
					continue
				}
			}
			posteriors[id] = st
		}

		var err error
		result, err = d.Sampler.NextDrill(family, posteriors, prev)
		if err != nil {
			return err
		}

		if d.Sampler.Model.Kind == confusion.KindBradleyTerry {
			if single, ok := posteriors[singleTypeID]; ok && !confusion.BTConverged(single) {
				metrics.BTNonconvergentTotal.WithLabelValues(singleTypeID).Inc()
				log.Printf("services: Bradley-Terry MM iteration did not converge for %q", singleTypeID)
			}
		}

		for _, st := range posteriors {
			if err := d.Store.SavePosterior(ctx, tx, userID, st); err != nil {
				return err
			}
		}

		if prev != nil {
			if _, err := d.Store.AppendEvent(ctx, tx, userID, eventFromPreviousAnswer(prev)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.NextDrillResult{}, err
	}

	metrics.DrillsServedTotal.WithLabelValues(string(result.DifficultyLevel)).Inc()
	return result, nil
}

// Stats implements the stats operation: no posterior is saved and no event
// is written; the read runs under the single-syllable posterior's advisory
// lock, like next-drill.
func (d *DrillService) Stats(ctx context.Context, userID uuid.UUID, problemTypeID string) (models.StatsResult, error) {
	if _, err := d.Registry.Get(problemTypeID); err != nil {
		return models.StatsResult{}, err
	}
	family, err := familyFromProblemTypeID(problemTypeID)
	if err != nil {
		return models.StatsResult{}, err
	}

	// Tiering and pair stats are always derived from the family's
	// single-syllable posterior, whatever problem type was asked about.
	singleTypeID := taxonomy.MakeID(string(family), 1)

	var result models.StatsResult
	err = d.Store.WithUserProblemTypeLock(ctx, userID, singleTypeID, func(tx *sql.Tx) error {
		posteriors := sampler.PosteriorStore{}
		st, err := d.Store.LoadPosterior(ctx, tx, userID, singleTypeID)
		if err != nil {
			return err
		}
		if st != nil {
			posteriors[singleTypeID] = st
		}
		result, err = d.Sampler.Stats(family, posteriors)
		return err
	})
	return result, err
}

func familyFromProblemTypeID(problemTypeID string) (wordindex.Family, error) {
	for _, f := range []wordindex.Family{wordindex.FamilyTone, wordindex.FamilyVowel} {
		if len(problemTypeID) > len(f) && problemTypeID[:len(f)] == string(f) {
			return f, nil
		}
	}
	return "", fmt.Errorf("services: cannot infer drill family from problem type %q", problemTypeID)
}

func eventFromPreviousAnswer(prev *models.PreviousAnswer) models.Event {
	return models.Event{
		CreatedAt:        time.Now(),
		ProblemTypeID:    prev.ProblemTypeID,
		WordID:           prev.WordID,
		CorrectSequence:  prev.CorrectSequence,
		Alternatives:     prev.Alternatives,
		SelectedSequence: prev.SelectedSequence,
		IsCorrect:        prev.SelectedSequence.Equal(prev.CorrectSequence),
		ResponseTimeMs:   prev.ResponseTimeMs,
		AudioVoice:       prev.AudioVoice,
		AudioSpeed:       prev.AudioSpeed,
	}
}
