package qa

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/logger"
)

// CompositeRepository fronts a primary store with a mirror. Reads fall
// through to the mirror when the primary misses or fails, lists merge
// both stores, and a write fails only when no backend accepts it.
type CompositeRepository struct {
	primary Repository
	mirror  Repository
}

func NewCompositeRepository(primary, mirror Repository) *CompositeRepository {
	return &CompositeRepository{primary: primary, mirror: mirror}
}

func (r *CompositeRepository) FindExact(norm, language string) (*models.QAPair, error) {
	pair, err := r.primary.FindExact(norm, language)
	if err == nil {
		return pair, nil
	}
	if !errors.Is(err, ErrNotFound) {
		logger.Warn("qa primary lookup failed, trying mirror",
			zap.String("backend", r.primary.Name()), zap.Error(err))
	}
	return r.mirror.FindExact(norm, language)
}

// List returns the primary rows plus any mirror rows whose identity the
// primary does not hold.
func (r *CompositeRepository) List(language string) ([]models.QAPair, error) {
	pairs, err := r.primary.List(language)
	if err != nil {
		logger.Warn("qa primary list failed, using mirror",
			zap.String("backend", r.primary.Name()), zap.Error(err))
		return r.mirror.List(language)
	}

	mirrored, err := r.mirror.List(language)
	if err != nil {
		logger.Warn("qa mirror list failed",
			zap.String("backend", r.mirror.Name()), zap.Error(err))
		return pairs, nil
	}

	seen := make(map[string]struct{}, len(pairs))
	for i := range pairs {
		seen[memKey(pairs[i].QuestionNorm, pairs[i].Language)] = struct{}{}
	}
	for i := range mirrored {
		if _, ok := seen[memKey(mirrored[i].QuestionNorm, mirrored[i].Language)]; !ok {
			pairs = append(pairs, mirrored[i])
		}
	}
	return pairs, nil
}

// Upsert writes to both stores. The primary's row is written back into
// pair; the mirror only supplies the id when the primary is down.
func (r *CompositeRepository) Upsert(pair *models.QAPair) error {
	perr := r.primary.Upsert(pair)
	if perr != nil {
		logger.Warn("qa primary upsert failed",
			zap.String("backend", r.primary.Name()), zap.Error(perr))
		merr := r.mirror.Upsert(pair)
		if merr != nil {
			logger.Warn("qa mirror upsert failed",
				zap.String("backend", r.mirror.Name()), zap.Error(merr))
			return errors.Join(perr, merr)
		}
		return nil
	}

	mirrorCopy := *pair
	mirrorCopy.ID = 0
	if merr := r.mirror.Upsert(&mirrorCopy); merr != nil {
		logger.Warn("qa mirror upsert failed",
			zap.String("backend", r.mirror.Name()), zap.Error(merr))
	}
	return nil
}

// Touch updates whichever stores hold the pair so their counters stay
// aligned. A store that never held the pair is not an error.
func (r *CompositeRepository) Touch(pair *models.QAPair) error {
	perr := r.primary.Touch(pair)
	if errors.Is(perr, ErrNotFound) {
		perr = nil
	}
	merr := r.mirror.Touch(pair)
	if errors.Is(merr, ErrNotFound) {
		merr = nil
	}
	if perr != nil {
		logger.Warn("qa primary usage update failed",
			zap.String("backend", r.primary.Name()), zap.Error(perr))
	}
	if merr != nil {
		logger.Warn("qa mirror usage update failed",
			zap.String("backend", r.mirror.Name()), zap.Error(merr))
	}
	if perr != nil && merr != nil {
		return errors.Join(perr, merr)
	}
	return nil
}

// Delete drops the pair from both stores by identity.
func (r *CompositeRepository) Delete(norm, language string) (bool, error) {
	pdeleted, perr := r.primary.Delete(norm, language)
	mdeleted, merr := r.mirror.Delete(norm, language)
	if perr != nil {
		logger.Warn("qa primary delete failed",
			zap.String("backend", r.primary.Name()), zap.Error(perr))
	}
	if merr != nil {
		logger.Warn("qa mirror delete failed",
			zap.String("backend", r.mirror.Name()), zap.Error(merr))
	}
	if perr != nil && merr != nil {
		return false, errors.Join(perr, merr)
	}
	return pdeleted || mdeleted, nil
}

func (r *CompositeRepository) Name() string {
	return fmt.Sprintf("composite(%s,%s)", r.primary.Name(), r.mirror.Name())
}
