package qa

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
)

// DatabaseRepository persists pairs through GORM.
type DatabaseRepository struct {
	db *gorm.DB
}

func NewDatabaseRepository(db *gorm.DB) *DatabaseRepository {
	return &DatabaseRepository{db: db}
}

func (r *DatabaseRepository) FindExact(norm, language string) (*models.QAPair, error) {
	pair, err := models.GetQAPairByNorm(r.db, norm, language)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query qa pair: %w", err)
	}
	return pair, nil
}

func (r *DatabaseRepository) List(language string) ([]models.QAPair, error) {
	pairs, err := models.ListQAPairs(r.db, language)
	if err != nil {
		return nil, fmt.Errorf("failed to list qa pairs: %w", err)
	}
	return pairs, nil
}

func (r *DatabaseRepository) Upsert(pair *models.QAPair) error {
	if err := models.UpsertQAPair(r.db, pair); err != nil {
		return fmt.Errorf("failed to upsert qa pair: %w", err)
	}
	return nil
}

// Touch bumps the counter in a single statement so concurrent
// resolutions never lose an increment.
func (r *DatabaseRepository) Touch(pair *models.QAPair) error {
	result := r.db.Model(&models.QAPair{}).
		Where("question_norm = ? AND language = ?", pair.QuestionNorm, pair.Language).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update qa usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DatabaseRepository) Delete(norm, language string) (bool, error) {
	deleted, err := models.DeleteQAPairByNorm(r.db, norm, language)
	if err != nil {
		return false, fmt.Errorf("failed to delete qa pair: %w", err)
	}
	return deleted, nil
}

func (r *DatabaseRepository) Name() string {
	return "database"
}
