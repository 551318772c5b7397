package qa

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/logger"
)

// ErrNotFound is returned when no pair exists for a lookup.
var ErrNotFound = errors.New("qa: pair not found")

// Repository stores question/answer pairs. Pair identity is the
// normalized question plus the language tag, so the same wording can
// carry different answers per language.
type Repository interface {
	// FindExact returns the pair whose normalized question equals norm.
	FindExact(norm, language string) (*models.QAPair, error)

	// List returns all pairs for a language, ordered by insertion.
	// An empty language returns every pair.
	List(language string) ([]models.QAPair, error)

	// Upsert inserts or updates a pair by identity and writes the stored
	// row back into pair. Updates keep the existing usage counters.
	Upsert(pair *models.QAPair) error

	// Touch increments the usage counter of the stored pair matching
	// pair's identity and stamps its last use.
	Touch(pair *models.QAPair) error

	// Delete removes the pair matching norm and language, reporting
	// whether it existed. Identity-addressed so the composite can drop
	// the pair from stores whose row ids differ.
	Delete(norm, language string) (bool, error)

	// Name identifies the backend in logs.
	Name() string
}

// NewRepository builds the configured repository backend. Backends that
// need a database fall back to memory when none is available. The
// composite pairs the primary database with the mirror database when
// one is open, with an in-memory mirror otherwise.
func NewRepository(backend string, db, mirror *gorm.DB) Repository {
	switch backend {
	case "database":
		if db != nil {
			return NewDatabaseRepository(db)
		}
		logger.Warn("qa database backend requested without a database, using memory")
	case "composite":
		if db != nil {
			if mirror != nil {
				return NewCompositeRepository(NewDatabaseRepository(db), NewDatabaseRepository(mirror))
			}
			return NewCompositeRepository(NewDatabaseRepository(db), NewMemoryRepository())
		}
		logger.Warn("qa composite backend requested without a database, using memory")
	case "memory", "":
	default:
		logger.Warn("unknown qa backend, using memory", zap.String("backend", backend))
	}
	return NewMemoryRepository()
}
