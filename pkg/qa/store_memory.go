package qa

import (
	"sort"
	"sync"
	"time"

	"github.com/cultiflow/cultivoice/internal/models"
)

// MemoryRepository keeps pairs in process memory. It hands out copies,
// callers never share a pointer with the store.
type MemoryRepository struct {
	mu     sync.RWMutex
	byKey  map[string]*models.QAPair
	byID   map[uint]*models.QAPair
	nextID uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byKey: make(map[string]*models.QAPair),
		byID:  make(map[uint]*models.QAPair),
	}
}

func memKey(norm, language string) string {
	return norm + "\x00" + language
}

func (r *MemoryRepository) FindExact(norm, language string) (*models.QAPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pair, ok := r.byKey[memKey(norm, language)]
	if !ok {
		return nil, ErrNotFound
	}
	pairCopy := *pair
	return &pairCopy, nil
}

func (r *MemoryRepository) List(language string) ([]models.QAPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pairs := make([]models.QAPair, 0, len(r.byID))
	for _, pair := range r.byID {
		if language != "" && pair.Language != language {
			continue
		}
		pairs = append(pairs, *pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs, nil
}

func (r *MemoryRepository) Upsert(pair *models.QAPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	key := memKey(pair.QuestionNorm, pair.Language)
	if existing, ok := r.byKey[key]; ok {
		existing.Question = pair.Question
		existing.Answer = pair.Answer
		existing.UpdatedAt = now
		*pair = *existing
		return nil
	}

	r.nextID++
	stored := *pair
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.byKey[key] = &stored
	r.byID[stored.ID] = &stored
	*pair = stored
	return nil
}

func (r *MemoryRepository) Touch(pair *models.QAPair) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byKey[memKey(pair.QuestionNorm, pair.Language)]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	stored.UsageCount++
	stored.LastUsedAt = &now
	stored.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) Delete(norm, language string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memKey(norm, language)
	pair, ok := r.byKey[key]
	if !ok {
		return false, nil
	}
	delete(r.byID, pair.ID)
	delete(r.byKey, key)
	return true, nil
}

func (r *MemoryRepository) Name() string {
	return "memory"
}
