package models

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

// QAPair is one stored question with its canned answer. Identity is
// the normalized question plus language, so the same wording can carry
// different answers per language.
type QAPair struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	Question     string     `json:"question" gorm:"size:500;not null"` // question as originally written
	QuestionNorm string     `json:"questionNorm" gorm:"size:500;not null;uniqueIndex:idx_qa_norm_lang"`
	Language     string     `json:"language" gorm:"size:8;not null;uniqueIndex:idx_qa_norm_lang"`
	Answer       string     `json:"answer" gorm:"type:text;not null"`
	UsageCount   int        `json:"usageCount" gorm:"default:0"` // times this answer was served
	LastUsedAt   *time.Time `json:"lastUsedAt,omitempty"`
}

// TableName get tables
func (QAPair) TableName() string {
	return constants.TABLE_QA_PAIRS
}

// CreateQAPair creates a stored pair
func CreateQAPair(db *gorm.DB, pair *QAPair) error {
	return db.Create(pair).Error
}

// GetQAPairByNorm gets the pair matching a normalized question and language
func GetQAPairByNorm(db *gorm.DB, norm, language string) (*QAPair, error) {
	var pair QAPair
	err := db.Where("question_norm = ? AND language = ?", norm, language).First(&pair).Error
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// ListQAPairs gets all pairs for a language; an empty language means all
func ListQAPairs(db *gorm.DB, language string) ([]QAPair, error) {
	var pairs []QAPair
	query := db.Order("id ASC")
	if language != "" {
		query = query.Where("language = ?", language)
	}
	err := query.Find(&pairs).Error
	return pairs, err
}

// UpsertQAPair inserts a new pair or updates the wording and answer of
// an existing one. Usage counters survive the update.
func UpsertQAPair(db *gorm.DB, pair *QAPair) error {
	var existing QAPair
	err := db.Where("question_norm = ? AND language = ?", pair.QuestionNorm, pair.Language).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(pair).Error
	}
	if err != nil {
		return err
	}

	existing.Question = pair.Question
	existing.Answer = pair.Answer
	if err := db.Save(&existing).Error; err != nil {
		return err
	}
	*pair = existing
	return nil
}

// TouchQAPair bumps the usage counter and stamps last use in one
// statement, so concurrent resolutions never lose a count
func TouchQAPair(db *gorm.DB, id uint) error {
	return db.Model(&QAPair{}).Where("id = ?", id).Updates(map[string]interface{}{
		"usage_count":  gorm.Expr("usage_count + 1"),
		"last_used_at": time.Now(),
	}).Error
}

// GetQAPairByID gets a stored pair by row id
func GetQAPairByID(db *gorm.DB, id uint) (*QAPair, error) {
	var pair QAPair
	if err := db.First(&pair, id).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// UpdateQAPair saves edits to an existing pair by primary key
func UpdateQAPair(db *gorm.DB, pair *QAPair) error {
	return db.Save(pair).Error
}

// DeleteQAPairByNorm removes the pair matching a normalized question
// and language, reporting whether it existed
func DeleteQAPairByNorm(db *gorm.DB, norm, language string) (bool, error) {
	res := db.Where("question_norm = ? AND language = ?", norm, language).Delete(&QAPair{})
	return res.RowsAffected > 0, res.Error
}

// TopQAPairs gets the most used pairs first
func TopQAPairs(db *gorm.DB, language string, limit int) ([]QAPair, error) {
	var pairs []QAPair
	query := db.Order("usage_count DESC, id ASC")
	if language != "" {
		query = query.Where("language = ?", language)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&pairs).Error
	return pairs, err
}

// SearchQAPairs finds pairs whose question or answer contains the term
func SearchQAPairs(db *gorm.DB, term, language string, limit int) ([]QAPair, error) {
	var pairs []QAPair
	like := "%" + term + "%"
	query := db.Where("question LIKE ? OR answer LIKE ?", like, like)
	if language != "" {
		query = query.Where("language = ?", language)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("usage_count DESC").Find(&pairs).Error
	return pairs, err
}

// CountQAPairs counts stored pairs for a language; empty means all
func CountQAPairs(db *gorm.DB, language string) (int64, error) {
	var count int64
	query := db.Model(&QAPair{})
	if language != "" {
		query = query.Where("language = ?", language)
	}
	err := query.Count(&count).Error
	return count, err
}
