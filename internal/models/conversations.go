package models

import (
	"database/sql/driver"
	"time"

	"github.com/bytedance/sonic"
	gonanoid "github.com/matoous/go-nanoid"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

// StageTimings records how long each pipeline stage took for one turn,
// stored as a JSON blob on the conversation row
type StageTimings struct {
	TranscribeMs int64 `json:"transcribeMs"`
	ResolveMs    int64 `json:"resolveMs"`
	SynthesizeMs int64 `json:"synthesizeMs"`
}

// Value implements the driver.Valuer interface
func (t StageTimings) Value() (driver.Value, error) {
	if t == (StageTimings{}) {
		return nil, nil
	}
	return sonic.Marshal(t)
}

// Scan implements the sql.Scanner interface
func (t *StageTimings) Scan(value interface{}) error {
	if value == nil {
		*t = StageTimings{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		*t = StageTimings{}
		return nil
	}
	if len(data) == 0 {
		*t = StageTimings{}
		return nil
	}
	return sonic.Unmarshal(data, t)
}

// Conversation is a single question and answer turn within a call
type Conversation struct {
	ID              uint         `json:"id" gorm:"primaryKey"`
	CreatedAt       time.Time    `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt       time.Time    `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt       *time.Time   `json:"-" gorm:"index"`
	CallID          uint         `json:"callId" gorm:"index;not null"`
	TurnID          string       `json:"turnId" gorm:"size:32;index"` // short id tying log lines to this row
	Sequence        int          `json:"sequence" gorm:"default:0"`   // turn number within the call
	Question        string       `json:"question" gorm:"type:text"`   // transcript, or a failure marker
	QuestionLang    string       `json:"questionLang" gorm:"size:8"`
	Answer          string       `json:"answer" gorm:"type:text"`
	AnswerLang      string       `json:"answerLang" gorm:"size:8"`
	AnswerSource    string       `json:"answerSource" gorm:"size:16"`               // stored, keyword, default
	MatchedQuestion string       `json:"matchedQuestion,omitempty" gorm:"size:500"` // stored question that won the lookup
	STTProvider     string       `json:"sttProvider,omitempty" gorm:"size:32"`
	TTSProvider     string       `json:"ttsProvider,omitempty" gorm:"size:32"`
	FailureReason   string       `json:"failureReason,omitempty" gorm:"size:16"` // network, auth, quota, empty
	Timings         StageTimings `json:"timings" gorm:"type:text"`
}

// TableName get tables
func (Conversation) TableName() string {
	return constants.TABLE_CONVERSATIONS
}

// NewTurnID generates a short identifier for one question/answer turn
func NewTurnID() string {
	return gonanoid.MustID(12)
}

// CreateConversation creates a conversation turn record
func CreateConversation(db *gorm.DB, conversation *Conversation) error {
	return db.Create(conversation).Error
}

// GetConversationsByCallID gets all turns of a call, oldest first
func GetConversationsByCallID(db *gorm.DB, callID uint) ([]Conversation, error) {
	var conversations []Conversation
	err := db.Where("call_id = ?", callID).Order("sequence ASC").Find(&conversations).Error
	return conversations, err
}

// GetRecentConversations gets the latest turns across all calls
func GetRecentConversations(db *gorm.DB, limit int) ([]Conversation, error) {
	var conversations []Conversation
	query := db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&conversations).Error
	return conversations, err
}
