package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/pkg/constants"
)

type CallStatus string

const (
	CallStatusActive    CallStatus = "active"    // call in progress
	CallStatusCompleted CallStatus = "completed" // answered and finished normally
	CallStatusFailed    CallStatus = "failed"    // ended with an error
)

// Call is one answered call handled by the assistant
type Call struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	CreatedAt     time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt     *time.Time     `json:"-" gorm:"index"`
	CallUUID      string         `json:"callUuid" gorm:"size:128;index;not null"` // switch UUID, or generated for CLI runs
	Extension     string         `json:"extension,omitempty" gorm:"size:32"`      // dialplan extension that was dialed
	CallerNumber  string         `json:"callerNumber,omitempty" gorm:"size:64"`
	Language      string         `json:"language" gorm:"size:8;index"` // language spoken on the call
	Status        CallStatus     `json:"status" gorm:"size:20;index"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       *time.Time     `json:"endTime,omitempty"`
	Duration      float64        `json:"duration" gorm:"default:0"` // seconds
	Turns         int            `json:"turns" gorm:"default:0"`    // completed question/answer rounds
	ErrorMessage  string         `json:"errorMessage,omitempty" gorm:"size:500"`
	Conversations []Conversation `json:"conversations,omitempty" gorm:"foreignKey:CallID;constraint:OnDelete:CASCADE"`
}

// TableName get tables
func (Call) TableName() string {
	return constants.TABLE_CALLS
}

// NewCallUUID generates a call identifier for runs that did not come
// in through the switch
func NewCallUUID() string {
	return uuid.NewString()
}

// Complete marks the call finished and fixes its duration
func (c *Call) Complete() {
	now := time.Now()
	c.EndTime = &now
	c.Status = CallStatusCompleted
	c.CalculateDuration()
}

// Fail marks the call failed with a reason
func (c *Call) Fail(message string) {
	now := time.Now()
	c.EndTime = &now
	c.Status = CallStatusFailed
	c.ErrorMessage = message
	c.CalculateDuration()
}

// CalculateDuration computes the call length in seconds
func (c *Call) CalculateDuration() {
	if c.EndTime != nil && !c.StartTime.IsZero() {
		c.Duration = c.EndTime.Sub(c.StartTime).Seconds()
	}
}

// CreateCall creates a call record
func CreateCall(db *gorm.DB, call *Call) error {
	return db.Create(call).Error
}

// GetCallByUUID gets a call record by its call UUID
func GetCallByUUID(db *gorm.DB, callUUID string) (*Call, error) {
	var call Call
	err := db.Where("call_uuid = ?", callUUID).First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// GetCallWithConversations gets a call with its turns, oldest first
func GetCallWithConversations(db *gorm.DB, callUUID string) (*Call, error) {
	var call Call
	err := db.Preload("Conversations", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).Where("call_uuid = ?", callUUID).First(&call).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// GetCallByID gets a call with its turns by row id, oldest turn first
func GetCallByID(db *gorm.DB, id uint) (*Call, error) {
	var call Call
	err := db.Preload("Conversations", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	}).First(&call, id).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

// UpdateCall updates a call record
func UpdateCall(db *gorm.DB, call *Call) error {
	return db.Save(call).Error
}

// GetRecentCalls gets the latest call records
func GetRecentCalls(db *gorm.DB, limit int) ([]Call, error) {
	var calls []Call
	query := db.Order("start_time DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&calls).Error
	return calls, err
}

// CallStatistics is the summary row behind the stats command
type CallStatistics struct {
	TotalCalls         int64   `json:"totalCalls"`
	TodayCalls         int64   `json:"todayCalls"`
	TotalConversations int64   `json:"totalConversations"`
	AverageDuration    float64 `json:"averageDuration"` // seconds, finished calls only
}

// GetCallStatistics aggregates call counts and durations. Day bounds
// are computed here rather than with SQL date functions so the query
// works the same on sqlite, mysql and postgres.
func GetCallStatistics(db *gorm.DB) (*CallStatistics, error) {
	stats := &CallStatistics{}

	if err := db.Model(&Call{}).Count(&stats.TotalCalls).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&Call{}).Where("start_time >= ?", dayStart).Count(&stats.TodayCalls).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&Conversation{}).Count(&stats.TotalConversations).Error; err != nil {
		return nil, err
	}

	// COALESCE keeps the average at 0 before the first finished call
	if err := db.Model(&Call{}).Select("COALESCE(AVG(duration), 0)").
		Where("duration > 0").Scan(&stats.AverageDuration).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

// DailyCallStats is the per-day breakdown behind stats -date
type DailyCallStats struct {
	Date          string `json:"date"` // YYYY-MM-DD
	Calls         int64  `json:"calls"`
	Completed     int64  `json:"completed"`
	Failed        int64  `json:"failed"`
	Conversations int64  `json:"conversations"`
}

// GetDailyCallStats aggregates calls and turns for one calendar day
func GetDailyCallStats(db *gorm.DB, day time.Time) (*DailyCallStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	stats := &DailyCallStats{Date: dayStart.Format("2006-01-02")}

	if err := db.Model(&Call{}).Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Count(&stats.Calls).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Call{}).Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Where("status = ?", CallStatusCompleted).Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Call{}).Where("start_time >= ? AND start_time < ?", dayStart, dayEnd).
		Where("status = ?", CallStatusFailed).Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Conversation{}).Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&stats.Conversations).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
