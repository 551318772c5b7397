package interaction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/constants"
)

// ==================== Database Sink ====================

// DatabaseSink stores each turn as a conversation row.
type DatabaseSink struct {
	db *gorm.DB
}

func NewDatabaseSink(db *gorm.DB) *DatabaseSink {
	return &DatabaseSink{db: db}
}

func (s *DatabaseSink) Record(entry *Entry) error {
	conv := &models.Conversation{
		CallID:          entry.CallID,
		TurnID:          entry.TurnID,
		Sequence:        entry.Sequence,
		Question:        entry.Question,
		QuestionLang:    entry.QuestionLang,
		Answer:          entry.Answer,
		AnswerLang:      entry.AnswerLang,
		AnswerSource:    string(entry.Source),
		MatchedQuestion: entry.Matched,
		STTProvider:     entry.STTProvider,
		TTSProvider:     entry.TTSProvider,
		FailureReason:   string(entry.Failure),
		Timings:         entry.Timings,
	}
	if err := models.CreateConversation(s.db, conv); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"call_id": entry.CallID,
		"turn_id": entry.TurnID,
		"status":  entry.Status,
	}).Debug("Conversation turn saved")
	return nil
}

func (s *DatabaseSink) Name() string {
	return "database"
}

// ==================== Snapshot Sink ====================

// SnapshotSink overwrites the last-call files on every turn, so the
// newest turn is always one `cat` away on the box.
type SnapshotSink struct {
	dir string
}

func NewSnapshotSink(dir string) *SnapshotSink {
	return &SnapshotSink{dir: dir}
}

func (s *SnapshotSink) Record(entry *Entry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}

	lookup, lookupLang := entry.lookup()
	answer := entry.answerText()
	lines := []string{
		"timestamp=" + entry.StartedAt.Format(time.RFC3339),
		"status=" + entry.Status,
		"call_uuid=" + entry.CallUUID,
		"caller=" + entry.Caller,
		fmt.Sprintf("transcript=%q", entry.Question),
		fmt.Sprintf("question_%s=%q", lookupLang, lookup),
		fmt.Sprintf("answer_%s=%q", entry.AnswerLang, answer),
		"source=" + string(entry.Source),
		fmt.Sprintf("matched=%q", entry.Matched),
		"stt_provider=" + entry.STTProvider,
		"tts_provider=" + entry.TTSProvider,
		"failure=" + string(entry.Failure),
		"input_file=" + entry.InputPath,
		"output_file=" + entry.OutputPath,
		fmt.Sprintf("duration_ms=%d", entry.Duration.Milliseconds()),
	}
	path := filepath.Join(s.dir, constants.FILE_LAST_CALL_LOG)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", constants.FILE_LAST_CALL_LOG, err)
	}

	question := fmt.Sprintf("question_%s: %s\nanswer_%s: %s\n",
		lookupLang, lookup, entry.AnswerLang, answer)
	path = filepath.Join(s.dir, constants.FILE_LAST_QUESTION)
	if err := os.WriteFile(path, []byte(question), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", constants.FILE_LAST_QUESTION, err)
	}
	return nil
}

func (s *SnapshotSink) Name() string {
	return "snapshot"
}

// ==================== Live Log Sink ====================

// LiveLogSink appends a block per turn, readable with tail -f while
// calls come in.
type LiveLogSink struct {
	dir string
}

func NewLiveLogSink(dir string) *LiveLogSink {
	return &LiveLogSink{dir: dir}
}

func (s *LiveLogSink) Record(entry *Entry) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}

	sep := strings.Repeat("=", 60)
	lines := []string{
		"",
		">>> " + entry.StartedAt.Format("2006-01-02 15:04:05"),
		sep,
		"  YOUR QUESTION (transcribed)",
		sep,
	}
	switch entry.Status {
	case StatusSTTFailed:
		lines = append(lines, "  [Could not transcribe - STT failed]")
	case StatusNoSpeech:
		lines = append(lines, "  [No speech detected]")
	default:
		lookup, lookupLang := entry.lookup()
		if lookupLang != entry.QuestionLang {
			lines = append(lines,
				fmt.Sprintf("  %-9s%s", languageLabel(entry.QuestionLang)+":", entry.Question),
				fmt.Sprintf("  %-9s%s", languageLabel(lookupLang)+":", lookup))
		} else {
			lines = append(lines,
				fmt.Sprintf("  %-9s%s", languageLabel(lookupLang)+":", lookup))
		}
	}
	lines = append(lines, sep, "")

	path := filepath.Join(s.dir, constants.FILE_LIVE_LOG)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", constants.FILE_LIVE_LOG, err)
	}
	defer f.Close()
	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		return fmt.Errorf("failed to append %s: %w", constants.FILE_LIVE_LOG, err)
	}
	return nil
}

func (s *LiveLogSink) Name() string {
	return "livelog"
}

func languageLabel(code string) string {
	switch code {
	case constants.LANG_ENGLISH:
		return "English"
	case constants.LANG_TWI:
		return "Twi"
	}
	return code
}
