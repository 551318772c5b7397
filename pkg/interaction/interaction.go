// Package interaction records finished assistant turns. Every turn is
// handed to a set of sinks, each sink is best effort and a failing sink
// never blocks the others or the response.
package interaction

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/qa"
	"github.com/cultiflow/cultivoice/pkg/speech"
)

// Turn outcomes.
const (
	StatusCompleted = "completed"
	StatusNoSpeech  = "no_speech"
	StatusSTTFailed = "stt_failed"
	StatusTTSFailed = "tts_failed"
)

// Entry is one caller turn as the sinks see it. Lookup carries the
// question in the lookup language and equals Question when no
// translation ran.
type Entry struct {
	CallID       uint
	CallUUID     string
	Caller       string
	Extension    string
	TurnID       string
	Sequence     int
	Question     string
	QuestionLang string
	Lookup       string
	LookupLang   string
	Answer       string
	AnswerLang   string
	Source       qa.Source
	Matched      string
	STTProvider  string
	TTSProvider  string
	Status       string
	Failure      speech.Reason
	InputPath    string
	OutputPath   string
	Timings      models.StageTimings
	StartedAt    time.Time
	Duration     time.Duration
}

// lookup returns the question in the lookup language, falling back to
// the raw question when no translation ran.
func (e *Entry) lookup() (string, string) {
	if e.Lookup == "" {
		return e.Question, e.QuestionLang
	}
	return e.Lookup, e.LookupLang
}

// answerText returns the answer as written to artifacts. A turn that
// resolved an answer but could not render it carries a marker, that
// text was never spoken to the caller.
func (e *Entry) answerText() string {
	if e.Status == StatusTTSFailed {
		return strings.TrimSpace(e.Answer + " " + constants.MARKER_TTS_FAILED)
	}
	return e.Answer
}

// Sink persists an entry somewhere.
type Sink interface {
	Record(entry *Entry) error
	Name() string
}

// Recorder fans an entry out to its sinks.
type Recorder struct {
	sinks []Sink
}

func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks}
}

// Record hands the entry to every sink. Sink failures are logged and
// swallowed, recording never fails the turn.
func (r *Recorder) Record(entry *Entry) {
	for _, sink := range r.sinks {
		if err := sink.Record(entry); err != nil {
			logrus.WithError(err).WithField("sink", sink.Name()).Warn("Failed to record interaction")
		}
	}
}
