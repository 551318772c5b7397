// Package pipeline runs one caller turn end to end: decode the caller
// audio, transcribe it, resolve an answer, synthesize the reply and
// record the interaction. Persistence is best effort throughout, only
// the audio path in and out can fail a turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/interaction"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/qa"
	"github.com/cultiflow/cultivoice/pkg/recognizer"
	"github.com/cultiflow/cultivoice/pkg/speech"
	"github.com/cultiflow/cultivoice/pkg/synthesizer"
	"github.com/cultiflow/cultivoice/pkg/translator"
)

// Options wires the pipeline's collaborators. DB and Translator may be
// nil: database writes are best effort and translation is skipped when
// no client is configured.
type Options struct {
	DB         *gorm.DB
	Transcoder *audio.Transcoder
	STT        recognizer.TranscribeService
	TTS        synthesizer.SynthesisService
	Translator *translator.Client
	Resolver   *qa.Resolver
	Recorder   *interaction.Recorder

	SpeechLanguage string // language spoken on the call
	LookupLanguage string // language the stored answers are keyed in
	FallbackClip   string // prerecorded clip left at the output path on failure
}

// Pipeline processes caller turns one at a time.
type Pipeline struct {
	db         *gorm.DB
	transcoder *audio.Transcoder
	stt        recognizer.TranscribeService
	tts        synthesizer.SynthesisService
	translate  *translator.Client
	resolver   *qa.Resolver
	recorder   *interaction.Recorder

	speechLang   string
	lookupLang   string
	fallbackClip string
}

func New(opts *Options) *Pipeline {
	transcoder := opts.Transcoder
	if transcoder == nil {
		transcoder = audio.NewTranscoder()
	}
	speechLang := opts.SpeechLanguage
	if speechLang == "" {
		speechLang = constants.LANG_ENGLISH
	}
	lookupLang := opts.LookupLanguage
	if lookupLang == "" {
		lookupLang = constants.LANG_ENGLISH
	}
	return &Pipeline{
		db:           opts.DB,
		transcoder:   transcoder,
		stt:          opts.STT,
		tts:          opts.TTS,
		translate:    opts.Translator,
		resolver:     opts.Resolver,
		recorder:     opts.Recorder,
		speechLang:   speechLang,
		lookupLang:   lookupLang,
		fallbackClip: opts.FallbackClip,
	}
}

// Request is one caller turn to process. AudioPath and Text are
// mutually exclusive, Text skips transcoding and transcription.
type Request struct {
	AudioPath  string
	Text       string
	OutputPath string
	CallUUID   string // switch call UUID, generated when empty
	Caller     string
	Extension  string
}

// Result reports what one turn produced. It is populated even when Run
// returns an error so callers can still see how far the turn got.
type Result struct {
	Status     string
	Question   string // transcript in the speech language, or a failure marker
	Lookup     string // question in the lookup language
	LookupLang string
	Answer     string // answer as spoken to the caller
	AnswerLang string
	Source     qa.Source
	Matched    string
	Failure    speech.Reason
	OutputPath string
	Timings    models.StageTimings
}

// Run processes one caller turn. A non-nil error is terminal for the
// turn: no answer audio was produced (beyond the fallback clip) and the
// process should exit non-zero.
func (p *Pipeline) Run(ctx context.Context, req *Request) (res *Result, err error) {
	if req == nil || (req.AudioPath == "" && req.Text == "") {
		return nil, errors.New("pipeline: audio path or text required")
	}
	if req.OutputPath == "" {
		return nil, errors.New("pipeline: output path required")
	}

	started := time.Now()
	res = &Result{
		Status:     interaction.StatusCompleted,
		LookupLang: p.speechLang,
		AnswerLang: p.lookupLang,
		OutputPath: req.OutputPath,
	}
	call := p.openCall(req)
	sequence := call.Turns + 1

	defer func() {
		p.record(call, sequence, req, res, started)
		p.closeCall(call, err)
	}()

	logger.Info("processing caller turn",
		zap.String("call_uuid", call.CallUUID),
		zap.String("input", req.AudioPath),
		zap.Bool("text_mode", req.Text != ""),
		zap.String("output", req.OutputPath))

	// The fallback clip goes in first so a terminal failure never
	// leaves a previous turn's answer at the output path.
	p.primeOutput(req.OutputPath)

	// 1. Obtain the question.
	question, err := p.acquireQuestion(ctx, req, res)
	if err != nil {
		return res, err
	}

	// 2. Bridge into the lookup language.
	lookup := p.toLookupLanguage(ctx, question, res)

	// 3. Resolve the answer.
	resolveStart := time.Now()
	resolution := p.resolver.Resolve(lookup)
	res.Timings.ResolveMs = time.Since(resolveStart).Milliseconds()
	res.Answer = resolution.Answer
	res.Source = resolution.Source
	res.Matched = resolution.Matched

	logger.Info("answer resolved",
		zap.String("call_uuid", call.CallUUID),
		zap.String("source", string(resolution.Source)),
		zap.String("matched", resolution.Matched))

	// 4. Bridge the answer back into the speech language.
	answerText := p.toSpeechLanguage(ctx, resolution.Answer, res)

	// 5. Render and write the response.
	synthStart := time.Now()
	clip, synthErr := p.tts.Synthesize(ctx, answerText)
	res.Timings.SynthesizeMs = time.Since(synthStart).Milliseconds()
	if synthErr != nil {
		res.Status = interaction.StatusTTSFailed
		res.Failure = speech.Classify(synthErr)
		return res, fmt.Errorf("TTS synthesis failed: %w", synthErr)
	}

	if writeErr := audio.WriteWAV(req.OutputPath, clip); writeErr != nil {
		res.Status = interaction.StatusTTSFailed
		return res, fmt.Errorf("failed to write response audio: %w", writeErr)
	}

	logger.Info("caller turn completed",
		zap.String("call_uuid", call.CallUUID),
		zap.String("status", res.Status),
		zap.String("source", string(res.Source)),
		zap.Duration("took", time.Since(started)))
	return res, nil
}

// acquireQuestion returns the caller's question text. Empty speech is
// not an error: the resolver's default tier still answers the turn.
func (p *Pipeline) acquireQuestion(ctx context.Context, req *Request, res *Result) (string, error) {
	if req.Text != "" {
		question := strings.TrimSpace(req.Text)
		res.Question = question
		return question, nil
	}

	data, err := os.ReadFile(req.AudioPath)
	if err != nil {
		res.Status = interaction.StatusSTTFailed
		res.Question = constants.MARKER_STT_FAILED
		return "", fmt.Errorf("failed to read input audio: %w", err)
	}

	clip, err := p.transcoder.Decode(data)
	if err != nil {
		res.Status = interaction.StatusSTTFailed
		res.Question = constants.MARKER_STT_FAILED
		return "", fmt.Errorf("failed to decode input audio: %w", err)
	}

	transcribeStart := time.Now()
	text, err := p.stt.Transcribe(ctx, clip)
	res.Timings.TranscribeMs = time.Since(transcribeStart).Milliseconds()
	if err != nil {
		if errors.Is(err, speech.ErrNoSpeech) {
			logger.Info("no speech detected, answering with the default",
				zap.String("input", req.AudioPath))
			res.Status = interaction.StatusNoSpeech
			res.Question = constants.MARKER_NO_SPEECH
			res.Failure = speech.ReasonEmpty
			return "", nil
		}
		res.Status = interaction.StatusSTTFailed
		res.Question = constants.MARKER_STT_FAILED
		res.Failure = speech.Classify(err)
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	logger.Info("transcription completed",
		zap.String("provider", p.stt.Provider()),
		zap.Int("chars", len(text)),
		zap.Int64("took_ms", res.Timings.TranscribeMs))
	res.Question = text
	return text, nil
}

// toLookupLanguage translates the question into the lookup language.
// Translation is best effort, failures fall back to the original text.
func (p *Pipeline) toLookupLanguage(ctx context.Context, question string, res *Result) string {
	if question == "" {
		return ""
	}
	res.Lookup = question
	if p.translate == nil || p.speechLang == p.lookupLang {
		res.LookupLang = p.speechLang
		return question
	}

	translated, err := p.translate.Translate(ctx, question, translator.Pair(p.speechLang, p.lookupLang))
	if err != nil {
		logger.Warn("question translation failed, using original text", zap.Error(err))
		res.LookupLang = p.speechLang
		return question
	}
	res.Lookup = translated
	res.LookupLang = p.lookupLang
	return translated
}

// toSpeechLanguage translates the answer back into the caller's
// language. Best effort as well, the stored answer is still an answer.
func (p *Pipeline) toSpeechLanguage(ctx context.Context, answer string, res *Result) string {
	if p.translate == nil || p.speechLang == p.lookupLang {
		res.AnswerLang = p.lookupLang
		return answer
	}

	translated, err := p.translate.Translate(ctx, answer, translator.Pair(p.lookupLang, p.speechLang))
	if err != nil {
		logger.Warn("answer translation failed, speaking the stored text", zap.Error(err))
		res.AnswerLang = p.lookupLang
		return answer
	}
	res.Answer = translated
	res.AnswerLang = p.speechLang
	return translated
}

// primeOutput copies the fallback clip over the output path so the
// platform never replays a previous answer after a failed turn.
func (p *Pipeline) primeOutput(outputPath string) {
	if p.fallbackClip == "" {
		return
	}
	data, err := os.ReadFile(p.fallbackClip)
	if err != nil {
		logger.Warn("failed to read fallback clip",
			zap.String("path", p.fallbackClip), zap.Error(err))
		return
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		logger.Warn("failed to prime output with fallback clip",
			zap.String("path", outputPath), zap.Error(err))
	}
}

// openCall finds or creates the call row for this turn. Never fails:
// without a database the row lives only in memory.
func (p *Pipeline) openCall(req *Request) *models.Call {
	callUUID := req.CallUUID
	if callUUID == "" {
		callUUID = models.NewCallUUID()
	}

	if p.db != nil {
		existing, err := models.GetCallByUUID(p.db, callUUID)
		if err == nil {
			return existing
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("call lookup failed", zap.String("call_uuid", callUUID), zap.Error(err))
		}
	}

	call := &models.Call{
		CallUUID:     callUUID,
		Extension:    req.Extension,
		CallerNumber: req.Caller,
		Language:     p.speechLang,
		Status:       models.CallStatusActive,
		StartTime:    time.Now(),
	}
	if p.db != nil {
		if err := models.CreateCall(p.db, call); err != nil {
			logger.Warn("failed to create call record", zap.Error(err))
		}
	}
	return call
}

// closeCall finalizes the call row. Persistence failures only warn.
func (p *Pipeline) closeCall(call *models.Call, runErr error) {
	if runErr == nil {
		call.Turns++
		call.Complete()
	} else {
		call.Fail(runErr.Error())
	}
	if p.db == nil {
		return
	}
	if err := models.UpdateCall(p.db, call); err != nil {
		logger.Warn("failed to update call record",
			zap.String("call_uuid", call.CallUUID), zap.Error(err))
	}
}

// record hands the finished turn to the interaction sinks.
func (p *Pipeline) record(call *models.Call, sequence int, req *Request, res *Result, started time.Time) {
	if p.recorder == nil {
		return
	}
	entry := &interaction.Entry{
		CallID:       call.ID,
		CallUUID:     call.CallUUID,
		Caller:       call.CallerNumber,
		Extension:    call.Extension,
		TurnID:       models.NewTurnID(),
		Sequence:     sequence,
		Question:     res.Question,
		QuestionLang: p.speechLang,
		Lookup:       res.Lookup,
		LookupLang:   res.LookupLang,
		Answer:       res.Answer,
		AnswerLang:   res.AnswerLang,
		Source:       res.Source,
		Matched:      res.Matched,
		STTProvider:  p.sttName(),
		TTSProvider:  p.ttsName(),
		Status:       res.Status,
		Failure:      res.Failure,
		InputPath:    req.AudioPath,
		OutputPath:   req.OutputPath,
		Timings:      res.Timings,
		StartedAt:    started,
		Duration:     time.Since(started),
	}
	p.recorder.Record(entry)
}

func (p *Pipeline) sttName() string {
	if p.stt == nil {
		return ""
	}
	return p.stt.Provider()
}

func (p *Pipeline) ttsName() string {
	if p.tts == nil {
		return ""
	}
	return p.tts.Provider()
}
