package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/interaction"
	"github.com/cultiflow/cultivoice/pkg/qa"
	"github.com/cultiflow/cultivoice/pkg/speech"
	"github.com/cultiflow/cultivoice/pkg/translator"
)

type fakeSTT struct {
	text  string
	err   error
	calls int
}

func (f *fakeSTT) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeSTT) Provider() string { return "fake-stt" }

type fakeTTS struct {
	err   error
	calls int
	last  string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	f.calls++
	f.last = text
	if f.err != nil {
		return nil, f.err
	}
	pcm := make([]byte, 640)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 0x11
	}
	return audio.NewClip(pcm, 16000, 1), nil
}

func (f *fakeTTS) Provider() string { return "fake-tts" }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Call{}, &models.Conversation{}, &models.QAPair{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func writeInputWAV(t *testing.T, dir string) string {
	t.Helper()
	pcm := make([]byte, 3200)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 0x08
	}
	path := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(path, audio.EncodeWAV(audio.NewClip(pcm, 16000, 1)), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return path
}

func seedPair(t *testing.T, repo qa.Repository, question, answer string) {
	t.Helper()
	pair := &models.QAPair{
		Question:     question,
		QuestionNorm: qa.Normalize(question),
		Answer:       answer,
		Language:     constants.LANG_ENGLISH,
	}
	if err := repo.Upsert(pair); err != nil {
		t.Fatalf("failed to seed pair: %v", err)
	}
}

func TestRunTextTurn(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t)
	repo := qa.NewMemoryRepository()
	seedPair(t, repo, "What is Cultiflow?", "Cultiflow is a technology company in Ghana.")

	tts := &fakeTTS{}
	p := New(&Options{
		DB:       db,
		TTS:      tts,
		Resolver: qa.NewResolver(repo, qa.Options{}),
		Recorder: interaction.NewRecorder(interaction.NewDatabaseSink(db)),
	})

	out := filepath.Join(dir, "response.wav")
	res, err := p.Run(context.Background(), &Request{
		Text:       "what is cultiflow",
		OutputPath: out,
		CallUUID:   "turn-test-1",
		Caller:     "0241234567",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Status != interaction.StatusCompleted {
		t.Errorf("status = %q", res.Status)
	}
	if res.Source != qa.SourceStored {
		t.Errorf("source = %q", res.Source)
	}
	if tts.last != "Cultiflow is a technology company in Ghana." {
		t.Errorf("synthesized text = %q", tts.last)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Error("output is not a WAV file")
	}

	call, err := models.GetCallByUUID(db, "turn-test-1")
	if err != nil {
		t.Fatalf("call row missing: %v", err)
	}
	if call.Status != models.CallStatusCompleted || call.Turns != 1 {
		t.Errorf("call status=%q turns=%d", call.Status, call.Turns)
	}
	convs, err := models.GetConversationsByCallID(db, call.ID)
	if err != nil || len(convs) != 1 {
		t.Fatalf("conversations = %d, err %v", len(convs), err)
	}
	if convs[0].Question != "what is cultiflow" || convs[0].AnswerSource != string(qa.SourceStored) {
		t.Errorf("conversation row = %+v", convs[0])
	}
}

func TestRunAudioTurn(t *testing.T) {
	dir := t.TempDir()
	stt := &fakeSTT{text: "what is your phone"}
	tts := &fakeTTS{}
	p := New(&Options{
		STT:      stt,
		TTS:      tts,
		Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
	})

	out := filepath.Join(dir, "response.wav")
	res, err := p.Run(context.Background(), &Request{
		AudioPath:  writeInputWAV(t, dir),
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stt.calls != 1 {
		t.Errorf("stt calls = %d", stt.calls)
	}
	if res.Question != "what is your phone" {
		t.Errorf("question = %q", res.Question)
	}
	if res.Source != qa.SourceKeyword {
		t.Errorf("source = %q", res.Source)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRunNoSpeech(t *testing.T) {
	dir := t.TempDir()
	stt := &fakeSTT{err: speech.WrapError("fake-stt", speech.ErrNoSpeech)}
	tts := &fakeTTS{}
	p := New(&Options{
		STT:      stt,
		TTS:      tts,
		Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
	})

	out := filepath.Join(dir, "response.wav")
	res, err := p.Run(context.Background(), &Request{
		AudioPath:  writeInputWAV(t, dir),
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("no speech must not fail the turn: %v", err)
	}
	if res.Status != interaction.StatusNoSpeech {
		t.Errorf("status = %q", res.Status)
	}
	if res.Question != constants.MARKER_NO_SPEECH {
		t.Errorf("question = %q", res.Question)
	}
	if res.Failure != speech.ReasonEmpty {
		t.Errorf("failure = %q", res.Failure)
	}
	if res.Source != qa.SourceDefault {
		t.Errorf("source = %q", res.Source)
	}
	if tts.calls != 1 {
		t.Errorf("tts calls = %d, the default answer still gets spoken", tts.calls)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRunSTTFailure(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t)
	stt := &fakeSTT{err: speech.WrapError("fake-stt", &speech.APIError{StatusCode: 503, Message: "down", Provider: "fake-stt"})}
	tts := &fakeTTS{}
	p := New(&Options{
		DB:       db,
		STT:      stt,
		TTS:      tts,
		Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
		Recorder: interaction.NewRecorder(interaction.NewDatabaseSink(db)),
	})

	res, err := p.Run(context.Background(), &Request{
		AudioPath:  writeInputWAV(t, dir),
		OutputPath: filepath.Join(dir, "response.wav"),
		CallUUID:   "turn-test-stt",
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if res.Status != interaction.StatusSTTFailed {
		t.Errorf("status = %q", res.Status)
	}
	if res.Question != constants.MARKER_STT_FAILED {
		t.Errorf("question = %q", res.Question)
	}
	if res.Failure != speech.ReasonNetwork {
		t.Errorf("failure = %q", res.Failure)
	}
	if tts.calls != 0 {
		t.Errorf("tts calls = %d, nothing to speak on a terminal failure", tts.calls)
	}

	call, err := models.GetCallByUUID(db, "turn-test-stt")
	if err != nil {
		t.Fatalf("call row missing: %v", err)
	}
	if call.Status != models.CallStatusFailed {
		t.Errorf("call status = %q", call.Status)
	}
	convs, err := models.GetConversationsByCallID(db, call.ID)
	if err != nil || len(convs) != 1 {
		t.Fatalf("conversations = %d, err %v", len(convs), err)
	}
	if convs[0].Question != constants.MARKER_STT_FAILED || convs[0].FailureReason != string(speech.ReasonNetwork) {
		t.Errorf("conversation row = %+v", convs[0])
	}
}

func TestRunTTSFailureLeavesFallback(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "fallback.wav")
	fallbackPCM := make([]byte, 320)
	for i := range fallbackPCM {
		fallbackPCM[i] = 0x42
	}
	fallbackWAV := audio.EncodeWAV(audio.NewClip(fallbackPCM, 16000, 1))
	if err := os.WriteFile(fallback, fallbackWAV, 0644); err != nil {
		t.Fatalf("failed to write fallback: %v", err)
	}

	tts := &fakeTTS{err: speech.WrapError("fake-tts", &speech.APIError{StatusCode: 500, Provider: "fake-tts"})}
	p := New(&Options{
		TTS:          tts,
		Resolver:     qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
		FallbackClip: fallback,
	})

	out := filepath.Join(dir, "response.wav")
	res, err := p.Run(context.Background(), &Request{
		Text:       "hello there",
		OutputPath: out,
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if res.Status != interaction.StatusTTSFailed {
		t.Errorf("status = %q", res.Status)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("fallback not left at output path: %v", err)
	}
	if !bytes.Equal(got, fallbackWAV) {
		t.Error("output does not match the fallback clip")
	}
}

func TestRunUndecodableInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(bad, []byte("this is not audio"), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}

	stt := &fakeSTT{text: "never reached"}
	p := New(&Options{
		STT:      stt,
		TTS:      &fakeTTS{},
		Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
	})

	res, err := p.Run(context.Background(), &Request{
		AudioPath:  bad,
		OutputPath: filepath.Join(dir, "response.wav"),
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
	var formatErr *audio.FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("expected FormatError, got %v", err)
	}
	if res.Status != interaction.StatusSTTFailed {
		t.Errorf("status = %q", res.Status)
	}
	if stt.calls != 0 {
		t.Errorf("stt calls = %d", stt.calls)
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	p := New(&Options{
		STT:      &fakeSTT{},
		TTS:      &fakeTTS{},
		Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
	})

	_, err := p.Run(context.Background(), &Request{
		AudioPath:  filepath.Join(dir, "does-not-exist.wav"),
		OutputPath: filepath.Join(dir, "response.wav"),
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
}

func translateServer(t *testing.T, twToEn, enToTw string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			In   string `json:"in"`
			Lang string `json:"lang"`
		}
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &req); err != nil {
			t.Errorf("bad translate request: %v", err)
		}
		switch req.Lang {
		case "tw-en":
			w.Write([]byte(`"` + twToEn + `"`))
		case "en-tw":
			w.Write([]byte(`"` + enToTw + `"`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestRunTranslates(t *testing.T) {
	dir := t.TempDir()
	server := translateServer(t, "what is your name", "me din de cultiflow")
	defer server.Close()

	repo := qa.NewMemoryRepository()
	seedPair(t, repo, "What is your name?", "My name is Cultiflow.")

	stt := &fakeSTT{text: "wo din de sɛn"}
	tts := &fakeTTS{}
	p := New(&Options{
		STT: stt,
		TTS: tts,
		Translator: translator.NewClient(&config.TranslateConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
		}),
		Resolver:       qa.NewResolver(repo, qa.Options{}),
		SpeechLanguage: constants.LANG_TWI,
		LookupLanguage: constants.LANG_ENGLISH,
	})

	res, err := p.Run(context.Background(), &Request{
		AudioPath:  writeInputWAV(t, dir),
		OutputPath: filepath.Join(dir, "response.wav"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Lookup != "what is your name" || res.LookupLang != constants.LANG_ENGLISH {
		t.Errorf("lookup = %q (%s)", res.Lookup, res.LookupLang)
	}
	if res.Source != qa.SourceStored {
		t.Errorf("source = %q", res.Source)
	}
	if res.Answer != "me din de cultiflow" || res.AnswerLang != constants.LANG_TWI {
		t.Errorf("answer = %q (%s)", res.Answer, res.AnswerLang)
	}
	if tts.last != "me din de cultiflow" {
		t.Errorf("synthesized text = %q", tts.last)
	}
}

func TestRunTranslationFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	stt := &fakeSTT{text: "wo ho te sɛn"}
	tts := &fakeTTS{}
	p := New(&Options{
		STT: stt,
		TTS: tts,
		Translator: translator.NewClient(&config.TranslateConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Timeout: 5 * time.Second,
		}),
		Resolver:       qa.NewResolver(qa.NewMemoryRepository(), qa.Options{}),
		SpeechLanguage: constants.LANG_TWI,
		LookupLanguage: constants.LANG_ENGLISH,
	})

	res, err := p.Run(context.Background(), &Request{
		AudioPath:  writeInputWAV(t, dir),
		OutputPath: filepath.Join(dir, "response.wav"),
	})
	if err != nil {
		t.Fatalf("translation failure must not fail the turn: %v", err)
	}
	if res.Lookup != "wo ho te sɛn" || res.LookupLang != constants.LANG_TWI {
		t.Errorf("lookup = %q (%s)", res.Lookup, res.LookupLang)
	}
	if res.AnswerLang != constants.LANG_ENGLISH {
		t.Errorf("answer lang = %q, stored text gets spoken untranslated", res.AnswerLang)
	}
}

func TestRunValidation(t *testing.T) {
	p := New(&Options{TTS: &fakeTTS{}, Resolver: qa.NewResolver(qa.NewMemoryRepository(), qa.Options{})})

	if _, err := p.Run(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
	if _, err := p.Run(context.Background(), &Request{OutputPath: "out.wav"}); err == nil {
		t.Error("expected error for missing input")
	}
	if _, err := p.Run(context.Background(), &Request{Text: "hello"}); err == nil {
		t.Error("expected error for missing output path")
	}
}
