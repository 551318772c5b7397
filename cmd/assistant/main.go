package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cultiflow/cultivoice/cmd/bootstrap"
	"github.com/cultiflow/cultivoice/pkg/audio"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/constants"
	"github.com/cultiflow/cultivoice/pkg/interaction"
	"github.com/cultiflow/cultivoice/pkg/logger"
	"github.com/cultiflow/cultivoice/pkg/pipeline"
	"github.com/cultiflow/cultivoice/pkg/qa"
	"github.com/cultiflow/cultivoice/pkg/recognizer"
	"github.com/cultiflow/cultivoice/pkg/synthesizer"
	"github.com/cultiflow/cultivoice/pkg/translator"
	"github.com/cultiflow/cultivoice/pkg/utils"
)

func main() {
	// 1. Parse Command Line Parameters
	text := flag.String("text", "", "literal question, skips transcription")
	output := flag.String("o", "", "output WAV path (default <recordings>/response.wav)")
	lang := flag.String("lang", "", "speech language (tw, en)")
	callerID := flag.String("caller-id", "", "caller number for the interaction record")
	extension := flag.String("extension", "", "dialplan extension answering the call")
	mode := flag.String("mode", "", "running environment (development, test, production)")
	init := flag.Bool("init", false, "initialize database")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
		os.Setenv("MODE", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	if *lang != "" {
		config.GlobalConfig.App.SpeechLanguage = *lang
		config.GlobalConfig.Services.STT.Language = *lang
		config.GlobalConfig.Services.TTS.Language = *lang
	}
	if *extension != "" {
		config.GlobalConfig.App.Extension = *extension
	}
	if err := config.GlobalConfig.Validate(); err != nil {
		panic("config invalid: " + err.Error())
	}

	// 4. Load Log Configuration
	err := logger.Init(&config.GlobalConfig.Log, config.GlobalConfig.App.Mode)
	if err != nil {
		panic(err)
	}

	// 5. Print Banner
	if err := bootstrap.PrintBannerFromFile("banner.txt", config.GlobalConfig.App.Name); err != nil {
		log.Fatalf("unload banner: %v", err)
	}

	// 6. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath: *initSQL, // Can be specified via --init-sql
		AutoMigrate: *init,    // Whether to migrate entities
		SeedNonProd: *init,    // Non-production starter answers
	})
	if err != nil {
		// Persistence never decides the exit code, the resolver degrades
		// to its in-memory store.
		logger.Error("database setup failed, continuing without persistence", zap.Error(err))
	}

	// 7. Load Base Configs
	speechLang := config.GlobalConfig.App.SpeechLanguage
	if speechLang == "" {
		speechLang = constants.LANG_TWI
	}
	lookupLang := config.GlobalConfig.App.LookupLanguage
	if lookupLang == "" {
		lookupLang = constants.LANG_ENGLISH
	}
	recordingsDir := config.GlobalConfig.Recordings.Dir
	if recordingsDir == "" {
		recordingsDir = "./recordings"
	}

	logger.Info("checked config -- languages: ", zap.String("speech", speechLang), zap.String("lookup", lookupLang))
	logger.Info("checked config -- qa-backend: ", zap.String("backend", config.GlobalConfig.QA.Backend))
	logger.Info("checked config -- providers: ", zap.String("stt", config.GlobalConfig.Services.STT.Provider), zap.String("tts", config.GlobalConfig.Services.TTS.Provider))
	logger.Info("checked config -- mode: ", zap.String("mode", config.GlobalConfig.App.Mode))

	// 8. Initialize Global Cache
	utils.InitGlobalCache(1024, 5*time.Minute)

	// 9. Build the answer store and services
	mirror := bootstrap.OpenMirror(&config.GlobalConfig.QA)
	repo := qa.NewRepository(config.GlobalConfig.QA.Backend, db, mirror)
	if repo.Name() == "memory" {
		if err := qa.SeedBuiltins(repo, lookupLang); err != nil {
			logger.Warn("failed to seed builtin answers", zap.Error(err))
		}
	}
	resolver := qa.NewResolver(repo, qa.Options{
		Language:      lookupLang,
		FuzzyOrder:    config.GlobalConfig.QA.FuzzyOrder,
		MinFuzzyWords: config.GlobalConfig.QA.MinFuzzyWords,
	})

	stt, err := recognizer.NewTranscribeService(&config.GlobalConfig.Services.STT)
	if err != nil {
		logger.Fatal("failed to create STT service", zap.Error(err))
	}
	tts, err := synthesizer.NewSynthesisService(&config.GlobalConfig.Services.TTS, utils.GlobalCache, nil)
	if err != nil {
		logger.Fatal("failed to create TTS service", zap.Error(err))
	}
	fallback := config.GlobalConfig.Recordings.FallbackClip
	if _, err := os.Stat(fallback); os.IsNotExist(err) {
		primeFallbackClip(tts, fallback, speechLang)
	}
	var translate *translator.Client
	if config.GlobalConfig.NeedsTranslation() {
		translate = translator.NewClient(&config.GlobalConfig.Services.Translate)
	}

	sinks := make([]interaction.Sink, 0, 3)
	if db != nil {
		sinks = append(sinks, interaction.NewDatabaseSink(db))
	}
	sinks = append(sinks,
		interaction.NewSnapshotSink(recordingsDir),
		interaction.NewLiveLogSink(recordingsDir))

	engine := pipeline.New(&pipeline.Options{
		DB:             db,
		STT:            stt,
		TTS:            tts,
		Translator:     translate,
		Resolver:       resolver,
		Recorder:       interaction.NewRecorder(sinks...),
		SpeechLanguage: speechLang,
		LookupLanguage: lookupLang,
		FallbackClip:   fallback,
	})

	// 10. Process one caller turn
	audioPath := flag.Arg(0)
	if *text == "" && audioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: assistant [flags] <audio-file> | assistant -text \"question\"")
		flag.Usage()
		os.Exit(2)
	}
	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(recordingsDir, constants.FILE_RESPONSE_WAV)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		logger.Warn("failed to create output directory", zap.Error(err))
	}

	res, err := engine.Run(context.Background(), &pipeline.Request{
		AudioPath:  audioPath,
		Text:       *text,
		OutputPath: outputPath,
		Caller:     *callerID,
		Extension:  config.GlobalConfig.App.Extension,
	})
	if err != nil {
		logger.Error("interaction failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("interaction completed",
		zap.String("status", res.Status),
		zap.String("source", string(res.Source)),
		zap.String("answer", res.Answer),
		zap.String("output", res.OutputPath))
	logger.Sync()
}

// primeFallbackClip renders the apology line to the configured fallback
// path so the first failed turn already has audio to play.
func primeFallbackClip(tts synthesizer.SynthesisService, path, language string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clip, err := tts.Synthesize(ctx, qa.ApologyFor(language))
	if err != nil {
		logger.Warn("failed to render fallback clip", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("failed to create fallback directory", zap.Error(err))
		return
	}
	if err := audio.WriteWAV(path, clip); err != nil {
		logger.Warn("failed to write fallback clip", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("fallback clip rendered", zap.String("path", path), zap.String("language", language))
}
