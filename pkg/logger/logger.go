package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig logging configuration
type LogConfig struct {
	Level      string `env:"LOG_LEVEL" mapstructure:"level"`
	Filename   string `env:"LOG_FILENAME" mapstructure:"filename"`
	MaxSize    int    `env:"LOG_MAX_SIZE" mapstructure:"max_size"` // megabytes
	MaxAge     int    `env:"LOG_MAX_AGE" mapstructure:"max_age"`   // days
	MaxBackups int    `env:"LOG_MAX_BACKUPS" mapstructure:"max_backups"`
	Daily      bool   `env:"LOG_DAILY" mapstructure:"daily"`
}

// log starts as a no-op so packages can log before Init runs
var log = zap.NewNop()

// Init builds the global logger from cfg. The file core always writes
// JSON through lumberjack rotation; outside production a colored
// console core is attached as well.
func Init(cfg *LogConfig, mode string) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	filename := cfg.Filename
	if cfg.Daily {
		filename = dailyName(filename)
	}
	if dir := filepath.Dir(filename); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
	}

	if mode != "production" {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// dailyName inserts the current date before the file extension,
// so ./logs/app.log becomes ./logs/app-2026-01-02.log
func dailyName(filename string) string {
	ext := filepath.Ext(filename)
	base := filename[:len(filename)-len(ext)]
	return base + "-" + time.Now().Format("2006-01-02") + ext
}

// Sync flushes buffered log entries
func Sync() {
	_ = log.Sync()
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
