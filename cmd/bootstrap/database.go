package bootstrap

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cultiflow/cultivoice/internal/models"
	"github.com/cultiflow/cultivoice/pkg/config"
	"github.com/cultiflow/cultivoice/pkg/logger"
)

// Options control database preparation at boot.
type Options struct {
	InitSQLPath string // optional .sql script executed before migration
	AutoMigrate bool   // create or update the schema
	SeedNonProd bool   // load starter data outside production
}

// SetupDatabase opens the configured database, runs the optional init
// script, migrates the schema and seeds starter data. SQL statement
// logging goes to out.
func SetupDatabase(out io.Writer, opts *Options) (*gorm.DB, error) {
	if opts == nil {
		opts = &Options{}
	}

	driver := config.GlobalConfig.Database.Driver
	if driver == "" {
		driver = "sqlite"
	}
	dsn := config.GlobalConfig.Database.DSN
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	gormLog := gormlogger.New(
		stdlog.New(out, "\r\n", stdlog.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(config.GlobalConfig.App.Mode),
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if opts.InitSQLPath != "" {
		if err := execSQLFile(db, opts.InitSQLPath); err != nil {
			return nil, err
		}
		logger.Info("init sql executed", zap.String("path", opts.InitSQLPath))
	}

	if opts.AutoMigrate {
		if err := db.AutoMigrate(&models.Call{}, &models.Conversation{}, &models.QAPair{}); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		logger.Info("database schema migrated", zap.String("driver", driver))
	}

	if opts.SeedNonProd && config.GlobalConfig.App.Mode != "production" {
		if err := NewSeedService(db).SeedAll(); err != nil {
			return nil, fmt.Errorf("failed to seed database: %w", err)
		}
	}

	return db, nil
}

// OpenMirror opens the embedded QA mirror for the composite backend.
// Mirror trouble never blocks boot, the caller continues with the
// primary store only.
func OpenMirror(cfg *config.QAConfig) *gorm.DB {
	if cfg.MirrorDSN == "" {
		return nil
	}
	db, err := gorm.Open(sqlite.Open(cfg.MirrorDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Warn("failed to open qa mirror, continuing without it",
			zap.String("dsn", cfg.MirrorDSN), zap.Error(err))
		return nil
	}
	if err := db.AutoMigrate(&models.QAPair{}); err != nil {
		logger.Warn("failed to migrate qa mirror, continuing without it", zap.Error(err))
		return nil
	}
	return db
}

func gormLogLevel(mode string) gormlogger.LogLevel {
	if mode == "development" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

// execSQLFile runs each statement of a .sql script in order. The first
// failing statement aborts setup.
func execSQLFile(db *gorm.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read init sql: %w", err)
	}
	for _, stmt := range splitSQL(string(data)) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("init sql statement failed: %w", err)
		}
	}
	return nil
}

// splitSQL splits a script on statement-terminating semicolons. Line
// comments are dropped, semicolons inside statements are assumed to sit
// at line ends.
func splitSQL(script string) []string {
	var stmts []string
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmts = append(stmts, strings.TrimSpace(b.String()))
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
