package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	msqlite "modernc.org/sqlite"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// SQLiteLowerFunc names a SQLite scalar function that lowercases with
// Unicode case folding. The built-in lower() only folds ASCII.
const SQLiteLowerFunc = "unicode_lower"

func init() {
	err := msqlite.RegisterDeterministicScalarFunction(SQLiteLowerFunc, 1,
		func(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
	if err != nil {
		panic(fmt.Sprintf("register sqlite function %s: %v", SQLiteLowerFunc, err))
	}
}

// Service exposes the connection pool and the scoped transaction wrapper
// used by every mutating operation.
type Service interface {
	Health(ctx context.Context) map[string]string
	Close() error
	GetDB() *gorm.DB
	Dialect() string
	Migrate() error
	// WithTx runs fn inside a transaction bound to ctx. The transaction is
	// committed when fn returns nil and rolled back on error or panic.
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Options struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
	// NowFunc overrides the clock used for created_at/updated_at.
	NowFunc func() time.Time
}

type service struct {
	db      *gorm.DB
	dialect string
	name    string
}

// New opens the database named by opts.URL. postgres:// URLs and
// key=value DSNs use Postgres through pgx; sqlite:// and file: URLs use
// the pure Go SQLite driver.
func New(opts Options) (Service, error) {
	dialector, dialect, name, err := openDialector(opts.URL)
	if err != nil {
		return nil, err
	}

	nowFunc := opts.NowFunc
	if nowFunc == nil {
		// Postgres keeps microseconds; truncating keeps responses equal to
		// what is read back later.
		nowFunc = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  parseLogLevel(opts.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newLogger,
		NowFunc: nowFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s database: %w", dialect, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}

	if dialect == DialectSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL"} {
			if err := db.Exec(p).Error; err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("exec %q: %w", p, err)
			}
		}
	} else {
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	return &service{db: db, dialect: dialect, name: name}, nil
}

func openDialector(url string) (gorm.Dialector, string, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return nil, "", "", errors.New("database url is empty")
	case strings.HasPrefix(url, "sqlite://"):
		return sqliteDialector(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"):
		return sqliteDialector(url)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"), strings.Contains(url, "host="):
		cfg, err := pgx.ParseConfig(url)
		if err != nil {
			return nil, "", "", fmt.Errorf("parse postgres url: %w", err)
		}
		return postgres.New(postgres.Config{DSN: url, DriverName: "pgx"}), DialectPostgres, cfg.Database, nil
	default:
		return nil, "", "", fmt.Errorf("unsupported database url %q", redact(url))
	}
}

func sqliteDialector(dsn string) (gorm.Dialector, string, string, error) {
	if dsn == "" {
		return nil, "", "", errors.New("sqlite path is empty")
	}
	name := dsn
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		name = dsn[:i]
	}
	if !strings.Contains(dsn, "_time_format=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
	return sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, DialectSQLite, name, nil
}

// redact drops everything before the host so credentials never reach logs.
func redact(url string) string {
	if i := strings.LastIndexByte(url, '@'); i >= 0 {
		return "***" + url[i:]
	}
	return url
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

func (s *service) Dialect() string {
	return s.dialect
}

// Migrate creates or updates the todos table.
func (s *service) Migrate() error {
	return s.db.AutoMigrate(&domain.Todo{})
}

func (s *service) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback().Error; rbErr != nil {
				log.Printf("Error rolling back transaction: %v", rbErr)
			}
			return
		}
		if cErr := tx.Commit().Error; cErr != nil {
			err = fmt.Errorf("commit transaction: %w", cErr)
		}
	}()

	return fn(tx)
}

// Health pings the database and reports pool statistics. "status" is
// "healthy" or "unhealthy".
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "unhealthy"
		stats["database"] = "disconnected"
		stats["error"] = "failed to get underlying DB for health check"
		log.Printf("Error getting DB for health check: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "unhealthy"
		stats["database"] = "disconnected"
		stats["error"] = "database connection failed"
		log.Printf("db down: %v", err)
		return stats
	}

	stats["status"] = "healthy"
	stats["database"] = "connected"
	stats["message"] = "All systems operational"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.MaxOpenConnections > 0 && dbStats.OpenConnections > dbStats.MaxOpenConnections*4/5 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB for closing: %v", err)
		return err
	}
	log.Printf("Closing connection pool for database: %s", s.name)
	return sqlDB.Close()
}
