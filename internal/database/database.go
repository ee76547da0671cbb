package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/mprgo/internal/config"
	"github.com/xelth-com/mprgo/internal/models"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
	embeddedPassword = "postgres"
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *zap.Logger
}

// stopStaleEmbedded terminates a postgres left behind by a crashed run so the
// embedded port can be reused.
func stopStaleEmbedded(log *zap.Logger) {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")

	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	if !scanner.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		log.Warn("could not parse postmaster.pid", zap.Error(err))
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil || process.Signal(syscall.Signal(0)) != nil {
		log.Info("removing stale postmaster.pid", zap.Int("pid", pid))
		os.Remove(pidFile)
		return
	}

	log.Warn("stopping orphaned embedded postgres", zap.Int("pid", pid))
	_ = process.Signal(syscall.SIGTERM)

	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if process.Signal(syscall.Signal(0)) != nil {
			os.Remove(pidFile)
			return
		}
	}

	process.Kill()
	time.Sleep(500 * time.Millisecond)
	os.Remove(pidFile)
}

func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// IsEmbedded reports whether cfg selects the embedded postgres instance:
// a localhost host with no password.
func IsEmbedded(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

// DSN builds the postgres connection string for cfg
func DSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode,
	)
}

// Connect establishes a connection to a PostgreSQL database (external or embedded)
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	if IsEmbedded(cfg) {
		log.Info("starting embedded postgres", zap.String("data_path", embeddedDataPath))

		stopStaleEmbedded(log)

		if isPortInUse(embeddedPort) {
			for i := 0; i < 6 && isPortInUse(embeddedPort); i++ {
				time.Sleep(500 * time.Millisecond)
			}
			if isPortInUse(embeddedPort) {
				return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
			}
		}

		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password(embeddedPassword))

		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		cfg.Password = embeddedPassword
		log.Info("embedded postgres started", zap.Int("port", embeddedPort))
	} else {
		log.Info("connecting to postgres", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
	}

	logLevel := logger.Warn
	if cfg.Quiet {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connection established")

	return &DB{
		DB:       db,
		embedded: embedded,
		log:      log,
	}, nil
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	if db.embedded != nil {
		db.log.Info("stopping embedded postgres")
		_ = db.embedded.Stop()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates every table the service owns
func (db *DB) Migrate() error {
	return db.DB.AutoMigrate(models.All()...)
}
