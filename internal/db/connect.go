// Package db opens the pcremote database and migrates its tables.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/zulandar/pcremote/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds the driver-specific data source name for cfg. An empty
// database selects none, which is what CREATE DATABASE needs.
func DSN(cfg config.StorageConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.Path == ":memory:" {
			return cfg.Path, nil
		}
		return "file:" + cfg.Path + "?_busy_timeout=5000&_foreign_keys=on", nil
	case config.DriverMySQL:
		mc := mysqldriver.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = cfg.Host + ":" + strconv.Itoa(cfg.Port)
		mc.DBName = cfg.Database
		mc.ParseTime = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	case config.DriverPostgres:
		parts := []string{
			"host=" + cfg.Host,
			"port=" + strconv.Itoa(cfg.Port),
			"user=" + cfg.User,
			"sslmode=" + cfg.SSLMode,
		}
		if cfg.Password != "" {
			parts = append(parts, "password="+pgQuote(cfg.Password))
		}
		if cfg.Database != "" {
			parts = append(parts, "dbname="+cfg.Database)
		}
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
}

// pgQuote quotes a libpq keyword value.
func pgQuote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func dialector(cfg config.StorageConfig) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// Connect opens a GORM connection for cfg. SQLite parent directories are
// created as needed.
func Connect(cfg config.StorageConfig) (*gorm.DB, error) {
	if cfg.Driver == config.DriverSQLite && cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db: create %s: %w", dir, err)
			}
		}
	}
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s: %w", describe(cfg), err)
	}
	if cfg.Driver == config.DriverSQLite {
		// One writer avoids "database is locked" under concurrent handlers.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s: %w", describe(cfg), err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// ConnectAdmin opens a server connection without selecting a database, used
// for CREATE DATABASE. SQLite has no server and is rejected.
func ConnectAdmin(cfg config.StorageConfig) (*gorm.DB, error) {
	if cfg.Driver == config.DriverSQLite {
		return nil, fmt.Errorf("db: admin connect: sqlite has no server")
	}
	admin := cfg
	admin.Database = ""
	if cfg.Driver == config.DriverPostgres {
		admin.Database = "postgres"
	}
	d, err := dialector(admin)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, driver, name string) error {
	var sql string
	switch driver {
	case config.DriverMySQL:
		sql = fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	case config.DriverPostgres:
		var n int64
		if err := adminDB.Raw("SELECT count(*) FROM pg_database WHERE datname = ?", name).Scan(&n).Error; err != nil {
			return fmt.Errorf("db: create database %s: %w", name, err)
		}
		if n > 0 {
			return nil
		}
		sql = fmt.Sprintf(`CREATE DATABASE "%s"`, name)
	default:
		return fmt.Errorf("db: create database %s: unsupported driver %q", name, driver)
	}
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}

// Open connects, creating the server database first when needed, and
// migrates every table.
func Open(cfg config.StorageConfig) (*gorm.DB, error) {
	if cfg.Driver != config.DriverSQLite {
		admin, err := ConnectAdmin(cfg)
		if err != nil {
			return nil, err
		}
		err = CreateDatabase(admin, cfg.Driver, cfg.Database)
		Close(admin)
		if err != nil {
			return nil, err
		}
	}
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func describe(cfg config.StorageConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return "sqlite " + cfg.Path
	}
	return fmt.Sprintf("%s %s:%d/%s", cfg.Driver, cfg.Host, cfg.Port, cfg.Database)
}
