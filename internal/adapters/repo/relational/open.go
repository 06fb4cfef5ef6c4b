package relational

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/comprarapida/internal/domain"
)

// Open connects to postgres, mysql or sqlite. Driver options the backend
// depends on (time parsing on mysql, foreign keys on sqlite) are added to the
// DSN when missing.
func Open(driver, dsn string, logger gormlogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(withParam(dsn, "parseTime", "true"))
	case "sqlite", "sqlite3":
		dialector = sqlite.New(sqlite.Config{
			DriverName: sqliteDriverName(),
			DSN:        withParam(dsn, "_foreign_keys", "on"),
		})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	cfg := &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if logger != nil {
		cfg.Logger = logger
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, domain.Unavailable("connect", err)
	}
	return db, nil
}

var registerSQLite sync.Once

// sqliteDriverName registers a sqlite3 driver whose lower() folds the whole of
// Unicode. The built-in one only folds ASCII, which breaks case-insensitive
// search on accented names.
func sqliteDriverName() string {
	const name = "sqlite3_unicode"
	registerSQLite.Do(func() {
		sql.Register(name, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("lower", strings.ToLower, true)
			},
		})
	})
	return name
}

func withParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}
