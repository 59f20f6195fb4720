package main

import (
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultDatabaseURL = "sqlite://wordfilter.db"

// ParseDatabaseDriver creates the gorm dialector for a database URL of the
// form sqlite://<path> or mysql://<dsn>. An empty URL selects the local
// sqlite file. Unknown schemes return nil.
func ParseDatabaseDriver(dbURL string) gorm.Dialector {
	dbURL = strings.TrimSpace(dbURL)
	if dbURL == "" {
		dbURL = defaultDatabaseURL
	}
	scheme, rest, ok := strings.Cut(dbURL, "://")
	if !ok || rest == "" {
		return nil
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return sqlite.Open(rest)
	case "mysql":
		return mysql.Open(withParseTime(rest))
	default:
		return nil
	}
}

// withParseTime makes the mysql driver scan DATETIME columns into
// time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}
