// Package sqldb implements core.AccountDB and core.SubmissionDB for sqlite3 and mysql.
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

type Dialect string

const (
	MySQL   Dialect = "mysql"
	SQLite3 Dialect = "sqlite3"
)

func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case MySQL:
		return MySQL, nil
	case SQLite3:
		return SQLite3, nil
	default:
		return "", fmt.Errorf("unknown database backend: %s", driver)
	}
}

// primaryKey returns the column definition of an auto-incremented integer primary key.
func (d Dialect) primaryKey() string {
	if d == MySQL {
		return "INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY"
}

func (d Dialect) tableOptions() string {
	if d == MySQL {
		return " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci"
	}
	return ""
}

// createIndex skips existing indexes on sqlite3. On mysql, the caller must ignore the error.
func (d Dialect) createIndex(name, table, columns string) string {
	if d == MySQL {
		return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", name, table, columns)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", name, table, columns)
}

// mustExec executes each statement on its own, because the mysql driver rejects multiple statements by default.
func mustExec(db *sql.DB, statements ...string) {
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			panic(fmt.Errorf("executing %q: %w", statement, err))
		}
	}
}

// tryExec is like mustExec but ignores errors.
func tryExec(db *sql.DB, statements ...string) {
	for _, statement := range statements {
		db.Exec(statement)
	}
}

func mustPrepare(db *sql.DB, query string) *sql.Stmt {
	stmt, err := db.Prepare(query)
	if err != nil {
		panic(fmt.Errorf("preparing %q: %w", query, err))
	}
	return stmt
}

// isDuplicate reports whether err is a unique constraint violation.
func isDuplicate(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // ER_DUP_ENTRY
	}
	return false
}

func toUnix(t time.Time) int64 {
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	var t = fromUnix(n.Int64)
	return &t
}
