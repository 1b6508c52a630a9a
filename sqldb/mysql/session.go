// Package mysql provides the session store for mysql databases.
package mysql

import (
	"database/sql"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
)

func NewSessionStore(db *sql.DB, cleanupInterval time.Duration) scs.Store {

	// the mysql driver rejects multiple statements by default
	db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			token CHAR(43) PRIMARY KEY,
			data BLOB NOT NULL,
			expiry TIMESTAMP(6) NOT NULL
		)`)
	db.Exec(`CREATE INDEX sessions_expiry_idx ON sessions (expiry)`) // fails if it exists

	return mysqlstore.NewWithCleanupInterval(db, cleanupInterval)
}
