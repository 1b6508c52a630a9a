package core

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/wansing/infodesk/upload"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

type CoreDB struct {
	AccountDB
	SubmissionDB
	Images         upload.Store
	SessionManager *scs.SessionManager

	Clock                  Clock        // defaults to the system clock
	Log                    *slog.Logger // defaults to slog.Default()
	MinPasswordLength      int          // defaults to auth.DefaultMinPasswordLength
	RequirePasswordConfirm bool
}

// Init sets up the session manager. If sessionStore is nil, sessions are kept in memory.
func (c *CoreDB) Init(sessionStore scs.Store, cookiePath string, lifetime, idleTimeout time.Duration) {

	c.SessionManager = scs.New()
	if sessionStore != nil {
		c.SessionManager.Store = sessionStore
	}
	c.SessionManager.Cookie.Name = "infodesk_session"
	c.SessionManager.Cookie.Path = cookiePath + "/"         // 'The default value is "/". Passing the empty string "" will result in it being set to the path that the cookie was issued from.'
	c.SessionManager.Cookie.Persist = false                 // don't store cookie across browser sessions
	c.SessionManager.Cookie.SameSite = http.SameSiteLaxMode // GET requests don't modify anything
	c.SessionManager.Cookie.Secure = false                  // else running on localhost or behind a http proxy fails

	if lifetime > 0 {
		c.SessionManager.Lifetime = lifetime
	}
	if idleTimeout > 0 {
		c.SessionManager.IdleTimeout = idleTimeout
	}
}

// now returns the current time, in UTC and truncated to seconds like the database stores it.
func (c *CoreDB) now() time.Time {
	var clock = c.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return clock.Now().UTC().Truncate(time.Second)
}

func (c *CoreDB) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// Accounts returns the accounts with the given ids. Unknown ids are missing in the result.
func (c *CoreDB) Accounts(ctx context.Context, ids ...int) (map[int]*Account, error) {
	var unique = make([]int, 0, len(ids))
	var seen = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[int]*Account{}, nil
	}
	return c.AccountDB.GetAccounts(ctx, unique)
}
