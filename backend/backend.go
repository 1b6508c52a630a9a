// Package backend provides the JSON API.
package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/core"
)

const sessionKey = "account_id"

type Options struct {
	Base         string // path prefix without trailing slash, used for absolute image URLs
	Log          *slog.Logger
	MaxBodyBytes int64 // defaults to 8 MiB
}

// request bundles what a handler needs. Account is nil in public handlers.
type request struct {
	*http.Request
	Account *core.Account
	db      *core.CoreDB
	input   *input
	opts    *Options
	w       http.ResponseWriter
}

type handlerFunc func(w http.ResponseWriter, r *request, params httprouter.Params) error

type backend struct {
	db   *core.CoreDB
	opts Options
}

func (b *backend) newRequest(w http.ResponseWriter, req *http.Request) (*request, error) {
	in, err := parseInput(w, req, b.opts.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	return &request{
		Request: req,
		db:      b.db,
		input:   in,
		opts:    &b.opts,
		w:       w,
	}, nil
}

// public calls f without checking credentials.
func (b *backend) public(f handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		r, err := b.newRequest(w, req)
		if err == nil {
			defer r.input.close()
			err = f(w, r, params)
		}
		if err != nil {
			b.writeError(w, req, err)
		}
	}
}

// middleware resolves the account of the request and requires the given capability before calling f.
func (b *backend) middleware(required auth.Capability, f handlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		r, err := b.newRequest(w, req)
		if err == nil {
			defer r.input.close()
			r.Account, err = r.authorize(required)
		}
		if err == nil {
			err = f(w, r, params)
		}
		if err != nil {
			b.writeError(w, req, err)
		}
	}
}

// authorize tries the basic auth header, the email and password fields of the body and the session, in this order.
func (r *request) authorize(required auth.Capability) (*core.Account, error) {

	if email, password, ok := r.BasicAuth(); ok {
		return r.db.Authorize(r.Context(), core.Credentials{Email: email, Password: password}, required)
	}

	if cred := r.input.credentials(); !cred.Empty() {
		return r.db.Authorize(r.Context(), cred, required)
	}

	if r.db.SessionManager != nil {
		if id := r.db.SessionManager.GetInt(r.Context(), sessionKey); id != 0 {
			account, err := r.db.AuthorizeAccount(r.Context(), id, required)
			if errors.Is(err, core.ErrAuthentication) {
				r.db.SessionManager.Remove(r.Context(), sessionKey) // account is gone
			}
			return account, err
		}
	}

	return nil, &core.ValidationError{Message: "email and password required"}
}

// NewRouter returns the API handler. It must be mounted with the prefix stripped.
func NewRouter(db *core.CoreDB, opts Options) http.Handler {

	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 8 << 20
	}

	var b = &backend{
		db:   db,
		opts: opts,
	}

	var router = httprouter.New()
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	router.PanicHandler = func(w http.ResponseWriter, req *http.Request, v interface{}) {
		opts.Log.Error("panic", "method", req.Method, "path", req.URL.Path, "value", v)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}

	// public
	router.POST("/api/register/", b.public(register))
	router.POST("/api/login/", b.public(login))
	router.POST("/api/logout/", b.public(logout))
	router.GET("/healthz", b.public(healthz))

	// any account
	router.GET("/api/profile/", b.middleware(auth.None, profile))

	// approved accounts
	router.POST("/api/submit-info/", b.middleware(auth.Approved, submitInfo))
	router.GET("/api/active-info/", b.middleware(auth.Approved, activeInfo))
	router.GET("/api/my-submissions/", b.middleware(auth.Approved, mySubmissions))

	// approvers and superusers
	router.GET("/api/pending-users/", b.middleware(auth.CanApprove, pendingUsers))
	router.GET("/api/pending-info/", b.middleware(auth.CanApprove, pendingInfo))
	router.POST("/api/approve-info/:id/", b.middleware(auth.CanApprove, approveInfo))
	router.POST("/api/reject-info/:id/", b.middleware(auth.CanApprove, rejectInfo))

	// superusers
	router.POST("/api/approve-user/:id/", b.middleware(auth.Superuser, approveUser))

	if db.Images != nil {
		var media = http.StripPrefix("/media", db.Images)
		router.Handler(http.MethodGet, "/media/*path", media)
		router.Handler(http.MethodHead, "/media/*path", media)
	}

	var handler http.Handler = router
	if db.SessionManager != nil {
		handler = db.SessionManager.LoadAndSave(handler)
	}
	return logRequests(opts.Log, handler)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var start = time.Now()
		var rec = &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		log.Info("request", "method", req.Method, "path", req.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
