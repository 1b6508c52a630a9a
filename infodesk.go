package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/backend"
	"github.com/wansing/infodesk/config"
	"github.com/wansing/infodesk/core"
	"github.com/wansing/infodesk/filestore"
	"github.com/wansing/infodesk/logging"
	"github.com/wansing/infodesk/sqldb"
	"github.com/wansing/infodesk/sqldb/mysql"
	"github.com/wansing/infodesk/sqldb/sqlite3"
	"github.com/wansing/infodesk/util"
	"github.com/xo/dburl"
	"golang.org/x/crypto/ssh/terminal"
)

const sessionCleanupInterval = 10 * time.Minute

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

// flags which are in both FlagSets
type commonFlags struct {
	config *string
	db     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", "", "read settings from this ini or yaml `file`"),
		db:     fs.String("db", config.DefaultDB, "sql database url, see github.com/xo/dburl"),
	}
}

// overrides returns the values of explicitly set flags, so they take precedence over the config file and the environment.
func overrides(fs *flag.FlagSet) map[string]string {
	var set = map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = f.Value.String()
	})
	return set
}

func main() {

	// default FlagSet

	var serveCommon = addCommonFlags(flag.CommandLine)
	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	flag.String("base", "", "strip off this `prefix` from every HTTP request and prepend it to image URLs")
	flag.String("listen", "127.0.0.1:8080", "serve HTTP content at this `ip:port`")
	flag.String("media", "media", "store uploaded images at this afs `url` or directory")
	flag.String("log-level", "info", "debug, info, warn or error")

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)
	var initCommon = addCommonFlags(initFlags)
	var initCreateSuperuser = initFlags.Bool("create-superuser", false, "creates an approved superuser with the given email")
	var initResetPassword = initFlags.Bool("reset-password", false, "sets a new password for the given email")
	var initApprove = initFlags.Bool("approve", false, "approves the account with the given email")
	var initApprover = initFlags.Bool("approver", false, "with -approve: allows the account to approve content")
	var initList = initFlags.Bool("list", false, "lists all accounts")
	var email = initFlags.String("email", "", "specifies an account `email`")
	var name = initFlags.String("name", "", "specifies the full `name` of a new account")

	var common commonFlags
	var set map[string]string
	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
		common = initCommon
		set = overrides(initFlags)
	} else {
		flag.Parse()
		common = serveCommon
		set = overrides(flag.CommandLine)
	}

	// config

	cfg, err := config.Load(*common.config)
	if err != nil {
		log.Printf("could not load config: %v", err)
		return
	}
	for flagName, value := range set {
		switch flagName {
		case "db":
			cfg.DB = value
		case "base":
			cfg.Base = value
		case "listen":
			cfg.Listen = value
		case "media":
			cfg.Media = value
		case "log-level":
			cfg.LogLevel = value
		}
	}
	cfg.Base = config.CleanBase(cfg.Base)

	var logger = logging.New(cfg.LogLevel)

	// database

	dbURL, err := dburl.Parse(cfg.DB)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	dialect, err := sqldb.ParseDialect(dbURL.Driver)
	if err != nil {
		log.Println(err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.URL.Redacted())

	// assemble stuff

	var sessionStore scs.Store
	switch dialect {
	case sqldb.MySQL:
		sessionStore = mysql.NewSessionStore(sqlDB, sessionCleanupInterval)
	case sqldb.SQLite3:
		sessionStore = sqlite3.NewSessionStore(sqlDB, sessionCleanupInterval)
	}

	images, err := filestore.New(context.Background(), cfg.Media, cfg.MaxImageBytes)
	if err != nil {
		log.Println(err)
		return
	}

	db := &core.CoreDB{
		AccountDB:              sqldb.NewAccountDB(sqlDB, dialect),
		SubmissionDB:           sqldb.NewSubmissionDB(sqlDB, dialect),
		Images:                 images,
		Log:                    logger,
		MinPasswordLength:      cfg.MinPasswordLength,
		RequirePasswordConfirm: cfg.RequirePasswordConfirm,
	}
	db.Init(sessionStore, cfg.Base, cfg.SessionLifetime, cfg.SessionIdleTimeout)

	// init

	if initFlags.Parsed() {
		var ctx = context.Background()
		switch {
		case *initCreateSuperuser:
			createSuperuser(ctx, db, *email, *name)
		case *initResetPassword:
			resetPassword(ctx, db, *email)
		case *initApprove:
			approve(ctx, db, *email, *initApprover)
		case *initList:
			list(ctx, db)
		default:
			initFlags.Usage()
		}
		return
	}

	listen(db, cfg, logger)
}

func readPassword() (string, error) {

	fmt.Printf("password: ")
	pass1, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Printf("repeat password: ")
	pass2, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return "", errors.New("passwords don't match")
	}
	return string(pass1), nil
}

func createSuperuser(ctx context.Context, db *core.CoreDB, email, name string) {

	if email == "" {
		log.Println("-email is required")
		return
	}

	password, err := readPassword()
	if err != nil {
		log.Println(err)
		return
	}

	account, err := db.CreateSuperuser(ctx, email, password, name)
	if err != nil {
		log.Printf("error creating superuser %s: %v", email, err)
		return
	}
	log.Printf("created superuser %s", account.Email)
}

func resetPassword(ctx context.Context, db *core.CoreDB, email string) {

	account, err := db.GetAccountByEmail(ctx, auth.CleanEmail(email))
	if err != nil {
		log.Printf("error getting account %s: %v", email, err)
		return
	}

	password, err := readPassword()
	if err != nil {
		log.Println(err)
		return
	}

	if err := db.SetPassword(ctx, account, password); err != nil {
		log.Printf("error setting password: %v", err)
		return
	}
	log.Printf("changed password of %s", account.Email)
}

// approve approves the account on behalf of any superuser.
func approve(ctx context.Context, db *core.CoreDB, email string, approver bool) {

	superuser, err := db.AnySuperuser(ctx)
	if err != nil {
		log.Printf("error getting a superuser, create one with -create-superuser: %v", err)
		return
	}

	account, err := db.GetAccountByEmail(ctx, auth.CleanEmail(email))
	if err != nil {
		log.Printf("error getting account %s: %v", email, err)
		return
	}

	if err := db.ApproveAccount(ctx, account, superuser, approver); err != nil {
		log.Printf("error approving %s: %v", email, err)
		return
	}
	log.Printf("approved %s (%s)", account.Email, account.Capabilities)
}

func list(ctx context.Context, db *core.CoreDB) {

	accounts, err := db.ListAccounts(ctx, core.Page{Limit: core.MaxLimit})
	if err != nil {
		log.Printf("error listing accounts: %v", err)
		return
	}

	var w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCAPABILITIES\tCREATED")
	for _, a := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Email, a.DisplayName, a.Role, a.Capabilities, a.CreatedAt.Format(time.DateTime))
	}
	w.Flush()
}

func listen(db *core.CoreDB, cfg config.Config, logger *slog.Logger) {

	var mux = http.NewServeMux()
	util.HandlePrefix(mux, cfg.Base, backend.NewRouter(db, backend.Options{
		Base: cfg.Base,
		Log:  logger,
	}))

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Println(err)
		return
	}

	logger.Info("listening", "addr", cfg.Listen, "base", cfg.Base)

	httpSrv := &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("error shutting down: %v", err)
	}
}
