package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/fs"
)

const (
	driverName   = "postgres"
	pingAttempts = 30
)

// dsn builds the connection URL to `dbName`, as the admin user when `admin` is set and one is configured.
func dsn(conf *core.Config, dbName string, admin bool) string {
	creds := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		creds = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}
	q := url.Values{"timezone": {"utc"}, "sslmode": {"require"}}
	if conf.Database.DisableTLS {
		q.Set("sslmode", "disable")
	}
	return (&url.URL{Scheme: driverName, User: creds, Host: conf.Database.Address(), Path: dbName, RawQuery: q.Encode()}).String()
}

// connect opens `dbName` and waits for the server, backing off 100ms more after each failed ping.
func connect(conf *core.Config, dbName string, admin bool) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn(conf, dbName, admin))
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", dbName)
	}
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	_ = db.Close()
	return nil, errors.Wrapf(err, "pinging %s", dbName)
}

// Open connects to the app database.
func Open(conf *core.Config) (*sqlx.DB, error) {
	return connect(conf, conf.Database.Name, false)
}

// ensure runs `create` unless `check` finds a row.
func ensure(db *sqlx.DB, check, create string, args ...interface{}) error {
	var found bool
	err := db.Get(&found, check, args...)
	if err == nil && found {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	_, err = db.Exec(create)
	return err
}

// CreateIfNotExist creates the app role as the admin user, then the app database as the app role.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.User != "" {
		adminDB, err := connect(conf, "postgres", true)
		if err != nil {
			return err
		}
		// role names and passwords cannot be bound as parameters
		err = ensure(adminDB,
			"SELECT true FROM pg_roles WHERE rolname = $1",
			fmt.Sprintf("CREATE USER %q CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password),
			conf.Database.User,
		)
		_ = adminDB.Close()
		if err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}

	db, err := connect(conf, "postgres", false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	err = ensure(db,
		"SELECT true FROM pg_database WHERE datname = $1",
		fmt.Sprintf("CREATE DATABASE %q", conf.Database.Name),
		conf.Database.Name,
	)
	return errors.Wrap(err, "creating database")
}

// RunMigrations runs the goose `command` (up, down, status...) over the embedded migrations.
func RunMigrations(db *sql.DB, command string, args ...string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(driverName); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	return errors.Wrapf(goose.Run(command, db, appfs.MigrationsDir, args...), "running migrations %s", command)
}

func Migrate(db *sql.DB) error {
	return RunMigrations(db, "up")
}
