package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/db/migrate"
)

type Option func(o *options)

type options struct {
	l       *log.Logger
	migrate bool
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.l = l
	}
}

// WithMigration applies pending schema migrations before the db is returned
func WithMigration(enabled bool) Option {
	return func(o *options) {
		o.migrate = enabled
	}
}

// Open opens the sqlite file at path, creating it if needed
func Open(ctx context.Context, path string, opts ...Option) (*sql.DB, error) {
	o := &options{l: log.Default().Named("sqlite"), migrate: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.migrate {
		if err := migrate.MigrateDB(path); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	o.l.Debug("database opened", log.String("path", path))
	return db, nil
}
