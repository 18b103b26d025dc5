// Package storage opens the repositories of the configured database engine.
package storage

import (
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/analytics"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/core/user"
	"github.com/trezcool/academy/storage/database"
	"github.com/trezcool/academy/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academy/storage/database/sqlx"
)

type Repositories struct {
	Users          user.Repository
	Catalog        catalog.Repository
	Progress       progress.Repository
	Attempts       assessment.Repository
	Certifications certification.Repository
	Analytics      analytics.Repository

	// DB is nil with the memory engine.
	DB *sqlx.DB
}

// Close releases the underlying database, if any.
func (r Repositories) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// NewInMemory returns repositories sharing `db`.
func NewInMemory(db *inmem.DB) Repositories {
	return Repositories{
		Users:          inmem.NewUserRepository(db),
		Catalog:        inmem.NewCatalogRepository(db),
		Progress:       inmem.NewProgressRepository(db),
		Attempts:       inmem.NewAttemptRepository(db),
		Certifications: inmem.NewCertificationRepository(db),
		Analytics:      inmem.NewAnalyticsRepository(db),
	}
}

// Open returns the repositories of the configured engine.
// With postgres, the database is created if needed and migrated when `migrate` is set.
func Open(conf *core.Config, migrate bool) (Repositories, error) {
	if conf.Database.InMemory() {
		return NewInMemory(inmem.NewDB()), nil
	}

	if migrate {
		if err := database.CreateIfNotExist(conf); err != nil {
			return Repositories{}, errors.Wrap(err, "creating database")
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return Repositories{}, err
	}
	if migrate {
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return Repositories{}, errors.Wrap(err, "migrating database")
		}
	}

	return Repositories{
		Users:          sqlxrepos.NewUserRepository(db),
		Catalog:        sqlxrepos.NewCatalogRepository(db),
		Progress:       sqlxrepos.NewProgressRepository(db),
		Attempts:       sqlxrepos.NewAttemptRepository(db),
		Certifications: sqlxrepos.NewCertificationRepository(db),
		Analytics:      sqlxrepos.NewAnalyticsRepository(db),
		DB:             db,
	}, nil
}
