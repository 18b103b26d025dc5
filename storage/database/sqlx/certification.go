package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/certification"
)

type certificationRow struct {
	ID                int         `db:"id"`
	UserID            string      `db:"user_id"`
	IsCertified       bool        `db:"is_certified"`
	CertificationDate null.Time   `db:"certification_date"`
	PassingAttemptID  null.String `db:"passing_attempt_id"`
	ExpiresAt         null.Time   `db:"expires_at"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

type certificationRepository struct {
	db core.DB
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(db core.DB) certification.Repository {
	return &certificationRepository{db: db}
}

func (repo certificationRepository) GetCertification(ctx context.Context, userID string) (certification.Certification, bool, error) {
	var row certificationRow
	q := `SELECT id, user_id, is_certified, certification_date, passing_attempt_id, expires_at, created_at, updated_at
		FROM certifications WHERE user_id = $1`
	if err := repo.db.GetContext(ctx, &row, q, userID); err != nil {
		if err == sql.ErrNoRows {
			return certification.Certification{}, false, nil
		}
		return certification.Certification{}, false, errors.Wrap(err, "getting certification")
	}
	return certification.Certification{
		ID:                row.ID,
		UserID:            row.UserID,
		IsCertified:       row.IsCertified,
		CertificationDate: utcPtr(row.CertificationDate),
		PassingAttemptID:  row.PassingAttemptID.String,
		ExpiresAt:         utcPtr(row.ExpiresAt),
		CreatedAt:         row.CreatedAt.UTC(),
		UpdatedAt:         row.UpdatedAt.UTC(),
	}, true, nil
}

// Certify relies on the unique user_id: a concurrent certification of the same user updates no row.
func (repo certificationRepository) Certify(ctx context.Context, userID, attemptID string, at time.Time) (bool, error) {
	q := `INSERT INTO certifications (user_id, is_certified, certification_date, passing_attempt_id, created_at, updated_at)
		VALUES ($1, true, $3, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
			SET is_certified = true, certification_date = $3, passing_attempt_id = $2, updated_at = $3
			WHERE certifications.is_certified = false
		RETURNING id`
	var id int
	if err := repo.db.GetContext(ctx, &id, q, userID, attemptID, at.UTC()); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errors.Wrap(err, "certifying user")
	}
	return true, nil
}
