// Package certification decides whether a user is certified.
// A user is certified by their first passing attempt; the status is never revoked by the normal flow.
package certification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/notify"
)

type Certification struct {
	ID                int        `json:"id"`
	UserID            string     `json:"user_id"`
	IsCertified       bool       `json:"is_certified"`
	CertificationDate *time.Time `json:"certification_date"`
	PassingAttemptID  string     `json:"passing_attempt_id,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at"` // informational; not enforced
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type (
	Repository interface {
		// GetCertification returns found = false when the user has no certification row.
		GetCertification(ctx context.Context, userID string) (cert Certification, found bool, err error)
		// Certify upserts the user's row as certified by `attemptID` at `at`, unless it already is.
		// It reports whether the row was newly certified.
		Certify(ctx context.Context, userID, attemptID string, at time.Time) (bool, error)
	}

	// Cache remembers the certified users.
	Cache interface {
		GetCertified(ctx context.Context, userID string) (certified bool, hit bool, err error)
		SetCertified(ctx context.Context, userID string, certified bool) error
		Invalidate(ctx context.Context, userID string) error
	}

	Gate interface {
		Certify(ctx context.Context, userID, attemptID string) (bool, error)
		IsCertified(ctx context.Context, userID string) (bool, error)
		Get(ctx context.Context, userID string) (Certification, bool, error)
	}

	Service struct {
		repo     Repository
		cache    Cache
		notifier notify.Notifier
		logger   core.Logger
	}
)

var _ Gate = (*Service)(nil) // interface compliance check

// NewService returns the certification gate; `cache` may be nil.
func NewService(repo Repository, cache Cache, notifier notify.Notifier, logger core.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, cache: cache, notifier: notifier, logger: logger}
}

// Certify certifies the user with `attemptID` as evidence.
// It is idempotent: an already certified user keeps their first certification date and attempt.
func (svc *Service) Certify(ctx context.Context, userID, attemptID string) (bool, error) {
	newly, err := svc.repo.Certify(ctx, userID, attemptID, core.NowFunc().UTC())
	if err != nil {
		return false, errors.Wrap(err, "certifying user")
	}

	if svc.cache != nil {
		if err := svc.cache.Invalidate(ctx, userID); err != nil {
			svc.logger.Warn("certification: invalidating cache", err)
		}
	}
	if newly {
		svc.notifier.Notify(ctx, notify.Event{
			Type:      notify.EventUserCertified,
			UserID:    userID,
			AttemptID: attemptID,
		})
	}
	return newly, nil
}

// IsCertified answers the gate question; a user without certification row is not certified.
// Only positive answers are cached: a negative one could be written after a concurrent Certify invalidated it.
func (svc *Service) IsCertified(ctx context.Context, userID string) (bool, error) {
	if svc.cache != nil {
		certified, hit, err := svc.cache.GetCertified(ctx, userID)
		if err != nil {
			svc.logger.Warn("certification: reading cache", err)
		} else if hit {
			return certified, nil
		}
	}

	cert, found, err := svc.repo.GetCertification(ctx, userID)
	if err != nil {
		return false, errors.Wrap(err, "getting certification")
	}
	certified := found && cert.IsCertified

	if certified && svc.cache != nil {
		if err := svc.cache.SetCertified(ctx, userID, true); err != nil {
			svc.logger.Warn("certification: writing cache", err)
		}
	}
	return certified, nil
}

func (svc *Service) Get(ctx context.Context, userID string) (Certification, bool, error) {
	return svc.repo.GetCertification(ctx, userID)
}
