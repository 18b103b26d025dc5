package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/academy/core/certification"
)

type certificationRepository struct {
	db *DB
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(db *DB) certification.Repository {
	return &certificationRepository{db: db}
}

func (repo *certificationRepository) GetCertification(_ context.Context, userID string) (certification.Certification, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cert, ok := repo.db.certifications[userID]
	return cert, ok, nil
}

func (repo *certificationRepository) Certify(_ context.Context, userID, attemptID string, at time.Time) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cert, ok := repo.db.certifications[userID]
	if ok && cert.IsCertified {
		return false, nil
	}
	if !ok {
		cert = certification.Certification{ID: repo.db.nextID(), UserID: userID, CreatedAt: at}
	}
	cert.IsCertified = true
	cert.CertificationDate = &at
	cert.PassingAttemptID = attemptID
	cert.UpdatedAt = at
	repo.db.certifications[userID] = cert
	return true, nil
}
