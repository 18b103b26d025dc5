package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academy/core/assessment"
)

type attemptRepository struct {
	db *DB
}

var _ assessment.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *DB) assessment.Repository {
	return &attemptRepository{db: db}
}

func copyResponses(responses []assessment.Response) []assessment.Response {
	cp := make([]assessment.Response, len(responses))
	for i, resp := range responses {
		if resp.SelectedOptionID != nil {
			id := *resp.SelectedOptionID
			resp.SelectedOptionID = &id
		}
		cp[i] = resp
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Position < cp[j].Position })
	return cp
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, att assessment.Attempt) (assessment.Attempt, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	responses := copyResponses(att.Responses)
	att.Responses = nil
	repo.db.attempts[att.ID] = att
	repo.db.responses[att.ID] = responses

	att.Responses = copyResponses(responses)
	return att, nil
}

func (repo *attemptRepository) GetAttempt(_ context.Context, id string) (assessment.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	att, ok := repo.db.attempts[id]
	if !ok {
		return assessment.Attempt{}, assessment.ErrAttemptNotFound
	}
	att.Responses = copyResponses(repo.db.responses[id])
	return att, nil
}

func (repo *attemptRepository) SubmitAttempt(_ context.Context, att assessment.Attempt) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored, ok := repo.db.attempts[att.ID]
	if !ok {
		return assessment.ErrAttemptNotFound
	}
	if stored.Status != assessment.StatusInProgress {
		return assessment.ErrAttemptNotInProgress
	}
	responses := copyResponses(att.Responses)
	att.Responses = nil
	repo.db.attempts[att.ID] = att
	repo.db.responses[att.ID] = responses
	return nil
}

func (repo *attemptRepository) SetAttemptStatus(_ context.Context, id, from, to string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	att, ok := repo.db.attempts[id]
	if !ok {
		return assessment.ErrAttemptNotFound
	}
	if att.Status == from {
		att.Status = to
		repo.db.attempts[id] = att
	}
	return nil
}

func (repo *attemptRepository) QueryAttempts(_ context.Context, filter assessment.AttemptFilter) ([]assessment.Attempt, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	attempts := make([]assessment.Attempt, 0)
	for _, att := range repo.db.attempts {
		if filter.UserID != "" && att.UserID != filter.UserID {
			continue
		}
		if filter.AssessmentID != 0 && att.AssessmentID != filter.AssessmentID {
			continue
		}
		attempts = append(attempts, att)
	}
	sort.Slice(attempts, func(i, j int) bool {
		if !attempts[i].StartedAt.Equal(attempts[j].StartedAt) {
			return attempts[i].StartedAt.After(attempts[j].StartedAt)
		}
		return attempts[i].ID > attempts[j].ID
	})
	return attempts, nil
}
