package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/academy/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) GetOrCreateCompletion(_ context.Context, userID string, moduleID int, at time.Time) (progress.ModuleCompletion, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := completionKey{userID: userID, moduleID: moduleID}
	if c, ok := repo.db.completions[key]; ok {
		return c, nil
	}
	c := progress.ModuleCompletion{UserID: userID, ModuleID: moduleID, StartedAt: at}
	repo.db.completions[key] = c
	return c, nil
}

func (repo *progressRepository) UpdateCompletion(_ context.Context, c progress.ModuleCompletion) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.completions[completionKey{userID: c.UserID, moduleID: c.ModuleID}] = c
	return nil
}

func (repo *progressRepository) QueryCompletions(_ context.Context, userID string) ([]progress.ModuleCompletion, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	completions := make([]progress.ModuleCompletion, 0)
	for k, c := range repo.db.completions {
		if k.userID == userID {
			completions = append(completions, c)
		}
	}
	sort.Slice(completions, func(i, j int) bool { return completions[i].ModuleID < completions[j].ModuleID })
	return completions, nil
}

func (repo *progressRepository) GetOrCreateCourseProgress(_ context.Context, userID string, courseID int, at time.Time) (progress.CourseProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := progressKey{userID: userID, courseID: courseID}
	if p, ok := repo.db.courseProgress[key]; ok {
		return p, nil
	}
	p := progress.CourseProgress{
		UserID:    userID,
		CourseID:  courseID,
		Status:    progress.StatusNotStarted,
		CreatedAt: at,
		UpdatedAt: at,
	}
	repo.db.courseProgress[key] = p
	return p, nil
}

func (repo *progressRepository) UpdateCourseProgress(_ context.Context, p progress.CourseProgress) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.courseProgress[progressKey{userID: p.UserID, courseID: p.CourseID}] = p
	return nil
}

func (repo *progressRepository) QueryCourseProgress(_ context.Context, userID string) ([]progress.CourseProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	progresses := make([]progress.CourseProgress, 0)
	for k, p := range repo.db.courseProgress {
		if k.userID == userID {
			progresses = append(progresses, p)
		}
	}
	sort.Slice(progresses, func(i, j int) bool { return progresses[i].CourseID < progresses[j].CourseID })
	return progresses, nil
}
