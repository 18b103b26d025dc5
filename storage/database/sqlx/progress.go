package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/progress"
)

type (
	completionRow struct {
		UserID           string    `db:"user_id"`
		ModuleID         int       `db:"module_id"`
		StartedAt        time.Time `db:"started_at"`
		CompletedAt      null.Time `db:"completed_at"`
		TimeSpentMinutes int       `db:"time_spent_minutes"`
		IsCompleted      bool      `db:"is_completed"`
	}

	courseProgressRow struct {
		UserID             string    `db:"user_id"`
		CourseID           int       `db:"course_id"`
		Status             string    `db:"status"`
		ProgressPercentage int       `db:"progress_percentage"`
		StartedAt          null.Time `db:"started_at"`
		CompletedAt        null.Time `db:"completed_at"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}
)

const (
	completionColumns     = `user_id, module_id, started_at, completed_at, time_spent_minutes, is_completed`
	courseProgressColumns = `user_id, course_id, status, progress_percentage, started_at, completed_at, created_at, updated_at`
)

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (row completionRow) unboil() progress.ModuleCompletion {
	return progress.ModuleCompletion{
		UserID:           row.UserID,
		ModuleID:         row.ModuleID,
		StartedAt:        row.StartedAt.UTC(),
		CompletedAt:      utcPtr(row.CompletedAt),
		TimeSpentMinutes: row.TimeSpentMinutes,
		IsCompleted:      row.IsCompleted,
	}
}

func (row courseProgressRow) unboil() progress.CourseProgress {
	return progress.CourseProgress{
		UserID:             row.UserID,
		CourseID:           row.CourseID,
		Status:             row.Status,
		ProgressPercentage: row.ProgressPercentage,
		StartedAt:          utcPtr(row.StartedAt),
		CompletedAt:        utcPtr(row.CompletedAt),
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}
}

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db core.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo progressRepository) GetOrCreateCompletion(ctx context.Context, userID string, moduleID int, at time.Time) (progress.ModuleCompletion, error) {
	// the no-op update makes RETURNING yield the existing row
	q := `INSERT INTO module_completions (user_id, module_id, started_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, module_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + completionColumns
	var row completionRow
	if err := repo.db.GetContext(ctx, &row, q, userID, moduleID, at.UTC()); err != nil {
		return progress.ModuleCompletion{}, errors.Wrap(err, "upserting module completion")
	}
	return row.unboil(), nil
}

func (repo progressRepository) UpdateCompletion(ctx context.Context, c progress.ModuleCompletion) error {
	q := `UPDATE module_completions SET completed_at = $3, time_spent_minutes = $4, is_completed = $5
		WHERE user_id = $1 AND module_id = $2`
	_, err := repo.db.ExecContext(ctx, q, c.UserID, c.ModuleID, null.TimeFromPtr(c.CompletedAt), c.TimeSpentMinutes, c.IsCompleted)
	return errors.Wrap(err, "updating module completion")
}

func (repo progressRepository) QueryCompletions(ctx context.Context, userID string) ([]progress.ModuleCompletion, error) {
	var rows []completionRow
	q := "SELECT " + completionColumns + " FROM module_completions WHERE user_id = $1 ORDER BY module_id"
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying module completions")
	}
	completions := make([]progress.ModuleCompletion, 0, len(rows))
	for _, row := range rows {
		completions = append(completions, row.unboil())
	}
	return completions, nil
}

func (repo progressRepository) GetOrCreateCourseProgress(ctx context.Context, userID string, courseID int, at time.Time) (progress.CourseProgress, error) {
	q := `INSERT INTO course_progress (user_id, course_id, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING ` + courseProgressColumns
	var row courseProgressRow
	if err := repo.db.GetContext(ctx, &row, q, userID, courseID, progress.StatusNotStarted, at.UTC()); err != nil {
		return progress.CourseProgress{}, errors.Wrap(err, "upserting course progress")
	}
	return row.unboil(), nil
}

func (repo progressRepository) UpdateCourseProgress(ctx context.Context, p progress.CourseProgress) error {
	q := `UPDATE course_progress SET status = $3, progress_percentage = $4, started_at = $5, completed_at = $6,
		updated_at = $7
		WHERE user_id = $1 AND course_id = $2`
	_, err := repo.db.ExecContext(ctx, q,
		p.UserID, p.CourseID, p.Status, p.ProgressPercentage,
		null.TimeFromPtr(p.StartedAt), null.TimeFromPtr(p.CompletedAt), p.UpdatedAt.UTC())
	return errors.Wrap(err, "updating course progress")
}

func (repo progressRepository) QueryCourseProgress(ctx context.Context, userID string) ([]progress.CourseProgress, error) {
	var rows []courseProgressRow
	q := "SELECT " + courseProgressColumns + " FROM course_progress WHERE user_id = $1 ORDER BY course_id"
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying course progress")
	}
	progresses := make([]progress.CourseProgress, 0, len(rows))
	for _, row := range rows {
		progresses = append(progresses, row.unboil())
	}
	return progresses, nil
}
