package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/assessment"
)

type (
	attemptRow struct {
		ID               string          `db:"id"`
		UserID           string          `db:"user_id"`
		AssessmentID     int             `db:"assessment_id"`
		Status           string          `db:"status"`
		TotalQuestions   int             `db:"total_questions"`
		CorrectAnswers   int             `db:"correct_answers"`
		ScorePercentage  decimal.Decimal `db:"score_percentage"`
		Passed           bool            `db:"passed"`
		StartedAt        time.Time       `db:"started_at"`
		SubmittedAt      null.Time       `db:"submitted_at"`
		TimeTakenMinutes int             `db:"time_taken_minutes"`
		CreatedAt        time.Time       `db:"created_at"`
		UpdatedAt        time.Time       `db:"updated_at"`
	}

	responseRow struct {
		AttemptID        string    `db:"attempt_id"`
		QuestionID       int       `db:"question_id"`
		Position         int       `db:"position"`
		SelectedOptionID null.Int  `db:"selected_option_id"`
		IsCorrect        bool      `db:"is_correct"`
		AnsweredAt       null.Time `db:"answered_at"`
	}
)

const (
	attemptColumns = `id, user_id, assessment_id, status, total_questions, correct_answers, score_percentage, passed,
		started_at, submitted_at, time_taken_minutes, created_at, updated_at`
	responseColumns = `attempt_id, question_id, position, selected_option_id, is_correct, answered_at`
)

func boilAttempt(att assessment.Attempt) attemptRow {
	return attemptRow{
		ID:               att.ID,
		UserID:           att.UserID,
		AssessmentID:     att.AssessmentID,
		Status:           att.Status,
		TotalQuestions:   att.TotalQuestions,
		CorrectAnswers:   att.CorrectAnswers,
		ScorePercentage:  att.ScorePercentage,
		Passed:           att.Passed,
		StartedAt:        att.StartedAt.UTC(),
		SubmittedAt:      null.TimeFromPtr(att.SubmittedAt),
		TimeTakenMinutes: att.TimeTakenMinutes,
		CreatedAt:        att.CreatedAt.UTC(),
		UpdatedAt:        att.UpdatedAt.UTC(),
	}
}

func (row attemptRow) unboil() assessment.Attempt {
	return assessment.Attempt{
		ID:               row.ID,
		UserID:           row.UserID,
		AssessmentID:     row.AssessmentID,
		Status:           row.Status,
		TotalQuestions:   row.TotalQuestions,
		CorrectAnswers:   row.CorrectAnswers,
		ScorePercentage:  row.ScorePercentage,
		Passed:           row.Passed,
		StartedAt:        row.StartedAt.UTC(),
		SubmittedAt:      utcPtr(row.SubmittedAt),
		TimeTakenMinutes: row.TimeTakenMinutes,
		CreatedAt:        row.CreatedAt.UTC(),
		UpdatedAt:        row.UpdatedAt.UTC(),
	}
}

func boilResponse(resp assessment.Response) responseRow {
	return responseRow{
		AttemptID:        resp.AttemptID,
		QuestionID:       resp.QuestionID,
		Position:         resp.Position,
		SelectedOptionID: null.IntFromPtr(resp.SelectedOptionID),
		IsCorrect:        resp.IsCorrect,
		AnsweredAt:       null.TimeFromPtr(resp.AnsweredAt),
	}
}

func (row responseRow) unboil() assessment.Response {
	return assessment.Response{
		AttemptID:        row.AttemptID,
		QuestionID:       row.QuestionID,
		Position:         row.Position,
		SelectedOptionID: row.SelectedOptionID.Ptr(),
		IsCorrect:        row.IsCorrect,
		AnsweredAt:       utcPtr(row.AnsweredAt),
	}
}

type attemptRepository struct {
	db core.DB
}

var _ assessment.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db core.DB) assessment.Repository {
	return &attemptRepository{db: db}
}

func (repo attemptRepository) CreateAttempt(ctx context.Context, att assessment.Attempt) (assessment.Attempt, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `INSERT INTO attempts (` + attemptColumns + `)
			VALUES (:id, :user_id, :assessment_id, :status, :total_questions, :correct_answers, :score_percentage,
				:passed, :started_at, :submitted_at, :time_taken_minutes, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, q, boilAttempt(att)); err != nil {
			return errors.Wrap(err, "inserting attempt")
		}
		return insertResponses(ctx, tx, att.Responses)
	})
	if err != nil {
		return assessment.Attempt{}, err
	}
	return att, nil
}

func insertResponses(ctx context.Context, tx *sqlx.Tx, responses []assessment.Response) error {
	q := `INSERT INTO responses (` + responseColumns + `)
		VALUES (:attempt_id, :question_id, :position, :selected_option_id, :is_correct, :answered_at)`
	for _, resp := range responses {
		if _, err := tx.NamedExecContext(ctx, q, boilResponse(resp)); err != nil {
			return errors.Wrap(err, "inserting response")
		}
	}
	return nil
}

func (repo attemptRepository) GetAttempt(ctx context.Context, id string) (assessment.Attempt, error) {
	var row attemptRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+attemptColumns+" FROM attempts WHERE id = $1", id); err != nil {
		return assessment.Attempt{}, trapNoRowsErr(err, assessment.ErrAttemptNotFound, "getting attempt")
	}
	att := row.unboil()

	var rows []responseRow
	q := "SELECT " + responseColumns + " FROM responses WHERE attempt_id = $1 ORDER BY position"
	if err := repo.db.SelectContext(ctx, &rows, q, id); err != nil {
		return assessment.Attempt{}, errors.Wrap(err, "querying responses")
	}
	att.Responses = make([]assessment.Response, 0, len(rows))
	for _, r := range rows {
		att.Responses = append(att.Responses, r.unboil())
	}
	return att, nil
}

func (repo attemptRepository) SubmitAttempt(ctx context.Context, att assessment.Attempt) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `UPDATE attempts SET status = :status, correct_answers = :correct_answers,
			score_percentage = :score_percentage, passed = :passed, submitted_at = :submitted_at,
			time_taken_minutes = :time_taken_minutes, updated_at = :updated_at
			WHERE id = :id AND status = '` + assessment.StatusInProgress + `'`
		res, err := tx.NamedExecContext(ctx, q, boilAttempt(att))
		if err != nil {
			return errors.Wrap(err, "updating attempt")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "updating attempt")
		}
		if n == 0 {
			return assessment.ErrAttemptNotInProgress
		}

		uq := `UPDATE responses SET selected_option_id = :selected_option_id, is_correct = :is_correct,
			answered_at = :answered_at
			WHERE attempt_id = :attempt_id AND question_id = :question_id`
		for _, resp := range att.Responses {
			if _, err := tx.NamedExecContext(ctx, uq, boilResponse(resp)); err != nil {
				return errors.Wrap(err, "updating response")
			}
		}
		return nil
	})
}

func (repo attemptRepository) SetAttemptStatus(ctx context.Context, id, from, to string) error {
	_, err := repo.db.ExecContext(ctx, "UPDATE attempts SET status = $3 WHERE id = $1 AND status = $2", id, from, to)
	return errors.Wrap(err, "setting attempt status")
}

func (repo attemptRepository) QueryAttempts(ctx context.Context, filter assessment.AttemptFilter) ([]assessment.Attempt, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.AssessmentID != 0 {
		w.add("assessment_id = ?", filter.AssessmentID)
	}
	var rows []attemptRow
	q := "SELECT " + attemptColumns + " FROM attempts" + w.String() + " ORDER BY started_at DESC, id DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]assessment.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, row.unboil())
	}
	return attempts, nil
}
