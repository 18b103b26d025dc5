package assessment

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

var AttemptCSVHeader = []string{
	"id", "user_id", "assessment_id", "status", "total_questions", "correct_answers", "score_percentage", "passed",
	"started_at", "submitted_at", "time_taken_minutes",
}

// ExportAttempts writes every attempt as CSV, newest first.
func (svc *Service) ExportAttempts(ctx context.Context, w io.Writer) error {
	attempts, err := svc.repo.QueryAttempts(ctx, AttemptFilter{})
	if err != nil {
		return errors.Wrap(err, "querying attempts")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(AttemptCSVHeader); err != nil {
		return err
	}
	for _, att := range attempts {
		var submittedAt string
		if att.SubmittedAt != nil {
			submittedAt = att.SubmittedAt.Format(time.RFC3339)
		}
		rec := []string{
			att.ID,
			att.UserID,
			strconv.Itoa(att.AssessmentID),
			att.Status,
			strconv.Itoa(att.TotalQuestions),
			strconv.Itoa(att.CorrectAnswers),
			att.ScorePercentage.StringFixed(2),
			strconv.FormatBool(att.Passed),
			att.StartedAt.Format(time.RFC3339),
			submittedAt,
			strconv.Itoa(att.TimeTakenMinutes),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
