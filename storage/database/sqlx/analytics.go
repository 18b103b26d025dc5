package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/academy/core/analytics"
)

const (
	summaryQuery = `SELECT
		(SELECT COUNT(*) FROM users) AS users,
		(SELECT COUNT(*) FROM certifications WHERE is_certified) AS certified_users,
		(SELECT COUNT(*) FROM courses WHERE is_active) AS active_courses,
		(SELECT COUNT(*) FROM modules) AS modules,
		(SELECT COUNT(*) FROM module_completions WHERE is_completed) AS completed_modules,
		COUNT(a.id) AS attempts,
		COUNT(a.id) FILTER (WHERE a.passed) AS passed_attempts,
		COALESCE(AVG(a.score_percentage), 0) AS average_score
		FROM attempts a WHERE a.status IN ('submitted', 'graded')`

	assessmentStatsQuery = `SELECT
		s.id AS assessment_id,
		s.title AS title,
		COUNT(a.id) AS attempts,
		COUNT(a.id) FILTER (WHERE a.passed) AS passed_attempts,
		COALESCE(AVG(a.score_percentage), 0) AS average_score
		FROM assessments s
		LEFT JOIN attempts a ON a.assessment_id = s.id AND a.status IN ('submitted', 'graded')
		GROUP BY s.id, s.title
		ORDER BY s.id`
)

// analyticsRepository runs raw aggregates through sqlboiler's binder.
type analyticsRepository struct {
	exec boil.ContextExecutor
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(exec boil.ContextExecutor) analytics.Repository {
	return &analyticsRepository{exec: exec}
}

func (repo analyticsRepository) Summary(ctx context.Context) (analytics.Summary, error) {
	var sum analytics.Summary
	if err := queries.Raw(summaryQuery).Bind(ctx, repo.exec, &sum); err != nil {
		return analytics.Summary{}, errors.Wrap(err, "computing summary")
	}
	return sum, nil
}

func (repo analyticsRepository) AssessmentStats(ctx context.Context) ([]analytics.AssessmentStats, error) {
	var stats []analytics.AssessmentStats
	if err := queries.Raw(assessmentStatsQuery).Bind(ctx, repo.exec, &stats); err != nil {
		return nil, errors.Wrap(err, "computing assessment stats")
	}
	return stats, nil
}
