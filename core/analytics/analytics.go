// Package analytics computes the numbers of the admin dashboard.
package analytics

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Summary struct {
	Users            int             `json:"users" boil:"users"`
	CertifiedUsers   int             `json:"certified_users" boil:"certified_users"`
	ActiveCourses    int             `json:"active_courses" boil:"active_courses"`
	Modules          int             `json:"modules" boil:"modules"`
	CompletedModules int             `json:"completed_modules" boil:"completed_modules"`
	Attempts         int             `json:"attempts" boil:"attempts"`
	PassedAttempts   int             `json:"passed_attempts" boil:"passed_attempts"`
	AverageScore     decimal.Decimal `json:"average_score" boil:"average_score"`
	PassRate         decimal.Decimal `json:"pass_rate" boil:"-"`
}

type AssessmentStats struct {
	AssessmentID   int             `json:"assessment_id" boil:"assessment_id"`
	Title          string          `json:"title" boil:"title"`
	Attempts       int             `json:"attempts" boil:"attempts"`
	PassedAttempts int             `json:"passed_attempts" boil:"passed_attempts"`
	AverageScore   decimal.Decimal `json:"average_score" boil:"average_score"`
	PassRate       decimal.Decimal `json:"pass_rate" boil:"-"`
}

type Dashboard struct {
	Summary     Summary           `json:"summary"`
	Assessments []AssessmentStats `json:"assessments"`
}

type (
	// Repository aggregates over submitted (or graded) attempts only.
	Repository interface {
		Summary(ctx context.Context) (Summary, error)
		AssessmentStats(ctx context.Context) ([]AssessmentStats, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	sum, err := svc.repo.Summary(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing summary")
	}
	sum.AverageScore = sum.AverageScore.Round(2)
	sum.PassRate = rate(sum.PassedAttempts, sum.Attempts)

	stats, err := svc.repo.AssessmentStats(ctx)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "computing assessment stats")
	}
	for i := range stats {
		stats[i].AverageScore = stats[i].AverageScore.Round(2)
		stats[i].PassRate = rate(stats[i].PassedAttempts, stats[i].Attempts)
	}
	if stats == nil {
		stats = []AssessmentStats{}
	}
	return Dashboard{Summary: sum, Assessments: stats}, nil
}

func rate(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(int64(total)), 2)
}
