package inmemdb

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/academy/core/analytics"
	"github.com/trezcool/academy/core/assessment"
)

type analyticsRepository struct {
	db *DB
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db *DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func isSubmitted(att assessment.Attempt) bool {
	return att.Status == assessment.StatusSubmitted || att.Status == assessment.StatusGraded
}

func average(sum decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}

func (repo *analyticsRepository) Summary(_ context.Context) (analytics.Summary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sum := analytics.Summary{Users: len(repo.db.users), Modules: len(repo.db.modules)}
	for _, cert := range repo.db.certifications {
		if cert.IsCertified {
			sum.CertifiedUsers++
		}
	}
	for _, c := range repo.db.courses {
		if c.IsActive {
			sum.ActiveCourses++
		}
	}
	for _, c := range repo.db.completions {
		if c.IsCompleted {
			sum.CompletedModules++
		}
	}
	total := decimal.Zero
	for _, att := range repo.db.attempts {
		if !isSubmitted(att) {
			continue
		}
		sum.Attempts++
		if att.Passed {
			sum.PassedAttempts++
		}
		total = total.Add(att.ScorePercentage)
	}
	sum.AverageScore = average(total, sum.Attempts)
	return sum, nil
}

func (repo *analyticsRepository) AssessmentStats(_ context.Context) ([]analytics.AssessmentStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byID := make(map[int]*analytics.AssessmentStats, len(repo.db.assessments))
	totals := make(map[int]decimal.Decimal, len(repo.db.assessments))
	for _, a := range repo.db.assessments {
		byID[a.ID] = &analytics.AssessmentStats{AssessmentID: a.ID, Title: a.Title}
	}
	for _, att := range repo.db.attempts {
		st, ok := byID[att.AssessmentID]
		if !ok || !isSubmitted(att) {
			continue
		}
		st.Attempts++
		if att.Passed {
			st.PassedAttempts++
		}
		totals[att.AssessmentID] = totals[att.AssessmentID].Add(att.ScorePercentage)
	}

	stats := make([]analytics.AssessmentStats, 0, len(byID))
	for id, st := range byID {
		st.AverageScore = average(totals[id], st.Attempts)
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].AssessmentID < stats[j].AssessmentID })
	return stats, nil
}
