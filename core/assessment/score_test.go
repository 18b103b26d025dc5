package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    string
	}{
		{name: "all correct", correct: 4, total: 4, want: "100.00"},
		{name: "one of four", correct: 1, total: 4, want: "25.00"},
		{name: "17 of 20", correct: 17, total: 20, want: "85.00"},
		{name: "16 of 20", correct: 16, total: 20, want: "80.00"},
		{name: "repeating decimal", correct: 2, total: 3, want: "66.67"},
		{name: "none", correct: 0, total: 20, want: "0.00"},
		{name: "no questions", correct: 0, total: 0, want: "0.00"},
		{name: "more correct than snapshot", correct: 5, total: 4, want: "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.correct, tt.total).StringFixed(2))
		})
	}
}

func TestPassed(t *testing.T) {
	tests := []struct {
		name         string
		correct      int
		total        int
		passingScore int
		want         bool
	}{
		{name: "threshold is inclusive", correct: 17, total: 20, passingScore: 85, want: true},
		{name: "just below threshold", correct: 16, total: 20, passingScore: 85, want: false},
		{name: "all correct", correct: 4, total: 4, passingScore: 85, want: true},
		{name: "one of four", correct: 1, total: 4, passingScore: 85, want: false},
		{name: "no questions", correct: 0, total: 0, passingScore: 0, want: false},
		{name: "zero passing score", correct: 0, total: 3, passingScore: 0, want: true},
		{name: "two thirds vs 67", correct: 2, total: 3, passingScore: 67, want: false},
		{name: "two thirds vs 66", correct: 2, total: 3, passingScore: 66, want: true},
		{name: "perfect score required", correct: 19, total: 20, passingScore: 100, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Passed(tt.correct, tt.total, tt.passingScore))
		})
	}
}
