package assessment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Attempt statuses
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusGraded     = "graded" // display status once certification ran
)

type Attempt struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	AssessmentID     int             `json:"assessment_id"`
	Status           string          `json:"status"`
	TotalQuestions   int             `json:"total_questions"` // frozen at start
	CorrectAnswers   int             `json:"correct_answers"`
	ScorePercentage  decimal.Decimal `json:"score_percentage"`
	Passed           bool            `json:"passed"`
	StartedAt        time.Time       `json:"started_at"`
	SubmittedAt      *time.Time      `json:"submitted_at"`
	TimeTakenMinutes int             `json:"time_taken_minutes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Responses        []Response      `json:"-"`
}

// Response is the answer to one question of an attempt; Position is its place in the attempt's question sequence.
type Response struct {
	AttemptID        string     `json:"attempt_id"`
	QuestionID       int        `json:"question_id"`
	Position         int        `json:"position"`
	SelectedOptionID *int       `json:"selected_option_id"`
	IsCorrect        bool       `json:"is_correct"`
	AnsweredAt       *time.Time `json:"answered_at"`
}

type AttemptFilter struct {
	UserID       string
	AssessmentID int
}

// AttemptView is an in-progress attempt as shown to its taker: correctness is never exposed.
type AttemptView struct {
	Attempt
	AssessmentTitle  string         `json:"assessment_title"`
	TimeLimitMinutes *int           `json:"time_limit_minutes"`
	Questions        []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID               int          `json:"id"`
	Position         int          `json:"position"`
	Text             string       `json:"text"`
	Difficulty       string       `json:"difficulty"`
	Options          []OptionView `json:"options"`
	SelectedOptionID *int         `json:"selected_option_id"`
}

type OptionView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// AttemptResult is a submitted attempt with the correction of each question.
type AttemptResult struct {
	Attempt
	AssessmentTitle string       `json:"assessment_title"`
	PassingScore    int          `json:"passing_score"`
	Items           []ResultItem `json:"items"`
}

type ResultItem struct {
	QuestionID         int    `json:"question_id"`
	Position           int    `json:"position"`
	Text               string `json:"text"`
	Explanation        string `json:"explanation"`
	SelectedOptionID   *int   `json:"selected_option_id"`
	SelectedOptionText string `json:"selected_option_text"`
	CorrectOptionIDs   []int  `json:"correct_option_ids"`
	CorrectOptionText  string `json:"correct_option_text"`
	IsCorrect          bool   `json:"is_correct"`
}

// AvailableAssessment is an active assessment as listed to a learner.
type AvailableAssessment struct {
	ID                  int      `json:"id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	TotalQuestions      int      `json:"total_questions"`
	PassingScore        int      `json:"passing_score"`
	TimeLimitMinutes    *int     `json:"time_limit_minutes"`
	LastAttempt         *Attempt `json:"last_attempt"`
	AllModulesCompleted bool     `json:"all_modules_completed"`
}
