package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academy/core"
)

// Difficulties
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Content types
const (
	ContentVideo = "video"
	ContentPDF   = "pdf"
	ContentText  = "text"
	ContentMixed = "mixed"
)

// Question difficulties
const (
	QuestionEasy   = "easy"
	QuestionMedium = "medium"
	QuestionHard   = "hard"
)

const (
	DefaultPassingScore   = 85
	DefaultTotalQuestions = 20
)

var difficultyRanks = map[string]int{
	DifficultyBeginner:     0,
	DifficultyIntermediate: 1,
	DifficultyAdvanced:     2,
}

// DifficultyRank orders course difficulties from beginner to advanced.
func DifficultyRank(difficulty string) int {
	if r, ok := difficultyRanks[difficulty]; ok {
		return r
	}
	return len(difficultyRanks)
}

type Course struct {
	ID                       int       `json:"id"`
	Title                    string    `json:"title"`
	Description              string    `json:"description"`
	Difficulty               string    `json:"difficulty"`
	IsActive                 bool      `json:"is_active"`
	IsMandatory              bool      `json:"is_mandatory"`
	Order                    int       `json:"order"`
	EstimatedDurationMinutes int       `json:"estimated_duration_minutes"`
	TotalModules             int       `json:"total_modules"`
	CreatedAt                time.Time `json:"created_at"` // UTC
	UpdatedAt                time.Time `json:"updated_at"` // UTC
}

type Module struct {
	ID              int       `json:"id"`
	CourseID        int       `json:"course_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ContentType     string    `json:"content_type"`
	Order           int       `json:"order"`
	VideoURL        string    `json:"video_url"`
	PDFURL          string    `json:"pdf_url"`
	TextContent     string    `json:"text_content"`
	DurationMinutes int       `json:"duration_minutes"`
	IsRequired      bool      `json:"is_required"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// Assessment is immutable for the lifetime of the attempts taken on it.
type Assessment struct {
	ID                 int        `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	PassingScore       int        `json:"passing_score"`
	TotalQuestions     int        `json:"total_questions"`
	TimeLimitMinutes   *int       `json:"time_limit_minutes"`
	RandomizeQuestions bool       `json:"randomize_questions"`
	RandomizeOptions   bool       `json:"randomize_options"`
	IsActive           bool       `json:"is_active"`
	IsMandatory        bool       `json:"is_mandatory"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
	UpdatedAt          time.Time  `json:"updated_at"` // UTC
	Questions          []Question `json:"questions,omitempty"`
}

type Question struct {
	ID           int      `json:"id"`
	AssessmentID int      `json:"assessment_id"`
	Text         string   `json:"text"`
	Difficulty   string   `json:"difficulty"`
	Explanation  string   `json:"explanation"`
	Order        int      `json:"order"`
	Options      []Option `json:"options"`
}

// CorrectOptions returns the options flagged as correct.
func (q Question) CorrectOptions() []Option {
	var opts []Option
	for _, opt := range q.Options {
		if opt.IsCorrect {
			opts = append(opts, opt)
		}
	}
	return opts
}

type Option struct {
	ID         int    `json:"id"`
	QuestionID int    `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"order"`
}

type CourseFilter struct {
	Query       string `query:"q"`
	Difficulty  string `query:"difficulty"`
	ContentType string `query:"content_type"`
	ActiveOnly  bool   `query:"-"`
}

func (cf *CourseFilter) Clean() {
	cf.Query = core.CleanString(cf.Query)
	cf.Difficulty = core.CleanString(cf.Difficulty, true /* lower */)
	cf.ContentType = core.CleanString(cf.ContentType, true /* lower */)
}

// NewCourse contains information needed to create or replace a Course.
type NewCourse struct {
	Title                    string `json:"title" validate:"required,notblank,max=200"`
	Description              string `json:"description"`
	Difficulty               string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsActive                 *bool  `json:"is_active"`
	IsMandatory              *bool  `json:"is_mandatory"`
	Order                    int    `json:"order" validate:"min=0"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes" validate:"min=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Difficulty = core.CleanString(nc.Difficulty, true /* lower */)
	if nc.Difficulty == "" {
		nc.Difficulty = DifficultyBeginner
	}
	return validate.Struct(nc)
}

func (nc NewCourse) apply(c *Course) {
	c.Title = nc.Title
	c.Description = nc.Description
	c.Difficulty = nc.Difficulty
	c.IsActive = boolOr(nc.IsActive, true)
	c.IsMandatory = boolOr(nc.IsMandatory, true)
	c.Order = nc.Order
	c.EstimatedDurationMinutes = nc.EstimatedDurationMinutes
}

// NewModule contains information needed to create or replace a Module.
type NewModule struct {
	CourseID        int    `json:"course_id" validate:"required,min=1"`
	Title           string `json:"title" validate:"required,notblank,max=200"`
	Description     string `json:"description"`
	ContentType     string `json:"content_type" validate:"omitempty,oneof=video pdf text mixed"`
	Order           int    `json:"order" validate:"min=0"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	PDFURL          string `json:"pdf_url" validate:"omitempty,url"`
	TextContent     string `json:"text_content"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
	IsRequired      *bool  `json:"is_required"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.ContentType = core.CleanString(nm.ContentType, true /* lower */)
	if nm.ContentType == "" {
		nm.ContentType = ContentText
	}
	nm.VideoURL = core.CleanString(nm.VideoURL)
	nm.PDFURL = core.CleanString(nm.PDFURL)
	return validate.Struct(nm)
}

func (nm NewModule) apply(m *Module) {
	m.CourseID = nm.CourseID
	m.Title = nm.Title
	m.Description = nm.Description
	m.ContentType = nm.ContentType
	m.Order = nm.Order
	m.VideoURL = nm.VideoURL
	m.PDFURL = nm.PDFURL
	m.TextContent = nm.TextContent
	m.DurationMinutes = nm.DurationMinutes
	m.IsRequired = boolOr(nm.IsRequired, true)
}

// NewAssessment contains information needed to create an Assessment with its questions.
// On update, Questions are ignored.
type NewAssessment struct {
	Title              string        `json:"title" validate:"required,notblank,max=200"`
	Description        string        `json:"description"`
	PassingScore       *int          `json:"passing_score" validate:"omitempty,min=0,max=100"`
	TotalQuestions     *int          `json:"total_questions" validate:"omitempty,min=0"`
	TimeLimitMinutes   *int          `json:"time_limit_minutes" validate:"omitempty,min=1"`
	RandomizeQuestions *bool         `json:"randomize_questions"`
	RandomizeOptions   *bool         `json:"randomize_options"`
	IsActive           *bool         `json:"is_active"`
	IsMandatory        *bool         `json:"is_mandatory"`
	Questions          []NewQuestion `json:"questions" validate:"omitempty,dive"`
}

func (na *NewAssessment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	for i := range na.Questions {
		na.Questions[i].clean()
	}
	if err := validate.Struct(na); err != nil {
		return err
	}
	return checkUniqueOrders(na.Questions)
}

func (na NewAssessment) apply(a *Assessment) {
	a.Title = na.Title
	a.Description = na.Description
	a.PassingScore = intOr(na.PassingScore, DefaultPassingScore)
	if na.TotalQuestions != nil {
		a.TotalQuestions = *na.TotalQuestions
	} else if len(na.Questions) > 0 {
		a.TotalQuestions = len(na.Questions)
	} else if a.ID == 0 {
		a.TotalQuestions = DefaultTotalQuestions
	}
	a.TimeLimitMinutes = na.TimeLimitMinutes
	a.RandomizeQuestions = boolOr(na.RandomizeQuestions, true)
	a.RandomizeOptions = boolOr(na.RandomizeOptions, true)
	a.IsActive = boolOr(na.IsActive, true)
	a.IsMandatory = boolOr(na.IsMandatory, true)
}

type NewQuestion struct {
	Text        string      `json:"text" validate:"required,notblank"`
	Difficulty  string      `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Explanation string      `json:"explanation"`
	Order       int         `json:"order" validate:"min=0"`
	Options     []NewOption `json:"options" validate:"required,min=2,dive"`
}

func (nq *NewQuestion) clean() {
	nq.Text = core.CleanString(nq.Text)
	nq.Difficulty = core.CleanString(nq.Difficulty, true /* lower */)
	if nq.Difficulty == "" {
		nq.Difficulty = QuestionMedium
	}
	for i := range nq.Options {
		nq.Options[i].Text = core.CleanString(nq.Options[i].Text)
	}
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.clean()
	if err := validate.Struct(nq); err != nil {
		return err
	}
	orders := make(map[int]bool, len(nq.Options))
	for _, o := range nq.Options {
		if orders[o.Order] {
			return core.NewValidationError(nil, core.FieldError{Field: "options", Error: "option orders must be unique"})
		}
		orders[o.Order] = true
	}
	return nil
}

func (nq NewQuestion) toQuestion() Question {
	q := Question{
		Text:        nq.Text,
		Difficulty:  nq.Difficulty,
		Explanation: nq.Explanation,
		Order:       nq.Order,
		Options:     make([]Option, 0, len(nq.Options)),
	}
	for _, no := range nq.Options {
		q.Options = append(q.Options, Option{Text: no.Text, IsCorrect: no.IsCorrect, Order: no.Order})
	}
	return q
}

type NewOption struct {
	Text      string `json:"text" validate:"required,notblank"`
	IsCorrect bool   `json:"is_correct"`
	Order     int    `json:"order" validate:"min=0"`
}

func checkUniqueOrders(questions []NewQuestion) error {
	orders := make(map[int]bool, len(questions))
	for _, q := range questions {
		if orders[q.Order] {
			return core.NewValidationError(nil, core.FieldError{Field: "questions", Error: "question orders must be unique"})
		}
		orders[q.Order] = true

		optOrders := make(map[int]bool, len(q.Options))
		for _, o := range q.Options {
			if optOrders[o.Order] {
				return core.NewValidationError(nil, core.FieldError{Field: "options", Error: "option orders must be unique"})
			}
			optOrders[o.Order] = true
		}
	}
	return nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func intOr(i *int, def int) int {
	if i == nil {
		return def
	}
	return *i
}
