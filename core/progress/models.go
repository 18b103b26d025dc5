package progress

import "time"

// Statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusLocked     = "locked"
)

type ModuleCompletion struct {
	UserID           string     `json:"user_id"`
	ModuleID         int        `json:"module_id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
	IsCompleted      bool       `json:"is_completed"`
}

type CourseProgress struct {
	UserID             string     `json:"user_id"`
	CourseID           int        `json:"course_id"`
	Status             string     `json:"status"`
	ProgressPercentage int        `json:"progress_percentage"`
	StartedAt          *time.Time `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (p *CourseProgress) markStarted(at time.Time) {
	if p.Status == StatusNotStarted || p.Status == "" {
		p.Status = StatusInProgress
		p.StartedAt = &at
	}
}

func (p *CourseProgress) setPercentage(pct int, at time.Time) (completed bool) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	p.ProgressPercentage = pct
	p.markStarted(at)
	if pct == 100 && p.Status != StatusCompleted {
		p.Status = StatusCompleted
		p.CompletedAt = &at
		return true
	}
	return false
}

type ModuleStatus struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ContentType     string `json:"content_type"`
	Order           int    `json:"order"`
	DurationMinutes int    `json:"duration_minutes"`
	IsRequired      bool   `json:"is_required"`
	IsCompleted     bool   `json:"is_completed"`
	IsLocked        bool   `json:"is_locked"`
}

type CourseOverview struct {
	ID                 int            `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Difficulty         string         `json:"difficulty"`
	Modules            []ModuleStatus `json:"modules"`
	CompletedModules   int            `json:"completed_modules"`
	TotalModules       int            `json:"total_modules"`
	TotalDuration      int            `json:"total_duration"`
	ProgressPercentage int            `json:"progress_percentage"`
}

type ModuleView struct {
	ID              int    `json:"id"`
	CourseID        int    `json:"course_id"`
	CourseTitle     string `json:"course_title"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ContentType     string `json:"content_type"`
	VideoURL        string `json:"video_url"`
	PDFURL          string `json:"pdf_url"`
	TextContent     string `json:"text_content"`
	DurationMinutes int    `json:"duration_minutes"`
	IsCompleted     bool   `json:"is_completed"`
	PrevModuleID    *int   `json:"prev_module_id"`
	NextModuleID    *int   `json:"next_module_id"`
	Position        int    `json:"position"` // 1-based
	TotalModules    int    `json:"total_modules"`
}

type DashboardCourse struct {
	ID                       int    `json:"id"`
	Title                    string `json:"title"`
	Description              string `json:"description"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes"`
	IsMandatory              bool   `json:"is_mandatory"`
	Status                   string `json:"status"`
	ProgressPercentage       int    `json:"progress_percentage"`
}

type Dashboard struct {
	Courses             []DashboardCourse `json:"courses"`
	TotalModules        int               `json:"total_modules"`
	CompletedModules    int               `json:"completed_modules"`
	OverallProgress     int               `json:"overall_progress"`
	AllModulesCompleted bool              `json:"all_modules_completed"`
	IsCertified         bool              `json:"is_certified"`
}
