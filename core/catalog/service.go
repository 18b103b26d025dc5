package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
)

var (
	// errors
	ErrCourseNotFound     = &core.NotFoundError{Resource: "course"}
	ErrModuleNotFound     = &core.NotFoundError{Resource: "module"}
	ErrAssessmentNotFound = &core.NotFoundError{Resource: "assessment"}
	ErrQuestionNotFound   = &core.NotFoundError{Resource: "question"}
	ErrOfficeNotFound     = &core.NotFoundError{Resource: "office"}
	ErrDuplicateOrder     = errors.New("order is already taken")
	ErrDuplicateCode      = errors.New("code is already taken")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int) error
		GetCourse(ctx context.Context, id int) (Course, error)
		// QueryCourses returns courses ordered by Course.Order then ID.
		// CourseFilter.Query does a case-insensitive match on Course.Title or Course.Description;
		// CourseFilter.ContentType keeps courses having at least one module of that type.
		QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error)

		CreateModule(ctx context.Context, m Module) (Module, error)
		UpdateModule(ctx context.Context, m Module) (Module, error)
		DeleteModule(ctx context.Context, id int) error
		GetModule(ctx context.Context, id int) (Module, error)
		// QueryModules returns the modules of a course (of all courses if courseID is 0) in course and module order.
		QueryModules(ctx context.Context, courseID int) ([]Module, error)

		// CreateAssessment saves the assessment along with its questions and options.
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		// UpdateAssessment only saves the settings; questions are left untouched.
		UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		DeleteAssessment(ctx context.Context, id int) error
		GetAssessment(ctx context.Context, id int, withQuestions bool) (Assessment, error)
		QueryAssessments(ctx context.Context, activeOnly bool) ([]Assessment, error)
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestion(ctx context.Context, id int) error

		CreateOffice(ctx context.Context, o Office) (Office, error)
		// UpdateOffice replaces the office hours as well.
		UpdateOffice(ctx context.Context, o Office) (Office, error)
		DeleteOffice(ctx context.Context, id int) error
		GetOffice(ctx context.Context, id int) (Office, error)
		QueryOffices(ctx context.Context, activeOnly bool) ([]Office, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

func orderTaken(err error) error {
	if errors.Cause(err) == ErrDuplicateOrder {
		return core.NewValidationError(err, core.FieldError{Field: "order", Error: err.Error()})
	}
	return err
}

// Courses

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	now := core.NowFunc().UTC()
	c := Course{CreatedAt: now, UpdatedAt: now}
	nc.apply(&c)
	return svc.repo.CreateCourse(ctx, c)
}

func (svc *Service) UpdateCourse(ctx context.Context, id int, nc NewCourse) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	nc.apply(&c)
	c.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) DeleteCourse(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) GetCourse(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) QueryCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter)
}

// SearchCourses returns active courses matching `filter`, ordered by difficulty then title.
func (svc *Service) SearchCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	filter.Clean()
	filter.ActiveOnly = true
	courses, err := svc.repo.QueryCourses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	sort.SliceStable(courses, func(i, j int) bool {
		ri, rj := DifficultyRank(courses[i].Difficulty), DifficultyRank(courses[j].Difficulty)
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(courses[i].Title) < strings.ToLower(courses[j].Title)
	})
	return courses, nil
}

// Modules

func (svc *Service) CreateModule(ctx context.Context, nm NewModule) (Module, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Module{}, err
	}
	if _, err := svc.repo.GetCourse(ctx, nm.CourseID); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return Module{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Module{}, errors.Wrap(err, "getting course")
	}
	now := core.NowFunc().UTC()
	m := Module{CreatedAt: now, UpdatedAt: now}
	nm.apply(&m)
	m, err := svc.repo.CreateModule(ctx, m)
	return m, orderTaken(err)
}

func (svc *Service) UpdateModule(ctx context.Context, id int, nm NewModule) (Module, error) {
	m, err := svc.repo.GetModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if err := nm.Validate(svc.validate); err != nil {
		return Module{}, err
	}
	if nm.CourseID != m.CourseID {
		if _, err := svc.repo.GetCourse(ctx, nm.CourseID); err != nil {
			if errors.Cause(err) == ErrCourseNotFound {
				return Module{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
			}
			return Module{}, errors.Wrap(err, "getting course")
		}
	}
	nm.apply(&m)
	m.UpdatedAt = core.NowFunc().UTC()
	m, err = svc.repo.UpdateModule(ctx, m)
	return m, orderTaken(err)
}

func (svc *Service) DeleteModule(ctx context.Context, id int) error {
	return svc.repo.DeleteModule(ctx, id)
}

func (svc *Service) GetModule(ctx context.Context, id int) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) QueryModules(ctx context.Context, courseID int) ([]Module, error) {
	return svc.repo.QueryModules(ctx, courseID)
}

// Assessments

func (svc *Service) CreateAssessment(ctx context.Context, na NewAssessment) (Assessment, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Assessment{}, err
	}
	now := core.NowFunc().UTC()
	a := Assessment{CreatedAt: now, UpdatedAt: now}
	na.apply(&a)
	for _, nq := range na.Questions {
		a.Questions = append(a.Questions, nq.toQuestion())
	}
	return svc.repo.CreateAssessment(ctx, a)
}

func (svc *Service) UpdateAssessment(ctx context.Context, id int, na NewAssessment) (Assessment, error) {
	a, err := svc.repo.GetAssessment(ctx, id, false)
	if err != nil {
		return Assessment{}, err
	}
	na.Questions = nil
	if err := na.Validate(svc.validate); err != nil {
		return Assessment{}, err
	}
	na.apply(&a)
	a.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateAssessment(ctx, a)
}

func (svc *Service) DeleteAssessment(ctx context.Context, id int) error {
	return svc.repo.DeleteAssessment(ctx, id)
}

func (svc *Service) GetAssessment(ctx context.Context, id int, withQuestions bool) (Assessment, error) {
	return svc.repo.GetAssessment(ctx, id, withQuestions)
}

func (svc *Service) QueryAssessments(ctx context.Context, activeOnly bool) ([]Assessment, error) {
	return svc.repo.QueryAssessments(ctx, activeOnly)
}

func (svc *Service) AddQuestion(ctx context.Context, assessmentID int, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetAssessment(ctx, assessmentID, false); err != nil {
		return Question{}, err
	}
	if err := nq.Validate(svc.validate); err != nil {
		return Question{}, err
	}
	q := nq.toQuestion()
	q.AssessmentID = assessmentID
	q, err := svc.repo.CreateQuestion(ctx, q)
	return q, orderTaken(err)
}

func (svc *Service) DeleteQuestion(ctx context.Context, id int) error {
	return svc.repo.DeleteQuestion(ctx, id)
}

// ValidateAssessment reports the problems an admin should fix before learners take the assessment.
// A question should have exactly one correct option; this is not enforced when saving.
func (svc *Service) ValidateAssessment(ctx context.Context, id int) ([]string, error) {
	a, err := svc.repo.GetAssessment(ctx, id, true)
	if err != nil {
		return nil, err
	}

	warnings := make([]string, 0)
	if len(a.Questions) == 0 {
		warnings = append(warnings, "assessment has no questions")
	} else if len(a.Questions) != a.TotalQuestions {
		warnings = append(warnings, fmt.Sprintf(
			"assessment has %d questions but total_questions is %d", len(a.Questions), a.TotalQuestions,
		))
	}
	for _, q := range a.Questions {
		switch n := len(q.CorrectOptions()); n {
		case 1: // ok
		case 0:
			warnings = append(warnings, fmt.Sprintf("question %d has no correct option", q.ID))
		default:
			warnings = append(warnings, fmt.Sprintf("question %d has %d correct options", q.ID, n))
		}
	}
	return warnings, nil
}

// Offices

func (svc *Service) CreateOffice(ctx context.Context, no NewOffice) (Office, error) {
	if err := no.Validate(svc.validate); err != nil {
		return Office{}, err
	}
	var o Office
	no.apply(&o)
	o, err := svc.repo.CreateOffice(ctx, o)
	return o, codeTaken(err)
}

func (svc *Service) UpdateOffice(ctx context.Context, id int, no NewOffice) (Office, error) {
	o, err := svc.repo.GetOffice(ctx, id)
	if err != nil {
		return Office{}, err
	}
	if err := no.Validate(svc.validate); err != nil {
		return Office{}, err
	}
	no.apply(&o)
	o, err = svc.repo.UpdateOffice(ctx, o)
	return o, codeTaken(err)
}

func (svc *Service) DeleteOffice(ctx context.Context, id int) error {
	return svc.repo.DeleteOffice(ctx, id)
}

func (svc *Service) GetOffice(ctx context.Context, id int) (Office, error) {
	return svc.repo.GetOffice(ctx, id)
}

func (svc *Service) QueryOffices(ctx context.Context, activeOnly bool) ([]Office, error) {
	return svc.repo.QueryOffices(ctx, activeOnly)
}

func codeTaken(err error) error {
	if errors.Cause(err) == ErrDuplicateCode {
		return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return err
}
