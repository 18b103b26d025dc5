package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academy/core/catalog"
)

type catalogRepository struct {
	db *DB
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db}
}

// Courses

func (repo *catalogRepository) withTotalModules(c catalog.Course) catalog.Course {
	c.TotalModules = 0
	for _, m := range repo.db.modules {
		if m.CourseID == c.ID {
			c.TotalModules++
		}
	}
	return c
}

func (repo *catalogRepository) CreateCourse(_ context.Context, c catalog.Course) (catalog.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextID()
	c.TotalModules = 0
	repo.db.courses[c.ID] = c
	return c, nil
}

func (repo *catalogRepository) UpdateCourse(_ context.Context, c catalog.Course) (catalog.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[c.ID]; !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	repo.db.courses[c.ID] = c
	return repo.withTotalModules(c), nil
}

func (repo *catalogRepository) DeleteCourse(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return catalog.ErrCourseNotFound
	}
	delete(repo.db.courses, id)
	for mID, m := range repo.db.modules {
		if m.CourseID == id {
			repo.deleteModule(mID)
		}
	}
	for k := range repo.db.courseProgress {
		if k.courseID == id {
			delete(repo.db.courseProgress, k)
		}
	}
	return nil
}

func (repo *catalogRepository) GetCourse(_ context.Context, id int) (catalog.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	return repo.withTotalModules(c), nil
}

func (repo *catalogRepository) QueryCourses(_ context.Context, filter catalog.CourseFilter) ([]catalog.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	q := strings.ToLower(filter.Query)
	courses := make([]catalog.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if q != "" && !(strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(c.Description), q)) {
			continue
		}
		if filter.Difficulty != "" && c.Difficulty != filter.Difficulty {
			continue
		}
		if filter.ContentType != "" && !repo.hasContentType(c.ID, filter.ContentType) {
			continue
		}
		courses = append(courses, repo.withTotalModules(c))
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Order != courses[j].Order {
			return courses[i].Order < courses[j].Order
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *catalogRepository) hasContentType(courseID int, contentType string) bool {
	for _, m := range repo.db.modules {
		if m.CourseID == courseID && m.ContentType == contentType {
			return true
		}
	}
	return false
}

// Modules

func (repo *catalogRepository) orderTaken(m catalog.Module) bool {
	for _, other := range repo.db.modules {
		if other.ID != m.ID && other.CourseID == m.CourseID && other.Order == m.Order {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateModule(_ context.Context, m catalog.Module) (catalog.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[m.CourseID]; !ok {
		return catalog.Module{}, catalog.ErrCourseNotFound
	}
	if repo.orderTaken(m) {
		return catalog.Module{}, catalog.ErrDuplicateOrder
	}
	m.ID = repo.db.nextID()
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *catalogRepository) UpdateModule(_ context.Context, m catalog.Module) (catalog.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[m.ID]; !ok {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	if repo.orderTaken(m) {
		return catalog.Module{}, catalog.ErrDuplicateOrder
	}
	repo.db.modules[m.ID] = m
	return m, nil
}

func (repo *catalogRepository) deleteModule(id int) {
	delete(repo.db.modules, id)
	for k := range repo.db.completions {
		if k.moduleID == id {
			delete(repo.db.completions, k)
		}
	}
}

func (repo *catalogRepository) DeleteModule(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return catalog.ErrModuleNotFound
	}
	repo.deleteModule(id)
	return nil
}

func (repo *catalogRepository) GetModule(_ context.Context, id int) (catalog.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	m, ok := repo.db.modules[id]
	if !ok {
		return catalog.Module{}, catalog.ErrModuleNotFound
	}
	return m, nil
}

func (repo *catalogRepository) QueryModules(_ context.Context, courseID int) ([]catalog.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	modules := make([]catalog.Module, 0)
	for _, m := range repo.db.modules {
		if courseID == 0 || m.CourseID == courseID {
			modules = append(modules, m)
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		ci, cj := repo.db.courses[modules[i].CourseID], repo.db.courses[modules[j].CourseID]
		if ci.Order != cj.Order {
			return ci.Order < cj.Order
		}
		if ci.ID != cj.ID {
			return ci.ID < cj.ID
		}
		if modules[i].Order != modules[j].Order {
			return modules[i].Order < modules[j].Order
		}
		return modules[i].ID < modules[j].ID
	})
	return modules, nil
}

// Assessments

func (repo *catalogRepository) insertQuestion(q catalog.Question) catalog.Question {
	q.ID = repo.db.nextID()
	opts := q.Options
	q.Options = nil
	repo.db.questions[q.ID] = q

	q.Options = make([]catalog.Option, 0, len(opts))
	for _, opt := range opts {
		opt.ID = repo.db.nextID()
		opt.QuestionID = q.ID
		repo.db.options[opt.ID] = opt
		q.Options = append(q.Options, opt)
	}
	return q
}

func (repo *catalogRepository) CreateAssessment(_ context.Context, a catalog.Assessment) (catalog.Assessment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.ID = repo.db.nextID()
	questions := a.Questions
	a.Questions = nil
	repo.db.assessments[a.ID] = a

	for _, q := range questions {
		q.AssessmentID = a.ID
		a.Questions = append(a.Questions, repo.insertQuestion(q))
	}
	return a, nil
}

func (repo *catalogRepository) UpdateAssessment(_ context.Context, a catalog.Assessment) (catalog.Assessment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assessments[a.ID]; !ok {
		return catalog.Assessment{}, catalog.ErrAssessmentNotFound
	}
	a.Questions = nil
	repo.db.assessments[a.ID] = a
	return a, nil
}

func (repo *catalogRepository) DeleteAssessment(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assessments[id]; !ok {
		return catalog.ErrAssessmentNotFound
	}
	delete(repo.db.assessments, id)
	for qID, q := range repo.db.questions {
		if q.AssessmentID == id {
			repo.deleteQuestion(qID)
		}
	}
	for attID, att := range repo.db.attempts {
		if att.AssessmentID == id {
			delete(repo.db.attempts, attID)
			delete(repo.db.responses, attID)
			for uID, cert := range repo.db.certifications {
				if cert.PassingAttemptID == attID {
					cert.PassingAttemptID = ""
					repo.db.certifications[uID] = cert
				}
			}
		}
	}
	return nil
}

// questionsOf returns the assessment questions with their options, both in order.
func (repo *catalogRepository) questionsOf(assessmentID int) []catalog.Question {
	questions := make([]catalog.Question, 0)
	for _, q := range repo.db.questions {
		if q.AssessmentID != assessmentID {
			continue
		}
		q.Options = make([]catalog.Option, 0)
		for _, opt := range repo.db.options {
			if opt.QuestionID == q.ID {
				q.Options = append(q.Options, opt)
			}
		}
		sort.Slice(q.Options, func(i, j int) bool {
			if q.Options[i].Order != q.Options[j].Order {
				return q.Options[i].Order < q.Options[j].Order
			}
			return q.Options[i].ID < q.Options[j].ID
		})
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].Order != questions[j].Order {
			return questions[i].Order < questions[j].Order
		}
		return questions[i].ID < questions[j].ID
	})
	return questions
}

func (repo *catalogRepository) GetAssessment(_ context.Context, id int, withQuestions bool) (catalog.Assessment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	a, ok := repo.db.assessments[id]
	if !ok {
		return catalog.Assessment{}, catalog.ErrAssessmentNotFound
	}
	if withQuestions {
		a.Questions = repo.questionsOf(id)
	}
	return a, nil
}

func (repo *catalogRepository) QueryAssessments(_ context.Context, activeOnly bool) ([]catalog.Assessment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	assessments := make([]catalog.Assessment, 0, len(repo.db.assessments))
	for _, a := range repo.db.assessments {
		if activeOnly && !a.IsActive {
			continue
		}
		assessments = append(assessments, a)
	}
	sort.Slice(assessments, func(i, j int) bool { return assessments[i].ID < assessments[j].ID })
	return assessments, nil
}

func (repo *catalogRepository) CreateQuestion(_ context.Context, q catalog.Question) (catalog.Question, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assessments[q.AssessmentID]; !ok {
		return catalog.Question{}, catalog.ErrAssessmentNotFound
	}
	for _, other := range repo.db.questions {
		if other.AssessmentID == q.AssessmentID && other.Order == q.Order {
			return catalog.Question{}, catalog.ErrDuplicateOrder
		}
	}
	return repo.insertQuestion(q), nil
}

func (repo *catalogRepository) deleteQuestion(id int) {
	delete(repo.db.questions, id)
	for optID, opt := range repo.db.options {
		if opt.QuestionID == id {
			delete(repo.db.options, optID)
		}
	}
	for attID, responses := range repo.db.responses {
		kept := responses[:0]
		for _, resp := range responses {
			if resp.QuestionID != id {
				kept = append(kept, resp)
			}
		}
		repo.db.responses[attID] = kept
	}
}

func (repo *catalogRepository) DeleteQuestion(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return catalog.ErrQuestionNotFound
	}
	repo.deleteQuestion(id)
	return nil
}

// Offices

func copyOffice(o catalog.Office) catalog.Office {
	o.Hours = append([]catalog.OfficeHours{}, o.Hours...)
	sort.Slice(o.Hours, func(i, j int) bool { return o.Hours[i].DayOfWeek < o.Hours[j].DayOfWeek })
	return o
}

func (repo *catalogRepository) codeTaken(o catalog.Office) bool {
	for _, other := range repo.db.offices {
		if other.ID != o.ID && strings.EqualFold(other.Code, o.Code) {
			return true
		}
	}
	return false
}

func (repo *catalogRepository) CreateOffice(_ context.Context, o catalog.Office) (catalog.Office, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if repo.codeTaken(o) {
		return catalog.Office{}, catalog.ErrDuplicateCode
	}
	o.ID = repo.db.nextID()
	o = copyOffice(o)
	repo.db.offices[o.ID] = o
	return copyOffice(o), nil
}

func (repo *catalogRepository) UpdateOffice(_ context.Context, o catalog.Office) (catalog.Office, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.offices[o.ID]; !ok {
		return catalog.Office{}, catalog.ErrOfficeNotFound
	}
	if repo.codeTaken(o) {
		return catalog.Office{}, catalog.ErrDuplicateCode
	}
	o = copyOffice(o)
	repo.db.offices[o.ID] = o
	return copyOffice(o), nil
}

func (repo *catalogRepository) DeleteOffice(_ context.Context, id int) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.offices[id]; !ok {
		return catalog.ErrOfficeNotFound
	}
	delete(repo.db.offices, id)
	return nil
}

func (repo *catalogRepository) GetOffice(_ context.Context, id int) (catalog.Office, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	o, ok := repo.db.offices[id]
	if !ok {
		return catalog.Office{}, catalog.ErrOfficeNotFound
	}
	return copyOffice(o), nil
}

func (repo *catalogRepository) QueryOffices(_ context.Context, activeOnly bool) ([]catalog.Office, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	offices := make([]catalog.Office, 0, len(repo.db.offices))
	for _, o := range repo.db.offices {
		if activeOnly && !o.IsActive {
			continue
		}
		offices = append(offices, copyOffice(o))
	}
	sort.Slice(offices, func(i, j int) bool {
		if offices[i].Order != offices[j].Order {
			return offices[i].Order < offices[j].Order
		}
		return offices[i].Name < offices[j].Name
	})
	return offices, nil
}
