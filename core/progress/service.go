package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
)

type (
	Repository interface {
		GetOrCreateCompletion(ctx context.Context, userID string, moduleID int, at time.Time) (ModuleCompletion, error)
		UpdateCompletion(ctx context.Context, c ModuleCompletion) error
		QueryCompletions(ctx context.Context, userID string) ([]ModuleCompletion, error)
		GetOrCreateCourseProgress(ctx context.Context, userID string, courseID int, at time.Time) (CourseProgress, error)
		UpdateCourseProgress(ctx context.Context, p CourseProgress) error
		QueryCourseProgress(ctx context.Context, userID string) ([]CourseProgress, error)
	}

	// Catalog is the part of the content catalog the tracker reads.
	Catalog interface {
		GetCourse(ctx context.Context, id int) (catalog.Course, error)
		GetModule(ctx context.Context, id int) (catalog.Module, error)
		QueryCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error)
		QueryModules(ctx context.Context, courseID int) ([]catalog.Module, error)
		SearchCourses(ctx context.Context, filter catalog.CourseFilter) ([]catalog.Course, error)
	}

	Service struct {
		repo     Repository
		catalog  Catalog
		notifier notify.Notifier
	}
)

func NewService(repo Repository, cat Catalog, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, catalog: cat, notifier: notifier}
}

// activeCourse returns the course only if learners can see it.
func (svc *Service) activeCourse(ctx context.Context, id int) (catalog.Course, error) {
	c, err := svc.catalog.GetCourse(ctx, id)
	if err != nil {
		return catalog.Course{}, err
	}
	if !c.IsActive {
		return catalog.Course{}, catalog.ErrCourseNotFound
	}
	return c, nil
}

func (svc *Service) completedSet(ctx context.Context, userID string) (map[int]bool, error) {
	completions, err := svc.repo.QueryCompletions(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying completions")
	}
	done := make(map[int]bool, len(completions))
	for _, c := range completions {
		if c.IsCompleted {
			done[c.ModuleID] = true
		}
	}
	return done, nil
}

// StartModule records that the user opened a module and returns it with its navigation.
func (svc *Service) StartModule(ctx context.Context, userID string, moduleID int) (ModuleView, error) {
	m, err := svc.catalog.GetModule(ctx, moduleID)
	if err != nil {
		return ModuleView{}, err
	}
	c, err := svc.activeCourse(ctx, m.CourseID)
	if err != nil {
		return ModuleView{}, catalog.ErrModuleNotFound
	}

	now := core.NowFunc().UTC()
	p, err := svc.repo.GetOrCreateCourseProgress(ctx, userID, c.ID, now)
	if err != nil {
		return ModuleView{}, errors.Wrap(err, "getting course progress")
	}
	if p.Status == StatusNotStarted {
		p.markStarted(now)
		p.UpdatedAt = now
		if err := svc.repo.UpdateCourseProgress(ctx, p); err != nil {
			return ModuleView{}, errors.Wrap(err, "updating course progress")
		}
	}
	completion, err := svc.repo.GetOrCreateCompletion(ctx, userID, m.ID, now)
	if err != nil {
		return ModuleView{}, errors.Wrap(err, "getting module completion")
	}

	modules, err := svc.catalog.QueryModules(ctx, c.ID)
	if err != nil {
		return ModuleView{}, errors.Wrap(err, "querying modules")
	}
	view := ModuleView{
		ID:              m.ID,
		CourseID:        c.ID,
		CourseTitle:     c.Title,
		Title:           m.Title,
		Description:     m.Description,
		ContentType:     m.ContentType,
		VideoURL:        m.VideoURL,
		PDFURL:          m.PDFURL,
		TextContent:     m.TextContent,
		DurationMinutes: m.DurationMinutes,
		IsCompleted:     completion.IsCompleted,
		TotalModules:    len(modules),
	}
	for i, cm := range modules {
		if cm.ID != m.ID {
			continue
		}
		view.Position = i + 1
		if i > 0 {
			prev := modules[i-1].ID
			view.PrevModuleID = &prev
		}
		if i < len(modules)-1 {
			next := modules[i+1].ID
			view.NextModuleID = &next
		}
		break
	}
	return view, nil
}

// CompleteModule marks the module completed and recomputes the course progress.
// The course percentage is the share of its required modules completed (of all its modules if none is required).
func (svc *Service) CompleteModule(ctx context.Context, userID string, moduleID, timeSpentMinutes int) (CourseProgress, error) {
	m, err := svc.catalog.GetModule(ctx, moduleID)
	if err != nil {
		return CourseProgress{}, err
	}
	c, err := svc.activeCourse(ctx, m.CourseID)
	if err != nil {
		return CourseProgress{}, catalog.ErrModuleNotFound
	}
	if timeSpentMinutes < 0 {
		return CourseProgress{}, core.NewValidationError(nil, core.FieldError{Field: "time_spent_minutes", Error: "must be positive"})
	}

	now := core.NowFunc().UTC()
	completion, err := svc.repo.GetOrCreateCompletion(ctx, userID, m.ID, now)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "getting module completion")
	}
	newlyCompleted := !completion.IsCompleted
	completion.TimeSpentMinutes += timeSpentMinutes
	if newlyCompleted {
		completion.IsCompleted = true
		completion.CompletedAt = &now
	}
	if err := svc.repo.UpdateCompletion(ctx, completion); err != nil {
		return CourseProgress{}, errors.Wrap(err, "updating module completion")
	}

	modules, err := svc.catalog.QueryModules(ctx, c.ID)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "querying modules")
	}
	done, err := svc.completedSet(ctx, userID)
	if err != nil {
		return CourseProgress{}, err
	}

	p, err := svc.repo.GetOrCreateCourseProgress(ctx, userID, c.ID, now)
	if err != nil {
		return CourseProgress{}, errors.Wrap(err, "getting course progress")
	}
	courseCompleted := p.setPercentage(coursePercentage(modules, done), now)
	p.UpdatedAt = now
	if err := svc.repo.UpdateCourseProgress(ctx, p); err != nil {
		return CourseProgress{}, errors.Wrap(err, "updating course progress")
	}

	if newlyCompleted {
		svc.notifier.Notify(ctx, notify.Event{Type: notify.EventModuleCompleted, UserID: userID, ModuleID: m.ID, CourseID: c.ID})
	}
	if courseCompleted {
		svc.notifier.Notify(ctx, notify.Event{Type: notify.EventCourseCompleted, UserID: userID, CourseID: c.ID})
	}
	return p, nil
}

func coursePercentage(modules []catalog.Module, done map[int]bool) int {
	var required, completed int
	for _, m := range modules {
		if m.IsRequired {
			required++
			if done[m.ID] {
				completed++
			}
		}
	}
	if required == 0 { // optional modules never make progress
		return 0
	}
	return completed * 100 / required
}

// CourseOverview lists the course modules in order with their completion and lock state.
// A module is locked while a previous module is not completed, unless itself completed.
func (svc *Service) CourseOverview(ctx context.Context, userID string, courseID int) (CourseOverview, error) {
	c, err := svc.activeCourse(ctx, courseID)
	if err != nil {
		return CourseOverview{}, err
	}
	modules, err := svc.catalog.QueryModules(ctx, c.ID)
	if err != nil {
		return CourseOverview{}, errors.Wrap(err, "querying modules")
	}
	done, err := svc.completedSet(ctx, userID)
	if err != nil {
		return CourseOverview{}, err
	}

	ov := CourseOverview{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		Difficulty:   c.Difficulty,
		Modules:      make([]ModuleStatus, 0, len(modules)),
		TotalModules: len(modules),
	}
	previousCompleted := true
	for _, m := range modules {
		isCompleted := done[m.ID]
		ov.Modules = append(ov.Modules, ModuleStatus{
			ID:              m.ID,
			Title:           m.Title,
			Description:     m.Description,
			ContentType:     m.ContentType,
			Order:           m.Order,
			DurationMinutes: m.DurationMinutes,
			IsRequired:      m.IsRequired,
			IsCompleted:     isCompleted,
			IsLocked:        !previousCompleted && !isCompleted,
		})
		if isCompleted {
			ov.CompletedModules++
		} else {
			previousCompleted = false
		}
		ov.TotalDuration += m.DurationMinutes
	}
	ov.ProgressPercentage = coursePercentage(modules, done)
	return ov, nil
}

// trainingModules returns the modules of every active course.
func (svc *Service) trainingModules(ctx context.Context) ([]catalog.Course, map[int][]catalog.Module, int, error) {
	courses, err := svc.catalog.QueryCourses(ctx, catalog.CourseFilter{ActiveOnly: true})
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "querying courses")
	}
	modules, err := svc.catalog.QueryModules(ctx, 0)
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "querying modules")
	}
	active := make(map[int]bool, len(courses))
	for _, c := range courses {
		active[c.ID] = true
	}
	byCourse := make(map[int][]catalog.Module, len(courses))
	var total int
	for _, m := range modules {
		if active[m.CourseID] {
			byCourse[m.CourseID] = append(byCourse[m.CourseID], m)
			total++
		}
	}
	return courses, byCourse, total, nil
}

// Dashboard summarizes the user's training.
func (svc *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	courses, byCourse, total, err := svc.trainingModules(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	completions, err := svc.repo.QueryCompletions(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying completions")
	}
	started := make(map[int]bool, len(completions))
	done := make(map[int]bool, len(completions))
	for _, c := range completions {
		started[c.ModuleID] = true
		if c.IsCompleted {
			done[c.ModuleID] = true
		}
	}
	progresses, err := svc.repo.QueryCourseProgress(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying course progress")
	}
	pcts := make(map[int]int, len(progresses))
	for _, p := range progresses {
		pcts[p.CourseID] = p.ProgressPercentage
	}

	dash := Dashboard{Courses: make([]DashboardCourse, 0, len(courses)), TotalModules: total}
	for _, c := range courses {
		modules := byCourse[c.ID]
		status := StatusLocked
		if len(modules) > 0 {
			allDone := true
			for _, m := range modules {
				if done[m.ID] {
					dash.CompletedModules++
				} else {
					allDone = false
				}
			}
			if allDone {
				status = StatusCompleted
			} else if started[modules[0].ID] {
				status = StatusInProgress
			}
		}
		dash.Courses = append(dash.Courses, DashboardCourse{
			ID:                       c.ID,
			Title:                    c.Title,
			Description:              c.Description,
			EstimatedDurationMinutes: c.EstimatedDurationMinutes,
			IsMandatory:              c.IsMandatory,
			Status:                   status,
			ProgressPercentage:       pcts[c.ID],
		})
	}
	if total > 0 {
		dash.OverallProgress = dash.CompletedModules * 100 / total
	}
	dash.AllModulesCompleted = total > 0 && dash.CompletedModules == total
	return dash, nil
}

// AllMandatoryComplete reports whether the user completed every module of the active courses.
// It is false when there is no module at all.
func (svc *Service) AllMandatoryComplete(ctx context.Context, userID string) (bool, error) {
	_, byCourse, total, err := svc.trainingModules(ctx)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	done, err := svc.completedSet(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, modules := range byCourse {
		for _, m := range modules {
			if !done[m.ID] {
				return false, nil
			}
		}
	}
	return true, nil
}

// SearchCourses searches the catalog and keeps the courses whose progress status matches `status`, if set.
func (svc *Service) SearchCourses(ctx context.Context, userID string, filter catalog.CourseFilter, status string) ([]catalog.Course, error) {
	courses, err := svc.catalog.SearchCourses(ctx, filter)
	if err != nil {
		return nil, err
	}
	status = core.CleanString(status, true /* lower */)
	if status == "" {
		return courses, nil
	}

	progresses, err := svc.repo.QueryCourseProgress(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course progress")
	}
	statuses := make(map[int]string, len(progresses))
	for _, p := range progresses {
		statuses[p.CourseID] = p.Status
	}

	filtered := make([]catalog.Course, 0, len(courses))
	for _, c := range courses {
		s, ok := statuses[c.ID]
		if !ok {
			s = StatusNotStarted
		}
		if s == status {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
