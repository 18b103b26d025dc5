package progress_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/storage/database/inmem"
	"github.com/trezcool/academy/tests"
)

type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	types := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		types = append(types, ev.Type)
	}
	return types
}

func setup(t *testing.T) (*progress.Service, catalog.Repository, *recordingNotifier) {
	db := inmem.NewDB()
	catRepo := inmem.NewCatalogRepository(db)
	validate, translator := testutil.NewValidator()
	notifier := new(recordingNotifier)
	svc := progress.NewService(inmem.NewProgressRepository(db), catalog.NewService(catRepo, validate, translator), notifier)
	return svc, catRepo, notifier
}

func TestService_CompleteModule(t *testing.T) {
	ctx := context.Background()
	svc, catRepo, notifier := setup(t)

	course := testutil.CreateCourse(t, catRepo, "Safety", 1, true)
	m1 := testutil.CreateModule(t, catRepo, course.ID, "One", 1)
	m2 := testutil.CreateModule(t, catRepo, course.ID, "Two", 2)
	m3 := testutil.CreateModule(t, catRepo, course.ID, "Three", 3)
	optional := testutil.CreateModule(t, catRepo, course.ID, "Extra", 4)
	optional.IsRequired = false
	_, err := catRepo.UpdateModule(ctx, optional)
	require.NoError(t, err)

	// optional modules do not count
	p, err := svc.CompleteModule(ctx, "u1", optional.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ProgressPercentage)
	assert.Equal(t, progress.StatusInProgress, p.Status)

	steps := []struct {
		moduleID   int
		wantPct    int
		wantStatus string
	}{
		{moduleID: m1.ID, wantPct: 33, wantStatus: progress.StatusInProgress},
		{moduleID: m1.ID, wantPct: 33, wantStatus: progress.StatusInProgress}, // idempotent
		{moduleID: m3.ID, wantPct: 66, wantStatus: progress.StatusInProgress},
		{moduleID: m2.ID, wantPct: 100, wantStatus: progress.StatusCompleted},
	}
	for _, step := range steps {
		p, err := svc.CompleteModule(ctx, "u1", step.moduleID, 5)
		require.NoError(t, err)
		assert.Equal(t, step.wantPct, p.ProgressPercentage)
		assert.Equal(t, step.wantStatus, p.Status)
	}

	assert.Equal(t, []string{
		notify.EventModuleCompleted, // optional
		notify.EventModuleCompleted,
		notify.EventModuleCompleted,
		notify.EventModuleCompleted,
		notify.EventCourseCompleted,
	}, notifier.types())

	t.Run("negative time", func(t *testing.T) {
		_, err := svc.CompleteModule(ctx, "u1", m1.ID, -1)
		assert.Error(t, err)
	})
	t.Run("unknown module", func(t *testing.T) {
		_, err := svc.CompleteModule(ctx, "u1", 999, 0)
		assert.Equal(t, catalog.ErrModuleNotFound, err)
	})
}

func TestService_CompleteModule_optionalOnly(t *testing.T) {
	ctx := context.Background()
	svc, catRepo, notifier := setup(t)

	course := testutil.CreateCourse(t, catRepo, "Extras", 1, false)
	var modules []catalog.Module
	for i, title := range []string{"Bonus", "Trivia"} {
		m := testutil.CreateModule(t, catRepo, course.ID, title, i+1)
		m.IsRequired = false
		_, err := catRepo.UpdateModule(ctx, m)
		require.NoError(t, err)
		modules = append(modules, m)
	}

	for _, m := range modules {
		p, err := svc.CompleteModule(ctx, "u1", m.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, p.ProgressPercentage)
		assert.Equal(t, progress.StatusInProgress, p.Status)
	}
	assert.NotContains(t, notifier.types(), notify.EventCourseCompleted)

	ov, err := svc.CourseOverview(ctx, "u1", course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, ov.ProgressPercentage)
}

func TestService_CourseOverview(t *testing.T) {
	ctx := context.Background()
	svc, catRepo, _ := setup(t)

	course := testutil.CreateCourse(t, catRepo, "Safety", 1, true)
	m1 := testutil.CreateModule(t, catRepo, course.ID, "One", 1)
	testutil.CreateModule(t, catRepo, course.ID, "Two", 2)
	m3 := testutil.CreateModule(t, catRepo, course.ID, "Three", 3)

	locks := func() []bool {
		ov, err := svc.CourseOverview(ctx, "u1", course.ID)
		require.NoError(t, err)
		l := make([]bool, 0, len(ov.Modules))
		for _, m := range ov.Modules {
			l = append(l, m.IsLocked)
		}
		return l
	}

	assert.Equal(t, []bool{false, true, true}, locks())

	_, err := svc.CompleteModule(ctx, "u1", m1.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true}, locks())

	// a completed module is never locked
	_, err = svc.CompleteModule(ctx, "u1", m3.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false}, locks())

	t.Run("inactive course", func(t *testing.T) {
		course.IsActive = false
		_, err := catRepo.UpdateCourse(ctx, course)
		require.NoError(t, err)
		_, err = svc.CourseOverview(ctx, "u1", course.ID)
		assert.Equal(t, catalog.ErrCourseNotFound, err)
		_, err = svc.StartModule(ctx, "u1", m1.ID)
		assert.Equal(t, catalog.ErrModuleNotFound, err)
	})
}

func TestService_StartModule(t *testing.T) {
	ctx := context.Background()
	svc, catRepo, _ := setup(t)

	course := testutil.CreateCourse(t, catRepo, "Safety", 1, true)
	m1 := testutil.CreateModule(t, catRepo, course.ID, "One", 1)
	m2 := testutil.CreateModule(t, catRepo, course.ID, "Two", 2)

	view, err := svc.StartModule(ctx, "u1", m1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Position)
	assert.Nil(t, view.PrevModuleID)
	require.NotNil(t, view.NextModuleID)
	assert.Equal(t, m2.ID, *view.NextModuleID)

	courses, err := svc.SearchCourses(ctx, "u1", catalog.CourseFilter{}, progress.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, course.ID, courses[0].ID)

	// opening a module does not complete it
	dash, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, dash.CompletedModules)
	require.Len(t, dash.Courses, 1)
	assert.Equal(t, progress.StatusInProgress, dash.Courses[0].Status)
}

func TestService_AllMandatoryComplete(t *testing.T) {
	ctx := context.Background()
	svc, catRepo, _ := setup(t)

	done, err := svc.AllMandatoryComplete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, done, "no module at all")

	c1 := testutil.CreateCourse(t, catRepo, "One", 1, true)
	c2 := testutil.CreateCourse(t, catRepo, "Two", 2, true)
	m1 := testutil.CreateModule(t, catRepo, c1.ID, "A", 1)
	m2 := testutil.CreateModule(t, catRepo, c2.ID, "B", 1)

	_, err = svc.CompleteModule(ctx, "u1", m1.ID, 0)
	require.NoError(t, err)
	done, err = svc.AllMandatoryComplete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, done)

	_, err = svc.CompleteModule(ctx, "u1", m2.ID, 0)
	require.NoError(t, err)
	done, err = svc.AllMandatoryComplete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, done)

	dash, err := svc.Dashboard(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, dash.OverallProgress)
	assert.True(t, dash.AllModulesCompleted)

	// another user is unaffected
	done, err = svc.AllMandatoryComplete(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, done)
}
