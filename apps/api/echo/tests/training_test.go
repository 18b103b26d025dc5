package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academy/apps/api/echo"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/tests"
)

func Test_trainingApi(t *testing.T) {
	app := setup(t)

	learner := testutil.CreateUser(t, app.repos.Users, "Learner", "learner", "learner@test.cd", "", nil, true)
	token := getToken(t, app, learner)

	safety := testutil.CreateCourse(t, app.repos.Catalog, "Safety", 1, true)
	m1 := testutil.CreateModule(t, app.repos.Catalog, safety.ID, "Intro", 1)
	m2 := testutil.CreateModule(t, app.repos.Catalog, safety.ID, "Rules", 2)
	m3 := testutil.CreateModule(t, app.repos.Catalog, safety.ID, "Practice", 3)
	handling := testutil.CreateCourse(t, app.repos.Catalog, "Handling", 2, false)
	testutil.CreateModule(t, app.repos.Catalog, handling.ID, "Basics", 1)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/training", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown module", path: "/v1/training/modules/999", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "module not found"})},
		{name: "invalid module id", path: "/v1/training/modules/lol", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "unknown course", path: "/v1/training/courses/999", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{
			name: "complete unknown module", method: http.MethodPost, path: "/v1/training/modules/999/complete", token: token,
			body: []byte(`{}`), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "module not found"}),
		},
	})

	t.Run("view module", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/training/modules/%d", m2.ID), token)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view progress.ModuleView
		unmarshal(t, rec, &view)
		assert.Equal(t, "Safety", view.CourseTitle)
		assert.Equal(t, 2, view.Position)
		assert.Equal(t, 3, view.TotalModules)
		require.NotNil(t, view.PrevModuleID)
		require.NotNil(t, view.NextModuleID)
		assert.Equal(t, m1.ID, *view.PrevModuleID)
		assert.Equal(t, m3.ID, *view.NextModuleID)
		assert.False(t, view.IsCompleted)
	})

	complete := func(t *testing.T, moduleID int) progress.CourseProgress {
		body := marchallObj(t, CompleteModuleRequest{TimeSpentMinutes: 5})
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/training/modules/%d/complete", moduleID), token, body)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var prog progress.CourseProgress
		unmarshal(t, rec, &prog)
		return prog
	}

	t.Run("complete first module", func(t *testing.T) {
		prog := complete(t, m1.ID)
		assert.Equal(t, safety.ID, prog.CourseID)
		assert.Equal(t, progress.StatusInProgress, prog.Status)
		assert.Equal(t, 33, prog.ProgressPercentage)
		assert.Nil(t, prog.CompletedAt)

		// completing twice changes nothing
		assert.Equal(t, 33, complete(t, m1.ID).ProgressPercentage)
	})

	t.Run("course overview", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/training/courses/%d", safety.ID), token)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var ov progress.CourseOverview
		unmarshal(t, rec, &ov)
		require.Len(t, ov.Modules, 3)
		assert.Equal(t, 1, ov.CompletedModules)
		assert.Equal(t, 3, ov.TotalModules)
		assert.Equal(t, 30, ov.TotalDuration)
		assert.Equal(t, 33, ov.ProgressPercentage)

		assert.True(t, ov.Modules[0].IsCompleted)
		assert.False(t, ov.Modules[0].IsLocked)
		assert.False(t, ov.Modules[1].IsLocked)
		assert.True(t, ov.Modules[2].IsLocked)
	})

	t.Run("complete course", func(t *testing.T) {
		complete(t, m2.ID)
		prog := complete(t, m3.ID)
		assert.Equal(t, progress.StatusCompleted, prog.Status)
		assert.Equal(t, 100, prog.ProgressPercentage)
		assert.NotNil(t, prog.CompletedAt)
	})

	t.Run("dashboard", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/training", token)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var dash progress.Dashboard
		unmarshal(t, rec, &dash)
		require.Len(t, dash.Courses, 2)
		assert.Equal(t, "Safety", dash.Courses[0].Title)
		assert.Equal(t, progress.StatusCompleted, dash.Courses[0].Status)
		assert.Equal(t, 100, dash.Courses[0].ProgressPercentage)
		assert.Equal(t, 0, dash.Courses[1].ProgressPercentage)
		assert.Equal(t, 4, dash.TotalModules)
		assert.Equal(t, 3, dash.CompletedModules)
		assert.Equal(t, 75, dash.OverallProgress)
		assert.False(t, dash.AllModulesCompleted)
		assert.False(t, dash.IsCertified)
	})

	t.Run("search", func(t *testing.T) {
		tests := []struct {
			query string
			want  []string
		}{
			{query: "", want: []string{"Safety", "Handling"}},
			{query: "?q=safe", want: []string{"Safety"}},
			{query: "?status=completed", want: []string{"Safety"}},
			{query: "?status=not_started", want: []string{"Handling"}},
			{query: "?q=safe&status=not_started", want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.query, func(t *testing.T) {
				req, rec := newAuthRequest(http.MethodGet, "/v1/training/courses/search"+tt.query, token)
				rec = app.do(req, rec)
				require.Equal(t, http.StatusOK, rec.Code)

				var courses []catalog.Course
				unmarshal(t, rec, &courses)
				titles := make([]string, 0, len(courses))
				for _, c := range courses {
					titles = append(titles, c.Title)
				}
				assert.ElementsMatch(t, tt.want, titles)
			})
		}
	})
}
