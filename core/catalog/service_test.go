package catalog_test

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/storage/database/inmem"
	"github.com/trezcool/academy/tests"
)

func setup(t *testing.T) (*catalog.Service, catalog.Repository) {
	repo := inmem.NewCatalogRepository(inmem.NewDB())
	validate, translator := testutil.NewValidator()
	return catalog.NewService(repo, validate, translator), repo
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestService_ImportCourses(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	tests := []struct {
		name        string
		data        string
		wantCreated int
		wantErrors  []catalog.RowError
	}{
		{
			name: "row errors",
			data: "title,difficulty,is_active,order\n" +
				"Safety,beginner,yes-ish,1\n" +
				"   ,beginner,true,2\n" +
				"Handling,expert,true,3\n" +
				"Fine,advanced,false,4\n",
			wantErrors: []catalog.RowError{
				{Row: 2, Errors: map[string]string{"is_active": `"yes-ish" is not a boolean`}},
				{Row: 3, Errors: map[string]string{"title": "this field is required"}},
				{Row: 4, Errors: map[string]string{"difficulty": "difficulty must be one of [beginner intermediate advanced]"}},
			},
		},
		{
			name:        "valid",
			data:        "title,difficulty,is_active,order\nSafety,Beginner,true,1\nAdvanced handling,advanced,false,2\n",
			wantCreated: 2,
			wantErrors:  []catalog.RowError{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.ImportCourses(ctx, strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, res.Created)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}

	courses, err := svc.QueryCourses(ctx, catalog.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, catalog.DifficultyBeginner, courses[0].Difficulty)
	assert.True(t, courses[0].IsMandatory)
	assert.False(t, courses[1].IsActive)

	t.Run("bad header", func(t *testing.T) {
		_, err := svc.ImportCourses(ctx, strings.NewReader("titl\nlol\n"))
		assert.True(t, core.IsValidation(err))
	})

	t.Run("export", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, svc.ExportCourses(ctx, &buf))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasSuffix(lines[2], ",Advanced handling,,advanced,false,true,2,0"))
	})
}

func TestService_ImportModules(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	course := testutil.CreateCourse(t, repo, "Safety", 1, true)
	testutil.CreateModule(t, repo, course.ID, "Existing", 1)

	data := "course_id,title,order,content_type,video_url\n" +
		"999,Lost,1,text,\n" +
		"1,Broken link,2,video,not a url\n" +
		"1,Intro,2,video,https://videos.test/intro\n" +
		"1,Rules,2,text,\n"
	data = strings.ReplaceAll(data, "\n1,", "\n"+strconv.Itoa(course.ID)+",")

	res, err := svc.ImportModules(ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, []catalog.RowError{
		{Row: 2, Errors: map[string]string{"course_id": "course not found"}},
		{Row: 3, Errors: map[string]string{"video_url": "video_url must be a valid URL"}},
		{Row: 5, Errors: map[string]string{"order": "order already used on row 4"}},
	}, res.Errors)

	// a clash with a saved module rejects the whole file
	cid := strconv.Itoa(course.ID)
	res, err = svc.ImportModules(ctx, strings.NewReader("course_id,title,order\n"+cid+",New,2\n"+cid+",Clash,1\n"))
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, []catalog.RowError{
		{Row: 3, Errors: map[string]string{"order": "order is already taken"}},
	}, res.Errors)
	modules, err := svc.QueryModules(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, "Existing", modules[0].Title)

	res, err = svc.ImportModules(ctx, strings.NewReader("course_id,title,order,is_required\n"+strconv.Itoa(course.ID)+",Outro,2,false\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	modules, err = svc.QueryModules(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "Outro", modules[1].Title)
	assert.False(t, modules[1].IsRequired)
	assert.Equal(t, catalog.ContentText, modules[1].ContentType)
}

func TestService_ValidateAssessment(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	asmt := testutil.CreateAssessment(t, repo, 2, 85)
	warnings, err := svc.ValidateAssessment(ctx, asmt.ID)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	q, err := svc.AddQuestion(ctx, asmt.ID, catalog.NewQuestion{
		Text:  "Pick all",
		Order: 5,
		Options: []catalog.NewOption{
			{Text: "a", IsCorrect: true},
			{Text: "b", IsCorrect: true, Order: 1},
		},
	})
	require.NoError(t, err)
	_, err = svc.AddQuestion(ctx, asmt.ID, catalog.NewQuestion{
		Text:    "Pick none",
		Order:   6,
		Options: []catalog.NewOption{{Text: "a"}, {Text: "b", Order: 1}},
	})
	require.NoError(t, err)

	warnings, err = svc.ValidateAssessment(ctx, asmt.ID)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
	assert.Equal(t, "assessment has 4 questions but total_questions is 2", warnings[0])
	assert.Contains(t, warnings, "question "+strconv.Itoa(q.ID)+" has 2 correct options")

	_, err = svc.AddQuestion(ctx, asmt.ID, catalog.NewQuestion{Text: "Same order", Order: 5, Options: []catalog.NewOption{{Text: "a"}, {Text: "b", Order: 1}}})
	assert.True(t, core.IsValidation(err))

	_, err = svc.ValidateAssessment(ctx, 999)
	assert.Equal(t, catalog.ErrAssessmentNotFound, err)
}

func TestService_Offices(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	office, err := svc.CreateOffice(ctx, catalog.NewOffice{
		Name:  " Head Office ",
		Code:  "HQ",
		Email: "HQ@Academy.test",
		Hours: []catalog.OfficeHours{
			{DayOfWeek: 0, IsOpen: true, OpenTime: "09:00", CloseTime: "17:00", BreakStart: "12:00", BreakEnd: "13:00"},
			{DayOfWeek: 5, IsOpen: true, OpenTime: "10:00", CloseTime: "14:00"},
			{DayOfWeek: 6, IsOpen: false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Head Office", office.Name)
	assert.Equal(t, "hq@academy.test", office.Email)
	assert.True(t, office.IsActive)

	week := office.WeeklySchedule()
	require.Len(t, week, 7)
	assert.Equal(t, catalog.DaySchedule{
		Day: "Monday", DayOfWeek: 0, IsOpen: true, OpenTime: "09:00", CloseTime: "17:00", BreakStart: "12:00", BreakEnd: "13:00",
	}, week[0])
	assert.Equal(t, catalog.DaySchedule{Day: "Tuesday", DayOfWeek: 1}, week[1])
	assert.True(t, week[5].IsOpen)
	assert.False(t, week[6].IsOpen)

	tests := []struct {
		name  string
		nOff  catalog.NewOffice
		field string
	}{
		{name: "code taken", nOff: catalog.NewOffice{Name: "Other", Code: "HQ"}, field: "code"},
		{name: "bad time", nOff: catalog.NewOffice{Name: "Other", Code: "B1", Hours: []catalog.OfficeHours{{DayOfWeek: 1, IsOpen: true, OpenTime: "9h", CloseTime: "17:00"}}}, field: "open_time"},
		{name: "open without times", nOff: catalog.NewOffice{Name: "Other", Code: "B2", Hours: []catalog.OfficeHours{{DayOfWeek: 1, IsOpen: true}}}, field: "open_time"},
		{name: "bad day", nOff: catalog.NewOffice{Name: "Other", Code: "B3", Hours: []catalog.OfficeHours{{DayOfWeek: 7}}}, field: "day_of_week"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOffice(ctx, tt.nOff)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	office, err = svc.UpdateOffice(ctx, office.ID, catalog.NewOffice{Name: "Head Office", Code: "HQ", IsActive: boolPtr(false), Order: 1})
	require.NoError(t, err)
	assert.False(t, office.IsActive)
	assert.Empty(t, office.Hours)

	active, err := svc.QueryOffices(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestService_Assessments(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	asmt, err := svc.CreateAssessment(ctx, catalog.NewAssessment{Title: "Final"})
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultPassingScore, asmt.PassingScore)
	assert.Equal(t, catalog.DefaultTotalQuestions, asmt.TotalQuestions)
	assert.True(t, asmt.RandomizeQuestions)

	_, err = svc.CreateAssessment(ctx, catalog.NewAssessment{Title: "Too hard", PassingScore: intPtr(101)})
	assert.Error(t, err)

	asmt, err = svc.UpdateAssessment(ctx, asmt.ID, catalog.NewAssessment{Title: "Final", PassingScore: intPtr(70), IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, 70, asmt.PassingScore)
	assert.Equal(t, catalog.DefaultTotalQuestions, asmt.TotalQuestions)

	active, err := svc.QueryAssessments(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}
