package assessment_test

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/storage/database/inmem"
	"github.com/trezcool/academy/tests"
)

type fakeCertifier struct {
	mu       sync.Mutex
	calls    []string // attempt IDs
	failures int      // number of calls to fail before succeeding
}

func (c *fakeCertifier) Certify(_ context.Context, _, attemptID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return false, errors.New("connection reset by peer")
	}
	c.calls = append(c.calls, attemptID)
	return len(c.calls) == 1, nil
}

type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	n.events = append(n.events, ev)
}

type fixture struct {
	svc       *assessment.Service
	repo      assessment.Repository
	catRepo   catalog.Repository
	certifier *fakeCertifier
	notifier  *recordingNotifier
}

func setup(t *testing.T) fixture {
	db := inmem.NewDB()
	catRepo := inmem.NewCatalogRepository(db)
	repo := inmem.NewAttemptRepository(db)

	validate, translator := testutil.NewValidator()
	catalogSvc := catalog.NewService(catRepo, validate, translator)
	f := fixture{
		repo:      repo,
		catRepo:   catRepo,
		certifier: new(fakeCertifier),
		notifier:  new(recordingNotifier),
	}
	f.svc = assessment.NewService(
		repo, catalogSvc, f.certifier, progress.NewService(inmem.NewProgressRepository(db), catalogSvc, nil), f.notifier,
	)
	return f
}

func TestService_Start(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 10, 85)

	att, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusInProgress, att.Status)
	assert.Equal(t, 10, att.TotalQuestions)
	assert.Equal(t, "0.00", att.ScorePercentage.StringFixed(2))

	stored, err := f.repo.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	require.Len(t, stored.Responses, 10)

	// every question exactly once, at positions 0..n-1
	var got, want []int
	for i, resp := range stored.Responses {
		assert.Equal(t, i, resp.Position)
		assert.Nil(t, resp.SelectedOptionID)
		got = append(got, resp.QuestionID)
	}
	for _, q := range asmt.Questions {
		want = append(want, q.ID)
	}
	sort.Ints(got)
	sort.Ints(want)
	assert.Equal(t, want, got)

	t.Run("unknown assessment", func(t *testing.T) {
		_, err := f.svc.Start(ctx, userID, 999)
		assert.Equal(t, catalog.ErrAssessmentNotFound, err)
	})

	t.Run("inactive assessment", func(t *testing.T) {
		inactive := testutil.CreateAssessment(t, f.catRepo, 2, 85)
		inactive.IsActive = false
		_, err := f.catRepo.UpdateAssessment(ctx, inactive)
		require.NoError(t, err)

		_, err = f.svc.Start(ctx, userID, inactive.ID)
		assert.Equal(t, catalog.ErrAssessmentNotFound, err)
	})
}

func TestService_Render(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 3, 85)

	att, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)

	view, err := f.svc.Render(ctx, userID, att.ID)
	require.NoError(t, err)
	assert.Equal(t, asmt.Title, view.AssessmentTitle)
	require.Len(t, view.Questions, 3)

	stored, err := f.repo.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	for i, q := range view.Questions {
		assert.Equal(t, stored.Responses[i].QuestionID, q.ID)
		assert.Len(t, q.Options, 4)
	}

	_, err = f.svc.Render(ctx, uuid.New().String(), att.ID)
	assert.Equal(t, assessment.ErrNotAttemptOwner, err)
	_, err = f.svc.Render(ctx, userID, "not-a-uuid")
	assert.Equal(t, assessment.ErrAttemptNotFound, err)
	_, err = f.svc.Render(ctx, userID, uuid.New().String())
	assert.True(t, core.IsNotFound(err))
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		nCorrect    int
		wantCorrect int
		wantScore   string
		wantPassed  bool
	}{
		{name: "all correct", nCorrect: 4, wantCorrect: 4, wantScore: "100.00", wantPassed: true},
		{name: "three of four", nCorrect: 3, wantCorrect: 3, wantScore: "75.00", wantPassed: true},
		{name: "one of four", nCorrect: 1, wantCorrect: 1, wantScore: "25.00", wantPassed: false},
		{name: "no answer", nCorrect: 0, wantCorrect: 0, wantScore: "0.00", wantPassed: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			userID := uuid.New().String()
			asmt := testutil.CreateAssessment(t, f.catRepo, 4, 75)
			att, err := f.svc.Start(ctx, userID, asmt.ID)
			require.NoError(t, err)

			correct, wrong := testutil.CorrectAnswers(asmt), testutil.WrongAnswers(asmt)
			answers := make(map[int]int)
			for i, q := range asmt.Questions {
				if i < tt.nCorrect {
					answers[q.ID] = correct[q.ID]
				} else if tt.nCorrect > 0 {
					answers[q.ID] = wrong[q.ID]
				}
			}

			graded, err := f.svc.Submit(ctx, userID, att.ID, answers)
			require.NoError(t, err)
			assert.Equal(t, assessment.StatusGraded, graded.Status)
			assert.Equal(t, tt.wantCorrect, graded.CorrectAnswers)
			assert.Equal(t, tt.wantScore, graded.ScorePercentage.StringFixed(2))
			assert.Equal(t, tt.wantPassed, graded.Passed)
			assert.NotNil(t, graded.SubmittedAt)

			if tt.wantPassed {
				assert.Equal(t, []string{att.ID}, f.certifier.calls)
			} else {
				assert.Empty(t, f.certifier.calls)
			}
			require.Len(t, f.notifier.events, 1)
			assert.Equal(t, notify.EventAttemptGraded, f.notifier.events[0].Type)
			assert.Equal(t, tt.wantPassed, f.notifier.events[0].Passed)

			stored, err := f.repo.GetAttempt(ctx, att.ID)
			require.NoError(t, err)
			assert.Equal(t, assessment.StatusGraded, stored.Status)
			var nCorrect int
			for _, resp := range stored.Responses {
				if resp.IsCorrect {
					nCorrect++
				}
			}
			assert.Equal(t, tt.wantCorrect, nCorrect)
		})
	}
}

func TestService_Submit_rejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 2, 85)
	att, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)

	q1, q2 := asmt.Questions[0], asmt.Questions[1]

	t.Run("option of another question", func(t *testing.T) {
		answers := map[int]int{q1.ID: q1.Options[0].ID, q2.ID: q1.Options[1].ID}
		_, err := f.svc.Submit(ctx, userID, att.ID, answers)
		require.True(t, core.IsValidation(err))
	})

	t.Run("unknown option", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, userID, att.ID, map[int]int{q1.ID: 999999})
		assert.Equal(t, assessment.ErrOptionNotFound, err)
	})

	t.Run("not the owner", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, uuid.New().String(), att.ID, testutil.CorrectAnswers(asmt))
		assert.Equal(t, assessment.ErrNotAttemptOwner, err)
	})

	// rejected submissions leave the attempt untouched
	stored, err := f.repo.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusInProgress, stored.Status)
	for _, resp := range stored.Responses {
		assert.Nil(t, resp.SelectedOptionID)
		assert.False(t, resp.IsCorrect)
	}

	t.Run("unknown question ignored", func(t *testing.T) {
		answers := testutil.CorrectAnswers(asmt)
		answers[424242] = q1.Options[0].ID
		graded, err := f.svc.Submit(ctx, userID, att.ID, answers)
		require.NoError(t, err)
		assert.Equal(t, 2, graded.CorrectAnswers)
	})

	t.Run("submitted twice", func(t *testing.T) {
		_, err := f.svc.Submit(ctx, userID, att.ID, testutil.WrongAnswers(asmt))
		assert.Equal(t, assessment.ErrAttemptNotInProgress, err)
		assert.Len(t, f.certifier.calls, 1)
	})
}

func TestService_Result(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 2, 85)
	att, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)

	_, err = f.svc.Result(ctx, userID, att.ID)
	assert.Equal(t, assessment.ErrAttemptNotSubmitted, err)

	q1 := asmt.Questions[0]
	_, err = f.svc.Submit(ctx, userID, att.ID, map[int]int{q1.ID: q1.Options[1].ID})
	require.NoError(t, err)

	res, err := f.svc.Result(ctx, userID, att.ID)
	require.NoError(t, err)
	assert.Equal(t, 85, res.PassingScore)
	require.Len(t, res.Items, 2)
	for _, item := range res.Items {
		assert.False(t, item.IsCorrect)
		require.Len(t, item.CorrectOptionIDs, 1)
		if item.QuestionID == q1.ID {
			require.NotNil(t, item.SelectedOptionID)
			assert.Equal(t, q1.Options[1].ID, *item.SelectedOptionID)
			assert.Equal(t, q1.Options[1].Text, item.SelectedOptionText)
			assert.Equal(t, q1.Options[0].ID, item.CorrectOptionIDs[0])
		} else {
			assert.Nil(t, item.SelectedOptionID)
			assert.Empty(t, item.SelectedOptionText)
		}
	}
}

func TestService_ListAvailable(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 2, 85)

	list, err := f.svc.ListAvailable(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].LastAttempt)

	first, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)
	core.NowFunc = func() time.Time { return first.StartedAt.Add(time.Minute) }
	defer func() { core.NowFunc = time.Now }()
	second, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)

	list, err = f.svc.ListAvailable(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, list[0].LastAttempt)
	assert.Equal(t, second.ID, list[0].LastAttempt.ID)

	attempts, err := f.svc.ListAttempts(ctx, userID, asmt.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestService_Submit_certificationRetried(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.certifier.failures = 1
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 4, 75)
	att, err := f.svc.Start(ctx, userID, asmt.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, userID, att.ID, testutil.CorrectAnswers(asmt))
	require.Error(t, err)
	assert.Empty(t, f.certifier.calls)
	assert.Empty(t, f.notifier.events)

	stored, err := f.repo.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusSubmitted, stored.Status)
	assert.True(t, stored.Passed)

	// the grading is finished, the new answers are ignored
	graded, err := f.svc.Submit(ctx, userID, att.ID, testutil.WrongAnswers(asmt))
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusGraded, graded.Status)
	assert.True(t, graded.Passed)
	assert.Equal(t, 4, graded.CorrectAnswers)
	assert.Equal(t, []string{att.ID}, f.certifier.calls)
	require.Len(t, f.notifier.events, 1)
	assert.True(t, f.notifier.events[0].Passed)

	stored, err = f.repo.GetAttempt(ctx, att.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusGraded, stored.Status)
	assert.Equal(t, "100.00", stored.ScorePercentage.StringFixed(2))

	_, err = f.svc.Submit(ctx, userID, att.ID, testutil.CorrectAnswers(asmt))
	assert.Equal(t, assessment.ErrAttemptNotInProgress, err)
	assert.Len(t, f.certifier.calls, 1)
}

func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func questionIDs(questions []catalog.Question) []int {
	ids := make([]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func TestService_Start_questionOrder(t *testing.T) {
	defer assessment.SetShuffle(reverse)()
	ctx := context.Background()

	tests := []struct {
		name      string
		randomize bool
		reversed  bool
	}{
		{name: "ordinal order", randomize: false},
		{name: "shuffled", randomize: true, reversed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			userID := uuid.New().String()
			asmt := testutil.CreateAssessment(t, f.catRepo, 5, 85)
			asmt.RandomizeQuestions = tt.randomize
			_, err := f.catRepo.UpdateAssessment(ctx, asmt)
			require.NoError(t, err)
			asmt, err = f.catRepo.GetAssessment(ctx, asmt.ID, true)
			require.NoError(t, err)

			want := questionIDs(asmt.Questions)
			if tt.reversed {
				reverse(len(want), func(i, j int) { want[i], want[j] = want[j], want[i] })
			}

			att, err := f.svc.Start(ctx, userID, asmt.ID)
			require.NoError(t, err)
			stored, err := f.repo.GetAttempt(ctx, att.ID)
			require.NoError(t, err)

			got := make([]int, 0, len(stored.Responses))
			for _, resp := range stored.Responses {
				got = append(got, resp.QuestionID)
			}
			assert.Equal(t, want, got)

			// the order is kept across renders
			for i := 0; i < 2; i++ {
				view, err := f.svc.Render(ctx, userID, att.ID)
				require.NoError(t, err)
				rendered := make([]int, 0, len(view.Questions))
				for _, q := range view.Questions {
					rendered = append(rendered, q.ID)
				}
				assert.Equal(t, want, rendered)
			}
		})
	}
}

func TestService_Start_randomOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	userID := uuid.New().String()
	asmt := testutil.CreateAssessment(t, f.catRepo, 10, 85)
	want := questionIDs(asmt.Questions)
	sort.Ints(want)

	orders := make(map[string]bool)
	for i := 0; i < 10; i++ {
		att, err := f.svc.Start(ctx, userID, asmt.ID)
		require.NoError(t, err)

		got := make([]int, 0, len(att.Responses))
		key := ""
		for _, resp := range att.Responses {
			got = append(got, resp.QuestionID)
			key += strconv.Itoa(resp.QuestionID) + ","
		}
		orders[key] = true

		sort.Ints(got)
		assert.Equal(t, want, got, "every question exactly once")
	}
	assert.GreaterOrEqual(t, len(orders), 2)
}

func TestService_Render_optionOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		randomize bool
		wantCalls int
	}{
		{name: "ordinal order", randomize: false},
		{name: "reshuffled on every render", randomize: true, wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			defer assessment.SetShuffle(func(n int, swap func(i, j int)) {
				calls++
				// rotate left by the number of calls
				for k := 0; k < calls%n; k++ {
					for i := 0; i < n-1; i++ {
						swap(i, i+1)
					}
				}
			})()

			f := setup(t)
			userID := uuid.New().String()
			asmt := testutil.CreateAssessment(t, f.catRepo, 1, 85)
			asmt.RandomizeQuestions = false
			asmt.RandomizeOptions = tt.randomize
			_, err := f.catRepo.UpdateAssessment(ctx, asmt)
			require.NoError(t, err)
			asmt, err = f.catRepo.GetAssessment(ctx, asmt.ID, true)
			require.NoError(t, err)

			att, err := f.svc.Start(ctx, userID, asmt.ID)
			require.NoError(t, err)

			var renders [][]int
			for i := 0; i < 2; i++ {
				view, err := f.svc.Render(ctx, userID, att.ID)
				require.NoError(t, err)
				require.Len(t, view.Questions, 1)
				ids := make([]int, 0, 4)
				for _, opt := range view.Questions[0].Options {
					ids = append(ids, opt.ID)
				}
				renders = append(renders, ids)
			}
			assert.Equal(t, tt.wantCalls, calls)

			ordinal := make([]int, 0, 4)
			for _, opt := range asmt.Questions[0].Options {
				ordinal = append(ordinal, opt.ID)
			}
			if !tt.randomize {
				assert.Equal(t, ordinal, renders[0])
				assert.Equal(t, ordinal, renders[1])
				return
			}
			assert.Equal(t, append(ordinal[1:], ordinal[0]), renders[0])
			assert.NotEqual(t, renders[0], renders[1])
			assert.ElementsMatch(t, ordinal, renders[1])
		})
	}
}
