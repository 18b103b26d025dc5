package emailsvc

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/core/user"
	appfs "github.com/trezcool/academy/fs"
)

type fakeStore struct {
	users       map[string]user.User
	attempts    map[string]assessment.Attempt
	assessments map[int]catalog.Assessment
}

func (s fakeStore) GetByID(_ context.Context, id string) (user.User, error) {
	if usr, ok := s.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (s fakeStore) GetAttempt(_ context.Context, id string) (assessment.Attempt, error) {
	if att, ok := s.attempts[id]; ok {
		return att, nil
	}
	return assessment.Attempt{}, assessment.ErrAttemptNotFound
}

func (s fakeStore) GetAssessment(_ context.Context, id int, _ bool) (catalog.Assessment, error) {
	if a, ok := s.assessments[id]; ok {
		return a, nil
	}
	return catalog.Assessment{}, catalog.ErrAssessmentNotFound
}

func TestCertifiedSink_Handle(t *testing.T) {
	conf := &core.Config{AppName: "Academy", FrontendBaseURL: "https://academy.test"}
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.FrontendBaseURL, true)
	require.NoError(t, err)

	store := fakeStore{
		users: map[string]user.User{
			"u1": {ID: "u1", Name: "Awe", Email: "awe@test.cd"},
			"u2": {ID: "u2", Name: "No mail"},
		},
		attempts: map[string]assessment.Attempt{
			"a1": {ID: "a1", AssessmentID: 7, ScorePercentage: decimal.RequireFromString("87.5")},
		},
		assessments: map[int]catalog.Assessment{7: {ID: 7, Title: "Final"}},
	}
	sink := NewCertifiedSink(NewConsoleServiceMock(conf, tmpls), store, store, store)
	ctx := context.Background()

	tests := []struct {
		name     string
		ev       notify.Event
		wantErr  bool
		wantSent int
	}{
		{name: "other event", ev: notify.Event{Type: notify.EventAttemptGraded, UserID: "u1", AttemptID: "a1"}},
		{name: "unknown user", ev: notify.Event{Type: notify.EventUserCertified, UserID: "lol", AttemptID: "a1"}, wantErr: true},
		{name: "user without email", ev: notify.Event{Type: notify.EventUserCertified, UserID: "u2", AttemptID: "a1"}},
		{name: "unknown attempt", ev: notify.Event{Type: notify.EventUserCertified, UserID: "u1", AttemptID: "lol"}, wantErr: true},
		{name: "certified", ev: notify.Event{Type: notify.EventUserCertified, UserID: "u1", AttemptID: "a1"}, wantSent: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetSentMessages()
			err := sink.Handle(ctx, tt.ev)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, SentMessages(), tt.wantSent)
		})
	}

	msg := SentMessages()[0]
	assert.Equal(t, "awe@test.cd", msg.To[0].Address)
	assert.Contains(t, msg.TextContent, `You passed "Final" with a score of 87.50%`)
	assert.Contains(t, msg.TextContent, "https://academy.test/offices")
}
