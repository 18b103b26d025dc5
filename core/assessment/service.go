// Package assessment runs the assessment attempts: start, take, submit and grade.
package assessment

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
)

var (
	// errors
	ErrAttemptNotFound      = &core.NotFoundError{Resource: "attempt"}
	ErrOptionNotFound       = &core.NotFoundError{Resource: "option"}
	ErrNotAttemptOwner      = &core.PermissionError{Reason: "this attempt belongs to another user"}
	ErrAttemptNotInProgress = &core.ConflictError{Reason: "attempt has already been submitted"}
	ErrAttemptNotSubmitted  = &core.ConflictError{Reason: "attempt has not been submitted yet"}

	shuffle = rand.Shuffle // mockable
)

type (
	Repository interface {
		// CreateAttempt saves the attempt along with its responses.
		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		// GetAttempt returns the attempt with its responses ordered by position.
		GetAttempt(ctx context.Context, id string) (Attempt, error)
		// SubmitAttempt saves the graded attempt and its responses in one transaction,
		// provided the stored attempt is still in progress; otherwise it returns ErrAttemptNotInProgress.
		SubmitAttempt(ctx context.Context, att Attempt) error
		// SetAttemptStatus moves the attempt from status `from` to `to`; it is a no-op if the status is not `from`.
		SetAttemptStatus(ctx context.Context, id, from, to string) error
		// QueryAttempts returns the attempts matching `filter`, newest first, without responses.
		QueryAttempts(ctx context.Context, filter AttemptFilter) ([]Attempt, error)
	}

	// Catalog is the part of the content catalog the engine reads.
	Catalog interface {
		GetAssessment(ctx context.Context, id int, withQuestions bool) (catalog.Assessment, error)
		QueryAssessments(ctx context.Context, activeOnly bool) ([]catalog.Assessment, error)
	}

	// Certifier is called with every passing attempt.
	Certifier interface {
		Certify(ctx context.Context, userID, attemptID string) (bool, error)
	}

	// Progress tells whether the user went through the whole training.
	Progress interface {
		AllMandatoryComplete(ctx context.Context, userID string) (bool, error)
	}

	Service struct {
		repo      Repository
		catalog   Catalog
		certifier Certifier
		progress  Progress
		notifier  notify.Notifier
	}
)

func NewService(repo Repository, cat Catalog, certifier Certifier, progress Progress, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{repo: repo, catalog: cat, certifier: certifier, progress: progress, notifier: notifier}
}

// Start opens a new attempt on an active assessment.
// Every question gets an unanswered response, in random order when the assessment randomizes questions.
func (svc *Service) Start(ctx context.Context, userID string, assessmentID int) (Attempt, error) {
	asmt, err := svc.catalog.GetAssessment(ctx, assessmentID, true)
	if err != nil {
		return Attempt{}, err
	}
	if !asmt.IsActive {
		return Attempt{}, catalog.ErrAssessmentNotFound
	}

	questions := append([]catalog.Question(nil), asmt.Questions...)
	if asmt.RandomizeQuestions {
		shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}

	now := core.NowFunc().UTC()
	att := Attempt{
		ID:              uuid.New().String(),
		UserID:          userID,
		AssessmentID:    asmt.ID,
		Status:          StatusInProgress,
		TotalQuestions:  asmt.TotalQuestions,
		ScorePercentage: Score(0, asmt.TotalQuestions),
		StartedAt:       now,
		CreatedAt:       now,
		UpdatedAt:       now,
		Responses:       make([]Response, 0, len(questions)),
	}
	for i, q := range questions {
		att.Responses = append(att.Responses, Response{AttemptID: att.ID, QuestionID: q.ID, Position: i})
	}

	att, err = svc.repo.CreateAttempt(ctx, att)
	if err != nil {
		return Attempt{}, errors.Wrap(err, "creating attempt")
	}
	return att, nil
}

func (svc *Service) ownAttempt(ctx context.Context, userID, attemptID string) (Attempt, catalog.Assessment, error) {
	if _, err := uuid.Parse(attemptID); err != nil {
		return Attempt{}, catalog.Assessment{}, ErrAttemptNotFound
	}
	att, err := svc.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, catalog.Assessment{}, err
	}
	if att.UserID != userID {
		return Attempt{}, catalog.Assessment{}, ErrNotAttemptOwner
	}
	asmt, err := svc.catalog.GetAssessment(ctx, att.AssessmentID, true)
	if err != nil {
		return Attempt{}, catalog.Assessment{}, errors.Wrap(err, "getting assessment")
	}
	return att, asmt, nil
}

// Render returns the attempt questions in the attempt's order.
// Options are reshuffled on every call when the assessment randomizes options.
func (svc *Service) Render(ctx context.Context, userID, attemptID string) (AttemptView, error) {
	att, asmt, err := svc.ownAttempt(ctx, userID, attemptID)
	if err != nil {
		return AttemptView{}, err
	}

	questions := questionsByID(asmt)
	view := AttemptView{
		Attempt:          att,
		AssessmentTitle:  asmt.Title,
		TimeLimitMinutes: asmt.TimeLimitMinutes,
		Questions:        make([]QuestionView, 0, len(att.Responses)),
	}
	for _, resp := range att.Responses {
		q, ok := questions[resp.QuestionID]
		if !ok { // question deleted since the attempt started
			continue
		}
		qv := QuestionView{
			ID:               q.ID,
			Position:         resp.Position,
			Text:             q.Text,
			Difficulty:       q.Difficulty,
			Options:          make([]OptionView, 0, len(q.Options)),
			SelectedOptionID: resp.SelectedOptionID,
		}
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: opt.ID, Text: opt.Text})
		}
		if asmt.RandomizeOptions {
			shuffle(len(qv.Options), func(i, j int) { qv.Options[i], qv.Options[j] = qv.Options[j], qv.Options[i] })
		}
		view.Questions = append(view.Questions, qv)
	}
	return view, nil
}

// Submit grades the attempt with `answers` (question ID: option ID).
// All answers are checked before anything is saved; unanswered questions count as incorrect.
// A passing attempt certifies its user. An attempt can only be submitted once:
// submitting an attempt left "submitted" by a failed grading only finishes that grading, `answers` are ignored.
func (svc *Service) Submit(ctx context.Context, userID, attemptID string, answers map[int]int) (Attempt, error) {
	att, asmt, err := svc.ownAttempt(ctx, userID, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	switch att.Status {
	case StatusInProgress:
	case StatusSubmitted:
		return svc.grade(ctx, att, asmt)
	default:
		return Attempt{}, ErrAttemptNotInProgress
	}

	options := make(map[int]catalog.Option)
	for _, q := range asmt.Questions {
		for _, opt := range q.Options {
			options[opt.ID] = opt
		}
	}

	now := core.NowFunc().UTC()
	var correct int
	for i := range att.Responses {
		resp := &att.Responses[i]
		optID, ok := answers[resp.QuestionID]
		if !ok || optID == 0 {
			continue
		}
		opt, ok := options[optID]
		if !ok {
			return Attempt{}, ErrOptionNotFound
		}
		if opt.QuestionID != resp.QuestionID {
			return Attempt{}, core.NewValidationError(
				errors.Errorf("option %d does not belong to question %d", optID, resp.QuestionID),
				core.FieldError{Field: "answers", Error: "option does not belong to the question"},
			)
		}
		resp.SelectedOptionID = &optID
		resp.IsCorrect = opt.IsCorrect
		resp.AnsweredAt = &now
		if opt.IsCorrect {
			correct++
		}
	}

	att.CorrectAnswers = correct
	att.ScorePercentage = Score(correct, att.TotalQuestions)
	att.Passed = Passed(correct, att.TotalQuestions, asmt.PassingScore)
	att.Status = StatusSubmitted
	att.SubmittedAt = &now
	att.TimeTakenMinutes = int(now.Sub(att.StartedAt).Minutes())
	att.UpdatedAt = now

	if err := svc.repo.SubmitAttempt(ctx, att); err != nil {
		if errors.Cause(err) == ErrAttemptNotInProgress {
			return Attempt{}, ErrAttemptNotInProgress
		}
		return Attempt{}, errors.Wrap(err, "submitting attempt")
	}
	return svc.grade(ctx, att, asmt)
}

// grade certifies the user of a passing submitted attempt, then marks the attempt graded.
// Both steps are idempotent so that a failed grading can be run again.
func (svc *Service) grade(ctx context.Context, att Attempt, asmt catalog.Assessment) (Attempt, error) {
	if att.Passed {
		if _, err := svc.certifier.Certify(ctx, att.UserID, att.ID); err != nil {
			return att, errors.Wrap(err, "certifying user")
		}
	}
	if err := svc.repo.SetAttemptStatus(ctx, att.ID, StatusSubmitted, StatusGraded); err != nil {
		return att, errors.Wrap(err, "grading attempt")
	}
	att.Status = StatusGraded

	svc.notifier.Notify(ctx, notify.Event{
		Type:            notify.EventAttemptGraded,
		UserID:          att.UserID,
		AttemptID:       att.ID,
		AssessmentID:    asmt.ID,
		AssessmentTitle: asmt.Title,
		Score:           att.ScorePercentage.StringFixed(2),
		Passed:          att.Passed,
	})
	return att, nil
}

// Result returns the correction of a submitted attempt.
func (svc *Service) Result(ctx context.Context, userID, attemptID string) (AttemptResult, error) {
	att, asmt, err := svc.ownAttempt(ctx, userID, attemptID)
	if err != nil {
		return AttemptResult{}, err
	}
	if att.Status == StatusInProgress {
		return AttemptResult{}, ErrAttemptNotSubmitted
	}

	questions := questionsByID(asmt)
	res := AttemptResult{
		Attempt:         att,
		AssessmentTitle: asmt.Title,
		PassingScore:    asmt.PassingScore,
		Items:           make([]ResultItem, 0, len(att.Responses)),
	}
	for _, resp := range att.Responses {
		item := ResultItem{
			QuestionID:       resp.QuestionID,
			Position:         resp.Position,
			SelectedOptionID: resp.SelectedOptionID,
			CorrectOptionIDs: make([]int, 0, 1),
			IsCorrect:        resp.IsCorrect,
		}
		if q, ok := questions[resp.QuestionID]; ok {
			item.Text = q.Text
			item.Explanation = q.Explanation
			for _, opt := range q.Options {
				if resp.SelectedOptionID != nil && opt.ID == *resp.SelectedOptionID {
					item.SelectedOptionText = opt.Text
				}
				if opt.IsCorrect {
					item.CorrectOptionIDs = append(item.CorrectOptionIDs, opt.ID)
					if item.CorrectOptionText == "" {
						item.CorrectOptionText = opt.Text
					}
				}
			}
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

// ListAttempts returns the user's attempts, newest first; assessmentID 0 means all assessments.
func (svc *Service) ListAttempts(ctx context.Context, userID string, assessmentID int) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, AttemptFilter{UserID: userID, AssessmentID: assessmentID})
}

// LastAttempt returns the user's latest attempt on the assessment; found is false if there is none.
func (svc *Service) LastAttempt(ctx context.Context, userID string, assessmentID int) (att Attempt, found bool, err error) {
	attempts, err := svc.ListAttempts(ctx, userID, assessmentID)
	if err != nil || len(attempts) == 0 {
		return Attempt{}, false, err
	}
	return attempts[0], true, nil
}

// ListAvailable returns the active assessments with the user's last attempt on each.
// Completing the training is advisory: AllModulesCompleted is reported, not enforced.
func (svc *Service) ListAvailable(ctx context.Context, userID string) ([]AvailableAssessment, error) {
	assessments, err := svc.catalog.QueryAssessments(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}
	allDone, err := svc.progress.AllMandatoryComplete(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "checking training progress")
	}
	attempts, err := svc.ListAttempts(ctx, userID, 0)
	if err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	last := make(map[int]Attempt, len(attempts))
	for _, att := range attempts { // newest first
		if _, ok := last[att.AssessmentID]; !ok {
			last[att.AssessmentID] = att
		}
	}

	list := make([]AvailableAssessment, 0, len(assessments))
	for _, a := range assessments {
		aa := AvailableAssessment{
			ID:                  a.ID,
			Title:               a.Title,
			Description:         a.Description,
			TotalQuestions:      a.TotalQuestions,
			PassingScore:        a.PassingScore,
			TimeLimitMinutes:    a.TimeLimitMinutes,
			AllModulesCompleted: allDone,
		}
		if att, ok := last[a.ID]; ok {
			att := att
			aa.LastAttempt = &att
		}
		list = append(list, aa)
	}
	return list, nil
}

func questionsByID(asmt catalog.Assessment) map[int]catalog.Question {
	questions := make(map[int]catalog.Question, len(asmt.Questions))
	for _, q := range asmt.Questions {
		questions[q.ID] = q
	}
	return questions
}
