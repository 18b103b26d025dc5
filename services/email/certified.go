package emailsvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/core/user"
)

const certifiedTemplate = "certified"

type (
	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Attempts interface {
		GetAttempt(ctx context.Context, id string) (assessment.Attempt, error)
	}

	Assessments interface {
		GetAssessment(ctx context.Context, id int, withQuestions bool) (catalog.Assessment, error)
	}
)

// CertifiedSink congratulates newly certified users by email.
type CertifiedSink struct {
	mailer      core.EmailService
	users       Users
	attempts    Attempts
	assessments Assessments
}

var _ notify.Sink = (*CertifiedSink)(nil) // interface compliance check

func NewCertifiedSink(mailer core.EmailService, users Users, attempts Attempts, assessments Assessments) *CertifiedSink {
	return &CertifiedSink{mailer: mailer, users: users, attempts: attempts, assessments: assessments}
}

func (s *CertifiedSink) Name() string { return "email" }

func (s *CertifiedSink) Handle(ctx context.Context, ev notify.Event) error {
	if ev.Type != notify.EventUserCertified {
		return nil
	}
	usr, err := s.users.GetByID(ctx, ev.UserID)
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	if usr.Email == "" {
		return nil
	}
	att, err := s.attempts.GetAttempt(ctx, ev.AttemptID)
	if err != nil {
		return errors.Wrap(err, "getting attempt")
	}
	asmt, err := s.assessments.GetAssessment(ctx, att.AssessmentID, false)
	if err != nil {
		return errors.Wrap(err, "getting assessment")
	}

	s.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "You are certified",
		TemplateName: certifiedTemplate,
		TemplateData: map[string]interface{}{
			"Name":            usr.Name,
			"AssessmentTitle": asmt.Title,
			"Score":           att.ScorePercentage.StringFixed(2),
		},
	})
	return nil
}
