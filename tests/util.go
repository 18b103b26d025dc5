package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/user"
)

// NewValidator returns a validator with every app validation and its english translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{user.RoleLearner}
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo catalog.Repository, title string, order int, mandatory bool) catalog.Course {
	now := time.Now().UTC()
	course, err := repo.CreateCourse(context.Background(), catalog.Course{
		Title:       title,
		Difficulty:  catalog.DifficultyBeginner,
		IsActive:    true,
		IsMandatory: mandatory,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return course
}

func CreateModule(t *testing.T, repo catalog.Repository, courseID int, title string, order int) catalog.Module {
	now := time.Now().UTC()
	module, err := repo.CreateModule(context.Background(), catalog.Module{
		CourseID:        courseID,
		Title:           title,
		ContentType:     catalog.ContentText,
		Order:           order,
		DurationMinutes: 10,
		IsRequired:      true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return module
}

// CreateAssessment saves an active assessment with `nQuestions` questions of 4 options each.
// The option of order 0 is the correct one.
func CreateAssessment(t *testing.T, repo catalog.Repository, nQuestions, passingScore int) catalog.Assessment {
	now := time.Now().UTC()
	asmt := catalog.Assessment{
		Title:              "Final assessment",
		PassingScore:       passingScore,
		TotalQuestions:     nQuestions,
		RandomizeQuestions: true,
		RandomizeOptions:   true,
		IsActive:           true,
		IsMandatory:        true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i := 0; i < nQuestions; i++ {
		q := catalog.Question{
			Text:       fmt.Sprintf("Question %d", i+1),
			Difficulty: catalog.QuestionMedium,
			Order:      i,
		}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, catalog.Option{
				Text:      fmt.Sprintf("Option %d.%d", i+1, j+1),
				IsCorrect: j == 0,
				Order:     j,
			})
		}
		asmt.Questions = append(asmt.Questions, q)
	}

	asmt, err := repo.CreateAssessment(context.Background(), asmt)
	if err != nil {
		t.Fatalf("createAssessment() failed: %v", err)
	}
	return asmt
}

// CorrectAnswers maps every question of `asmt` to its first correct option.
func CorrectAnswers(asmt catalog.Assessment) map[int]int {
	answers := make(map[int]int, len(asmt.Questions))
	for _, q := range asmt.Questions {
		if opts := q.CorrectOptions(); len(opts) > 0 {
			answers[q.ID] = opts[0].ID
		}
	}
	return answers
}

// WrongAnswers maps every question of `asmt` to an incorrect option.
func WrongAnswers(asmt catalog.Assessment) map[int]int {
	answers := make(map[int]int, len(asmt.Questions))
	for _, q := range asmt.Questions {
		for _, opt := range q.Options {
			if !opt.IsCorrect {
				answers[q.ID] = opt.ID
				break
			}
		}
	}
	return answers
}
