package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academy/core"
)

// Role values are "<group>:<scope>"; an empty scope grants the whole group.
const (
	RoleAdmin        = "admin:"
	RoleAdminContent = "admin:content" // courses, modules and assessments only
	RoleLearner      = "learner:"
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	Roles = []Role{
		{Name: "Learner", Value: RoleLearner},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Content Admin", Value: RoleAdminContent},
	}

	AllRoles     = roleValues(Roles)
	LearnerRoles = []string{RoleLearner}
)

func roleValues(roles []Role) []string {
	values := make([]string, len(roles))
	for i, r := range roles {
		values[i] = r.Value
	}
	return values
}

// User is a learner or an administrator of the academy.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLogin    time.Time `json:"last_login"`
}

func (u *User) SetPassword(pwd string) (err error) {
	u.PasswordHash, err = bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	return err
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// inGroup tells whether one of the user roles belongs to the group of `role`.
func (u *User) inGroup(role string) bool {
	group := role[:strings.IndexByte(role, ':')+1]
	for _, r := range u.Roles {
		if strings.HasPrefix(r, group) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool   { return u.inGroup(RoleAdmin) }
func (u *User) IsLearner() bool { return u.inGroup(RoleLearner) }

// NewUser is the registration payload.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"required,min=3,alphanum"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,pwdminlen,pwdtoosim"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

// Validate cleans the payload, then checks it and the uniqueness of its username and email.
func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

type (
	GetFilter struct {
		ID              string
		UsernameOrEmail []string
	}

	QueryFilter struct {
		Search   string   `query:"search"`
		Roles    []string `query:"role"`
		IsActive *bool    `query:"is_active"`
	}
)

func (qf *QueryFilter) Clean() { qf.Search = core.CleanString(qf.Search) }
