package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/academy/apps/api/echo"
	"github.com/trezcool/academy/core/user"
	"github.com/trezcool/academy/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	pwd := "pa$$w0rd-2021"
	usr := testutil.CreateUser(t, app.repos.Users, "Learner", "learner", "learner@test.cd", pwd, nil, true)
	testutil.CreateUser(t, app.repos.Users, "Gone", "gone", "gone@test.cd", pwd, nil, false)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "lol", Password: pwd}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body:     marchallObj(t, LoginRequest{Username: "gone", Password: pwd}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("success with email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, LoginRequest{Username: " LEARNER@test.cd ", Password: pwd}))
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)

		// the token is usable
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
		assert.Equal(t, http.StatusOK, app.do(req, rec).Code)

		refreshed, err := app.repos.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.False(t, refreshed.LastLogin.IsZero())
	})
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.repos.Users, "Learner", "learner", "learner@test.cd", "", nil, true)
	token := getToken(t, app, usr)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "not certified", path: "/v1/users/me", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, MeResponse{User: usr})},
	})

	t.Run("certified", func(t *testing.T) {
		_, err := app.repos.Certifications.Certify(context.Background(), usr.ID, "attempt", time.Now().UTC())
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Certification struct {
				IsCertified bool `json:"is_certified"`
			} `json:"certification"`
		}
		unmarshal(t, rec, &resp)
		assert.True(t, resp.Certification.IsCertified)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.repos.Users, "Learner", "learner", "learner@test.cd", "", nil, true)
	token := getToken(t, app, usr)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	})

	t.Run("refresh", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("refresh expired", func(t *testing.T) {
		claims := app.auth.UserClaims(usr, time.Now().Add(-5*time.Hour).Unix())
		old, err := app.auth.GenerateToken(claims)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", old)
		rec = app.do(req, rec)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_userApi_admin(t *testing.T) {
	app := setup(t)

	learner := testutil.CreateUser(t, app.repos.Users, "Learner", "learner", "learner@test.cd", "", nil, true)
	admin := testutil.CreateUser(t, app.repos.Users, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, app, admin)

	nu := user.NewUser{
		Name:            "New Hire",
		Username:        "newhire",
		Email:           "newhire@test.cd",
		Password:        "Xq7#mLp2vR",
		PasswordConfirm: "Xq7#mLp2vR",
	}

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: getToken(t, app, learner),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
		{
			name: "register: username taken", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: marchallObj(t, user.NewUser{
				Name: "X", Username: "learner", Email: "x@test.cd", Password: nu.Password, PasswordConfirm: nu.Password,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name: "register: password too short", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: marchallObj(t, user.NewUser{
				Name: "X", Username: "xxx", Email: "x@test.cd", Password: "abc", PasswordConfirm: "abc",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
	})

	t.Run("register", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, nu))
		rec = app.do(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var created user.User
		unmarshal(t, rec, &created)
		assert.Equal(t, nu.Username, created.Username)
		assert.Equal(t, []string{user.RoleLearner}, created.Roles)
		assert.True(t, created.IsActive)
	})

	t.Run("query", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=LEARN", adminToken)
		rec = app.do(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)

		var users []user.User
		unmarshal(t, rec, &users)
		require.Len(t, users, 1)
		assert.Equal(t, learner.ID, users[0].ID)
	})
}

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	rec = app.do(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Academy API!", rec.Body.String())
}
