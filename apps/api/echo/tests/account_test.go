package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/academictoken/registry/apps/api/echo"
	"github.com/academictoken/registry/core"
	"github.com/academictoken/registry/core/account"
	"github.com/academictoken/registry/tests"
)

func Test_accountApi_login(t *testing.T) {
	app, env := setup(t)

	pwd := "l3tM31n!"
	testutil.CreateAccount(t, env.Accounts, "Hero", "hero@test.cd", pwd, []string{account.RoleStudent}, true)
	testutil.CreateAccount(t, env.Accounts, "N Dog", "ndog@test.cd", pwd, []string{account.RoleStudent}, false)

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}
	errAuthFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{name: "Email and password required", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest},
		{name: "Unknown email", body: login("nobody@test.cd", pwd), wantCode: http.StatusBadRequest, wantData: errAuthFailed},
		{name: "Wrong password", body: login("hero@test.cd", "lol"), wantCode: http.StatusBadRequest, wantData: errAuthFailed},
		{
			name: "Inactive account", body: login("ndog@test.cd", pwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Email is case insensitive", body: login(" HERO@test.cd ", pwd)},
		{name: "Logged in", body: login("hero@test.cd", pwd)},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/accounts/login"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				token, err := jwt.ParseWithClaims(resp.Token, new(Claims), func(*jwt.Token) (interface{}, error) {
					return []byte(env.Conf.SecretKey), nil
				})
				require.NoError(t, err)
				claims := token.Claims.(*Claims)
				assert.True(t, claims.IsStudent)
				assert.False(t, claims.IsAuthority)
				assert.Equal(t, "hero@test.cd", claims.Email)
			}
		})
	}

	acc, err := env.Accounts.GetAccountByEmail(context.Background(), "hero@test.cd")
	require.NoError(t, err)
	assert.False(t, acc.LastLogin.IsZero(), "last login is set")
}

func Test_accountApi_register(t *testing.T) {
	app, env := setup(t)

	authority := testutil.Authority(t, env)
	operator := testutil.Operator(t, env, "operator@uni.test")
	testutil.CreateAccount(t, env.Accounts, "Taken", "taken@test.cd", "", nil, true)

	newAcc := func(email string, roles ...string) []byte {
		return marchallObj(t, account.NewAccount{
			Name: "New Account", Email: email, Password: "S3cr3t!Pass", PasswordConfirm: "S3cr3t!Pass", Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "Auth required", body: newAcc("a@test.cd"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Authority required", body: newAcc("a@test.cd"), token: getToken(t, operator, env.Conf),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Invalid data", body: []byte(`{"name": "x"}`), token: getToken(t, authority, env.Conf), wantCode: http.StatusBadRequest},
		{name: "Email taken", body: newAcc("taken@test.cd"), token: getToken(t, authority, env.Conf), wantCode: http.StatusBadRequest},
		{
			name: "Unknown role", body: newAcc("b@test.cd", "admin:"), token: getToken(t, authority, env.Conf),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Created", body: newAcc("c@test.cd", account.RoleInstitution), token: getToken(t, authority, env.Conf),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/accounts/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	acc, err := env.Accounts.GetAccountByEmail(context.Background(), "c@test.cd")
	require.NoError(t, err)
	assert.True(t, acc.IsInstitution())
	assert.True(t, acc.IsActive)
	assert.NoError(t, acc.CheckPassword("S3cr3t!Pass"))
}

func Test_accountApi_queryAndDetail(t *testing.T) {
	app, env := setup(t)

	authority := testutil.Authority(t, env)
	student := testutil.StudentAccount(t, env, "student@test.cd")
	other := testutil.StudentAccount(t, env, "other@test.cd")

	rec := httpGet(t, app, "/v1/accounts?ordering=email", getToken(t, authority, env.Conf))
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []account.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	if assert.Len(t, accounts, 3) {
		assert.Equal(t, "authority@registry.test", accounts[0].Email)
		assert.Equal(t, "other@test.cd", accounts[1].Email)
		assert.Equal(t, "student@test.cd", accounts[2].Email)
	}

	studentToken := getToken(t, student, env.Conf)
	runHttpTests(t, app, []httpTest{
		{name: "List needs the authority", path: "/v1/accounts", token: studentToken, wantCode: http.StatusForbidden},
		{name: "Own account", path: "/v1/accounts/" + student.ID, token: studentToken},
		{name: "Other accounts are hidden", path: "/v1/accounts/" + other.ID, token: studentToken, wantCode: http.StatusNotFound},
		{name: "Authority sees all", path: "/v1/accounts/" + other.ID, token: getToken(t, authority, env.Conf)},
		{
			name: "Students cannot change their roles", method: http.MethodPut, path: "/v1/accounts/" + student.ID,
			token: studentToken, body: []byte(`{"roles": ["authority:"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "Students can rename themselves", method: http.MethodPut, path: "/v1/accounts/" + student.ID,
			token: studentToken, body: []byte(`{"name": "Renamed"}`),
		},
		{
			name: "The authority cannot delete itself", method: http.MethodDelete, path: "/v1/accounts/" + authority.ID,
			token: getToken(t, authority, env.Conf), wantCode: http.StatusForbidden,
		},
		{
			name: "The authority deletes accounts", method: http.MethodDelete, path: "/v1/accounts/" + other.ID,
			token: getToken(t, authority, env.Conf), wantCode: http.StatusNoContent,
		},
		{name: "Roles", path: "/v1/accounts/roles", token: studentToken, wantData: marchallObj(t, account.Roles)},
	})

	acc, err := env.Accounts.GetAccountByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", acc.Name)
	_, err = env.Accounts.GetAccountByID(context.Background(), other.ID)
	assert.True(t, core.IsNotFound(err))
}

func Test_accountApi_refreshToken(t *testing.T) {
	app, env := setup(t)

	naughty := testutil.CreateAccount(t, env.Accounts, "N Dog", "ndog@test.cd", "", []string{account.RoleStudent}, false)
	student := testutil.StudentAccount(t, env, "hero@test.cd")

	claims := GetAccountClaims(student, env.Conf)
	claims.OrigIssuedAt = time.Now().Add(-2 * env.Conf.Server.JWTRefreshExpirationDelta).Unix() // older than threshold
	unrefreshableToken, err := GenerateToken(claims, env.Conf.SecretKey)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive account not allowed", token: getToken(t, naughty, env.Conf), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, student, env.Conf)},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/accounts/token-refresh"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_accountApi_passwordReset(t *testing.T) {
	app, env := setup(t)

	acc := testutil.CreateAccount(t, env.Accounts, "Hero", "hero@test.cd", "old-pwd", []string{account.RoleStudent}, true)

	// unknown emails get the same answer
	for _, email := range []string{"nobody@test.cd", acc.Email} {
		req, rec := newRequest(http.MethodPost, "/v1/accounts/password-reset", marchallObj(t, PasswordResetRequest{Email: email}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	env.Mail.Wait()
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, acc.Email, sent[0].To[0].Address)
	data := sent[0].TemplateData.(map[string]interface{})

	body := marchallObj(t, account.ResetPassword{
		UID:             data["UID"].(string),
		Token:           data["Token"].(string),
		Password:        "N3w-Pass!word",
		PasswordConfirm: "N3w-Pass!word",
	})
	badBody := marchallObj(t, account.ResetPassword{
		UID: data["UID"].(string), Token: "bad-token", Password: "N3w-Pass!word", PasswordConfirm: "N3w-Pass!word",
	})
	runHttpTests(t, app, []httpTest{
		{name: "Invalid token", method: http.MethodPost, path: "/v1/accounts/password-reset-confirm", body: badBody, wantCode: http.StatusBadRequest},
		{name: "Password reset", method: http.MethodPost, path: "/v1/accounts/password-reset-confirm", body: body},
		{
			name: "Login with the new password", method: http.MethodPost, path: "/v1/accounts/login",
			body: marchallObj(t, LoginRequest{Email: acc.Email, Password: "N3w-Pass!word"}),
		},
	})
}
