package echoapi

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
)

func Test_adminApi(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin@test.test", true, user.RoleAdmin)
	ada := env.createUser(t, "ada@test.test", true)
	adminToken := env.getToken(t, admin)

	// ada registers
	sess, _, err := env.regSvc.Start(ctx, "", &registration.Identity{UserID: ada.ID, Email: ada.Email, Confirmed: true})
	require.NoError(t, err)
	for _, in := range []string{"new", "Philosophy", "no", "submit"} {
		sess, _, err = env.regSvc.Input(ctx, sess.ID, 0, in)
		require.NoError(t, err)
	}
	require.Equal(t, registration.StageSuccess, sess.Stage)
	reg, err := env.regSvc.GetRegistration(ctx, sess.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, ada.Email, reg.Email)
	assert.Equal(t, ada.ID, reg.UserID)

	forbidden := marshalObj(t, httpErr{Error: "permission denied"})
	runHTTPTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/admin/registrations", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/admin/registrations", token: env.getToken(t, ada), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin required (users)", path: "/v1/admin/users", token: env.getToken(t, ada), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "registrations", path: "/v1/admin/registrations", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []registration.Registration{reg})},
		{name: "registrations (search)", path: "/v1/admin/registrations?search=ADA", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []registration.Registration{reg})},
		{name: "registrations (empty)", path: "/v1/admin/registrations?search=lol", token: adminToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "registration", path: "/v1/admin/registrations/" + reg.ID, token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, reg)},
		{
			name: "registration (unknown)", path: "/v1/admin/registrations/nope", token: adminToken, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: registration.ErrNotFound.Error()}),
		},
		{name: "roles", path: "/v1/admin/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
	})

	path := func(search, ordering string, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/admin/users?" + v.Encode()
	}
	runHTTPTests(t, env, []httpTest{
		{name: "users (role)", path: path("", "", user.RoleAdmin), token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{admin})},
		{name: "users (search)", path: path("ada@", ""), token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{ada})},
		{name: "users (ordering)", path: path("", "created_at"), token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{admin, ada})},
		{name: "users (ordering desc)", path: path("", "-created_at"), token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, []user.User{ada, admin})},
	})
}
