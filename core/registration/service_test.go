package registration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philosothon/philosothon/core"
	"github.com/philosothon/philosothon/core/registration"
	"github.com/philosothon/philosothon/core/user"
	emailsvc "github.com/philosothon/philosothon/services/email"
	inmemdb "github.com/philosothon/philosothon/storage/database/inmem"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	svc      *registration.Service
	users    *user.Service
	sessions registration.SessionStore
	mail     *emailsvc.ConsoleServiceMock
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conf := core.NewTestConfig()
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, nopLogger{})

	db := inmemdb.Open()
	users := user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf, validate)
	regs := inmemdb.NewRegistrationRepository(db)
	sessions := inmemdb.NewSessionStore(db)

	catalog, err := registration.NewCatalog([]registration.Question{
		{ID: "program", Label: "Program", Kind: registration.KindText, Required: true},
		{ID: "newsletter", Label: "Newsletter", Kind: registration.KindBoolean},
	})
	require.NoError(t, err)
	wizard, err := registration.NewWizard(catalog, registration.NewAdapter(inmemdb.NewProgressStore(db), users, regs, mailSvc))
	require.NoError(t, err)

	return testEnv{
		svc:      registration.NewService(wizard, sessions, regs, nopLogger{}),
		users:    users,
		sessions: sessions,
		mail:     mailSvc,
	}
}

func (env testEnv) converse(t *testing.T, id string, inputs ...string) registration.Reply {
	t.Helper()
	var reply registration.Reply
	for _, in := range inputs {
		var err error
		reply, err = env.svc.Converse(context.Background(), id, in)
		require.NoError(t, err, "input %q", in)
	}
	return reply
}

func TestService_Start(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ident := &registration.Identity{UserID: "u1", Email: "ada@test.test", Confirmed: true}

	sess, reply, err := env.svc.Start(ctx, "", ident)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, int64(1), sess.Version)
	assert.Equal(t, registration.StageIntro, sess.Stage)
	assert.Equal(t, "[reg]>", reply.Prompt)

	again, _, err := env.svc.Start(ctx, "", ident)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID, "an identity keeps its session")

	anon, _, err := env.svc.Start(ctx, "web:1", nil)
	require.NoError(t, err)
	assert.Equal(t, "web:1", anon.ID)

	_, _, err = env.svc.Start(ctx, "web:1", nil)
	assert.Error(t, err)

	got, reply, err := env.svc.Get(ctx, "web:1")
	require.NoError(t, err)
	assert.Equal(t, anon.ID, got.ID)
	assert.Equal(t, registration.StageIntro, reply.Stage)

	_, _, err = env.svc.Get(ctx, "nope")
	assert.True(t, errors.Is(err, registration.ErrSessionNotFound))
}

func TestService_StartFindsPendingSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// sign up in a chat, then confirm through the emailed link
	reply := env.converse(t, "tg:1", "new", "Ada", "Lovelace", "ada@test.test", "Gr3at-Thinker", "Gr3at-Thinker")
	require.Equal(t, registration.StageAwaitingConfirmation, reply.Stage)
	pending, _, err := env.svc.Get(ctx, "tg:1")
	require.NoError(t, err)
	assert.Equal(t, "ada@test.test", pending.IdentityKey())

	uid, token := "", ""
	for _, msg := range env.mail.SentMessages() {
		if msg.TemplateName == "confirm_email" {
			data := msg.TemplateData.(map[string]interface{})
			uid, token = data["UID"].(string), data["Token"].(string)
		}
	}
	usr, err := env.users.ConfirmEmail(ctx, uid, token)
	require.NoError(t, err)

	// the same person logs in elsewhere
	sess, reply, err := env.svc.Start(ctx, "", &registration.Identity{UserID: usr.ID, Email: usr.Email, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, "tg:1", sess.ID, "the pending session is resumed")
	assert.Equal(t, registration.StageAwaitingConfirmation, reply.Stage)

	// once confirmed it is found by user ID
	env.converse(t, "tg:1", "continue")
	sess, _, err = env.svc.Start(ctx, "", &registration.Identity{UserID: usr.ID, Email: usr.Email, Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, "tg:1", sess.ID)
	assert.Equal(t, registration.StageQuestioning, sess.Stage)
}

func TestService_InputVersionConflict(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	sess, _, err := env.svc.Start(ctx, "", &registration.Identity{UserID: "u1", Email: "ada@test.test", Confirmed: true})
	require.NoError(t, err)

	next, reply, err := env.svc.Input(ctx, sess.ID, sess.Version, "new")
	require.NoError(t, err)
	assert.Equal(t, registration.StageQuestioning, reply.Stage)
	assert.Equal(t, sess.Version+1, next.Version)

	// a stale client
	_, _, err = env.svc.Input(ctx, sess.ID, sess.Version, "Philosophy")
	assert.Equal(t, registration.ErrVersionConflict, err)

	stored, _, err := env.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers, "the stale input was not applied")

	// version 0 skips the check
	next, _, err = env.svc.Input(ctx, sess.ID, 0, "Philosophy")
	require.NoError(t, err)
	assert.Equal(t, "Philosophy", next.Answers["program"].Text)

	_, _, err = env.svc.Input(ctx, "nope", 0, "new")
	assert.True(t, errors.Is(err, registration.ErrSessionNotFound))
}

func TestService_Converse(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	const chat = "tg:42"

	reply := env.converse(t, chat, "")
	assert.Equal(t, registration.StageIntro, reply.Stage)

	reply = env.converse(t, chat, "new", "Ada", "Lovelace", "ada@test.test", "Gr3at-Thinker", "Gr3at-Thinker")
	require.Equal(t, registration.StageAwaitingConfirmation, reply.Stage)

	usr, err := env.users.GetByEmail(ctx, "ada@test.test")
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("Gr3at-Thinker"))
	assert.False(t, usr.IsConfirmed())

	// confirm through the emailed link
	var uid, token string
	for _, msg := range env.mail.SentMessages() {
		if msg.TemplateName == "confirm_email" {
			data := msg.TemplateData.(map[string]interface{})
			uid, token = data["UID"].(string), data["Token"].(string)
		}
	}
	require.NotEmpty(t, token)
	_, err = env.users.ConfirmEmail(ctx, uid, token)
	require.NoError(t, err)

	reply = env.converse(t, chat, "continue")
	require.Equal(t, registration.StageQuestioning, reply.Stage)

	reply = env.converse(t, chat, "Philosophy", "no")
	require.Equal(t, registration.StageReview, reply.Stage)
	assert.Contains(t, reply.Messages, "1. Program: Philosophy")
	assert.Contains(t, reply.Messages, "2. Newsletter: No")

	reply = env.converse(t, chat, "submit")
	require.Equal(t, registration.StageSuccess, reply.Stage)

	regs, err := env.svc.ListRegistrations(ctx, registration.QueryFilter{Search: " ADA@test.test"})
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, usr.ID, regs[0].UserID)
	assert.Equal(t, "Philosophy", regs[0].Answers["program"].Text)

	reg, err := env.svc.GetRegistration(ctx, regs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, regs[0].ID, reg.ID)

	sent := env.mail.SentMessages()
	assert.Equal(t, "registration_received", sent[len(sent)-1].TemplateName)

	reply = env.converse(t, chat, "exit")
	assert.True(t, reply.Ended)
	_, err = env.sessions.GetSession(ctx, chat)
	assert.True(t, errors.Is(err, registration.ErrSessionNotFound), "ended sessions are deleted")

	// a second registration for the same account is refused; empty input skips the optional question
	sess, _, err := env.svc.Start(ctx, "", &registration.Identity{UserID: usr.ID, Email: usr.Email, Confirmed: true})
	require.NoError(t, err)
	for _, in := range []string{"new", "Logic", "", "submit"} {
		sess, reply, err = env.svc.Input(ctx, sess.ID, sess.Version, in)
		require.NoError(t, err)
	}
	assert.Equal(t, registration.StageSubmissionError, reply.Stage)
}
