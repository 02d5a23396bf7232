package core

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/philosothon/philosothon/fs"
)

type recordingLogger struct {
	errs []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errs = append(l.errs, msg)
}
func (l *recordingLogger) Fatal(string, ...interface{}) {}

func TestEmbeddedTemplates(t *testing.T) {
	entries, err := fs.ReadDir(appfs.FS, emailTemplatesDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "_base.txt")
	assert.Contains(t, names, "_base.gohtml")

	logger := &recordingLogger{}
	ParseEmailTemplates(logger)
	assert.Empty(t, logger.errs)
	for _, name := range []string{"confirm_email", "password_reset", "registration_received"} {
		msg := EmailMessage{TemplateName: name}
		_, hasText := msg.getTemplate(".txt")
		_, hasHTML := msg.getTemplate(".gohtml")
		assert.True(t, hasText && hasHTML, "%s is parsed", name)
	}
}

func TestEmailMessage_Render(t *testing.T) {
	conf := NewTestConfig()

	msg := EmailMessage{
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{"Name": "Ada", "UID": "dTE", "Token": "TOKEN"},
	}
	require.NoError(t, msg.Render(conf))
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Ada")

	missing := EmailMessage{TemplateName: "lol"}
	err := missing.Render(conf)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
	assert.False(t, missing.HasContent())

	plain := EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render(conf))
	assert.Equal(t, "hello", plain.TextContent)
}
