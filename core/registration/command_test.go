package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name    string
		stage   Stage
		editing bool
		raw     string
		want    Command
	}{
		{name: "reserved word", stage: StageQuestioning, raw: "  SAVE ", want: Command{Kind: CmdSave}},
		{name: "slash prefix", stage: StageIntro, raw: "/new", want: Command{Kind: CmdNew}},
		{name: "close is exit", stage: StageSuccess, raw: "close", want: Command{Kind: CmdExit}},
		{name: "reserved word wins over answer", stage: StageQuestioning, raw: "back", want: Command{Kind: CmdBack}},
		{name: "escaped reserved word", stage: StageQuestioning, raw: `\back`, want: Command{Kind: CmdAnswer, Text: "back"}},
		{name: "escaped outside answers", stage: StageIntro, raw: `\new`, want: Command{Kind: CmdUnknown, Text: "new"}},
		{name: "answer", stage: StageQuestioning, raw: " Philosophy of mind ", want: Command{Kind: CmdAnswer, Text: "Philosophy of mind"}},
		{name: "auth answer", stage: StageEarlyAuth, raw: "Ada", want: Command{Kind: CmdAnswer, Text: "Ada"}},
		{name: "edit n", stage: StageReview, raw: "edit 3", want: Command{Kind: CmdEdit, N: 3}},
		{name: "edit without n", stage: StageReview, raw: "Edit", want: Command{Kind: CmdEdit}},
		{name: "edit with text is not a command", stage: StageQuestioning, raw: "edit the draft", want: Command{Kind: CmdAnswer, Text: "edit the draft"}},
		{name: "edit with text outside answers", stage: StageReview, raw: "edit two", want: Command{Kind: CmdUnknown, Text: "edit two"}},
		{name: "free text in review", stage: StageReview, raw: "hello", want: Command{Kind: CmdUnknown, Text: "hello"}},
		{name: "free text while editing", stage: StageReview, editing: true, raw: "42", want: Command{Kind: CmdAnswer, Text: "42"}},
		{name: "save while editing", stage: StageReview, editing: true, raw: "save", want: Command{Kind: CmdSave}},
		{name: "help", stage: StageSubmissionError, raw: "help", want: Command{Kind: CmdHelp}},
		{name: "empty answer", stage: StageQuestioning, raw: "   ", want: Command{Kind: CmdAnswer}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.stage, tt.editing, tt.raw))
		})
	}
}

func TestCommandKind_String(t *testing.T) {
	assert.Equal(t, "edit", CmdEdit.String())
	assert.Equal(t, "unknown", CmdUnknown.String())
}
