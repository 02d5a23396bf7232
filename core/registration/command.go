package registration

import (
	"strconv"
	"strings"
)

// CommandKind is what an input asks the wizard to do.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdAnswer
	CmdNew
	CmdContinue
	CmdBack
	CmdSave
	CmdExit
	CmdSubmit
	CmdReview
	CmdResend
	CmdRetry
	CmdEdit
	CmdHelp
)

var commandNames = map[CommandKind]string{
	CmdUnknown:  "unknown",
	CmdAnswer:   "answer",
	CmdNew:      "new",
	CmdContinue: "continue",
	CmdBack:     "back",
	CmdSave:     "save",
	CmdExit:     "exit",
	CmdSubmit:   "submit",
	CmdReview:   "review",
	CmdResend:   "resend",
	CmdRetry:    "retry",
	CmdEdit:     "edit",
	CmdHelp:     "help",
}

func (k CommandKind) String() string { return commandNames[k] }

var reservedWords = map[string]CommandKind{
	"new":      CmdNew,
	"continue": CmdContinue,
	"back":     CmdBack,
	"save":     CmdSave,
	"exit":     CmdExit,
	"close":    CmdExit,
	"submit":   CmdSubmit,
	"review":   CmdReview,
	"resend":   CmdResend,
	"retry":    CmdRetry,
	"help":     CmdHelp,
}

// escapePrefix marks the rest of the input as a literal answer, e.g. `\exit`.
const escapePrefix = `\`

type Command struct {
	Kind CommandKind
	Text string // the answer text, for CmdAnswer and CmdUnknown
	N    int    // 1-based answer number, for CmdEdit; 0 when missing
}

// acceptsAnswers reports whether free text is an answer in the stage.
func acceptsAnswers(stage Stage, editing bool) bool {
	switch stage {
	case StageQuestioning, StageEarlyAuth:
		return true
	case StageReview:
		return editing
	}
	return false
}

// Interpret resolves raw input into a Command.
// Reserved words win over answers; a leading backslash escapes them.
func Interpret(stage Stage, editing bool, raw string) Command {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, escapePrefix) {
		literal := strings.TrimPrefix(text, escapePrefix)
		if acceptsAnswers(stage, editing) {
			return Command{Kind: CmdAnswer, Text: literal}
		}
		return Command{Kind: CmdUnknown, Text: literal}
	}

	word := strings.TrimPrefix(strings.ToLower(text), "/")
	if kind, ok := reservedWords[word]; ok {
		return Command{Kind: kind}
	}

	if fields := strings.Fields(word); len(fields) > 0 && fields[0] == "edit" {
		switch len(fields) {
		case 1:
			return Command{Kind: CmdEdit}
		case 2:
			if n, err := strconv.Atoi(fields[1]); err == nil {
				return Command{Kind: CmdEdit, N: n}
			}
		}
	}

	if acceptsAnswers(stage, editing) {
		return Command{Kind: CmdAnswer, Text: text}
	}
	return Command{Kind: CmdUnknown, Text: text}
}
