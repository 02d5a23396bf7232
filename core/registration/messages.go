package registration

import "strings"

// Message categories
const (
	CatPrompt     = "prompt"
	CatIntro      = "intro"
	CatAuth       = "auth"
	CatConfirm    = "confirm"
	CatQuestions  = "questions"
	CatReview     = "review"
	CatSubmit     = "submit"
	CatValidation = "validation"
	CatHelp       = "help"
	CatInvalid    = "invalid"
	CatErrors     = "errors"
)

// Validation message keys
const (
	KeyRequired                   = "required"
	KeyTooLong                    = "tooLong"
	KeyInvalidEmail               = "invalidEmail"
	KeyInvalidNumber              = "invalidNumber"
	KeyOutOfRange                 = "outOfRange"
	KeyGenericDetailed            = "genericDetailed"
	KeyInvalidOption              = "invalidOption"
	KeyInvalidMultiSelectFormat   = "invalidMultiSelectFormat"
	KeyInvalidOptionNumber        = "invalidOptionNumber"
	KeyRankingFormatError         = "rankingFormatError"
	KeyRankingUniqueOptionError   = "rankingUniqueOptionError"
	KeyRankingUniqueRankError     = "rankingUniqueRankError"
	KeyRankingStrictCountError    = "rankingStrictCountError"
	KeyRankingMinError            = "rankingMinError"
	KeyRankingInvalidOptionNumber = "rankingInvalidOptionNumber"
	KeyRankingInvalidRankNumber   = "rankingInvalidRankNumber"
	KeyReprompt                   = "reprompt"
	KeyPasswordPolicy             = "passwordPolicy"
)

// Params fills the {name} placeholders of a template.
type Params map[string]string

// Messages is the read-only message catalog: {category: {key: template}}.
type Messages struct {
	templates map[string]map[string]string
}

var defaultMessages = &Messages{templates: map[string]map[string]string{
	CatPrompt: {
		string(StageIntro):                "[reg]>",
		string(StageEarlyAuth):            "[auth {current}/{total}]>",
		string(StageAwaitingConfirmation): "[confirm {email}]>",
		string(StageQuestioning):          "[reg {current}/{total}]>",
		string(StageReview):               "[review]>",
		"edit":                            "[edit {n}]>",
		string(StageSubmitting):           "[submitting]>",
		string(StageSubmissionError):      "[reg error]>",
		string(StageSuccess):              "[done]>",
	},
	CatIntro: {
		"welcome":         `Welcome to the Philosothon registration! Type "new" to start a new registration or "continue" to resume a saved one.`,
		"noSavedProgress": `No saved progress was found. Type "new" to start a new registration.`,
		"resumed":         "Welcome back! Your saved answers were loaded.",
		"started":         "Starting a new registration.",
	},
	CatAuth: {
		"firstName":        "What is your first name?",
		"lastName":         "What is your last name?",
		"email":            "What is your email address?",
		"password":         "Choose a password (at least 8 characters, with upper and lower case letters, a digit and a symbol).",
		"confirmPassword":  "Type your password again.",
		"passwordMismatch": "The passwords do not match. Choose your password again.",
		"accountExists":    "An account with {email} already exists. Enter a different email address.",
		"accountFailed":    "We could not create your account: {message}",
		"accountCreated":   "Your account was created. We sent a confirmation link to {email}.",
		"signedIn":         "You are signed in as {email}.",
	},
	CatConfirm: {
		"awaiting":      `Open the link we sent to {email}, then type "continue". Type "resend" to get a new link.`,
		"checkFailed":   `Your email address is not confirmed yet. Open the link we sent to {email}, then type "continue".`,
		"checkError":    "We could not check your confirmation status: {message}",
		"confirmed":     "Thanks, your email address is confirmed.",
		"resendSuccess": "We sent a new confirmation link to {email}.",
		"resendFailed":  "We could not resend the confirmation link: {message}",
	},
	CatQuestions: {
		"question":      "{label}",
		"hint":          "({hint})",
		"options":       "{options}",
		"current":       "Current answer: {answer}",
		"atFirst":       "This is the first question.",
		"progressSaved": "Your progress was saved.",
		"saveFailed":    "We could not save your progress: {message}",
		"loadFailed":    "We could not load your saved progress: {message}",
		"exited":        `Your progress was saved. Type "continue" to resume later.`,
	},
	CatReview: {
		"header":        "Please review your answers:",
		"line":          "{n}. {label}: {answer}",
		"noAnswer":      "(no answer)",
		"instructions":  `Type "edit N" to change an answer, "back" to return to the questions or "submit" to send your registration.`,
		"editPrompt":    `Editing answer {n}: {label}. Enter a new answer, then type "save". Type "exit" to cancel.`,
		"editStaged":    `New answer: {answer}. Type "save" to keep it or "exit" to cancel.`,
		"editSaved":     "Answer {n} updated.",
		"editCancelled": "Edit cancelled.",
		"editNothing":   `Enter a new answer before typing "save".`,
		"invalidEdit":   "There is no answer {n}. Choose a number between 1 and {total}.",
		"incomplete":    `Some required questions are unanswered: {missing}. Type "back" to answer them.`,
	},
	CatSubmit: {
		"submitting": "Submitting your registration...",
		"success":    `Your registration was submitted. Thank you! Type "exit" to close.`,
		"failed":     `Your registration could not be submitted: {message}. Type "retry" to try again or "exit" to leave.`,
		"closed":     "Registration closed. Goodbye!",
		"abandoned":  `Registration abandoned. Your saved answers are kept; type "continue" to resume later.`,
	},
	CatValidation: {
		KeyRequired:                   "This question requires an answer.",
		KeyTooLong:                    "Your answer must be at most {max} characters long.",
		KeyInvalidEmail:               "Please enter a valid email address.",
		KeyInvalidNumber:              "Please enter a valid number.",
		KeyOutOfRange:                 "Please enter a number between {min} and {max}.",
		KeyGenericDetailed:            "Invalid answer: {message}.",
		KeyInvalidOption:              "Please choose one of the options: {options}.",
		KeyInvalidMultiSelectFormat:   "List option numbers separated by spaces or commas, without repeats (e.g. 1 3 4).",
		KeyInvalidOptionNumber:        "Option numbers must be between 1 and {max}.",
		KeyRankingFormatError:         "Use option:rank pairs separated by spaces (e.g. 2:1 5:2 1:3).",
		KeyRankingUniqueOptionError:   "Each option can only be ranked once.",
		KeyRankingUniqueRankError:     "Each rank can only be used once.",
		KeyRankingStrictCountError:    "Please rank exactly {min} options.",
		KeyRankingMinError:            "Please rank at least {min} options.",
		KeyRankingInvalidOptionNumber: "Option numbers must be between 1 and {max}.",
		KeyRankingInvalidRankNumber:   "Ranks must be between 1 and {max}.",
		KeyReprompt:                   "{message} Please try again.",
		KeyPasswordPolicy:             "Your password is not strong enough: {message}.",
	},
	CatHelp: {
		string(StageIntro):                `Commands: "new" starts a new registration, "continue" resumes your saved one.`,
		string(StageEarlyAuth):            `Answer each question to create your account. Commands: "back", "exit".`,
		string(StageAwaitingConfirmation): `Commands: "continue" once you confirmed your email, "resend" for a new link, "exit".`,
		string(StageQuestioning):          `Type your answer. Commands: "back", "save", "review", "exit". Start an answer with \ to send a command word as text.`,
		string(StageReview):               `Commands: "edit N", "back", "review", "save", "submit", "exit".`,
		"edit":                            `Type the new answer, then "save". "exit" cancels the edit.`,
		string(StageSubmitting):           `Commands: "retry".`,
		string(StageSubmissionError):      `Commands: "retry", "exit".`,
		string(StageSuccess):              `Commands: "exit".`,
	},
	CatInvalid: {
		string(StageIntro):                `Unknown command. Type "new" or "continue".`,
		string(StageEarlyAuth):            `Unknown command. Answer the question, or type "back" or "exit".`,
		string(StageAwaitingConfirmation): `Unknown command. Type "continue", "resend" or "exit".`,
		string(StageQuestioning):          `Unknown command. Answer the question, or type "back", "save", "review" or "exit".`,
		string(StageReview):               `Unknown command. Type "edit N", "back", "review", "save", "submit" or "exit".`,
		"edit":                            `Unknown command. Enter the new answer, "save" or "exit".`,
		string(StageSubmitting):           `Unknown command. Type "retry".`,
		string(StageSubmissionError):      `Unknown command. Type "retry" or "exit".`,
		string(StageSuccess):              `Your registration is complete. Type "exit" to close.`,
	},
	CatErrors: {
		"generic": "Something went wrong. Please try again.",
	},
}}

// DefaultMessages returns the process-wide message catalog.
func DefaultMessages() *Messages { return defaultMessages }

// Template returns the raw template; ok is false when the key is unknown.
func (m *Messages) Template(category, key string) (string, bool) {
	tmpl, ok := m.templates[category][key]
	return tmpl, ok
}

// Render fills the template placeholders. Unknown keys render the generic error message.
func (m *Messages) Render(category, key string, params Params) string {
	tmpl, ok := m.Template(category, key)
	if !ok {
		tmpl = m.templates[CatErrors]["generic"]
	}
	if len(params) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, 2*len(params))
	for k, v := range params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
