package registration

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/kat-co/vala"

	"github.com/philosothon/philosothon/core/user"
)

var (
	nameQuestion  = Question{ID: "name", Label: "Name", Kind: KindText, Required: true, MaxLength: 100}
	emailQuestion = Question{ID: "email", Label: "Email", Kind: KindEmail, Required: true}
)

// Reply is what the wizard tells the user after one input.
type Reply struct {
	Stage    Stage    `json:"stage"`
	Messages []string `json:"messages"`
	Prompt   string   `json:"prompt"`
	// Ended is set when the session is finished and should be deleted.
	Ended bool `json:"ended,omitempty"`
	// Err is an internal error the user only saw as a generic message (or not at all).
	Err error `json:"-"`
}

// Wizard applies user input to registration sessions.
// It holds no per-session state; sessions are passed in and returned by value.
type Wizard struct {
	catalog  *Catalog
	messages *Messages
	adapter  Adapter
}

func NewWizard(catalog *Catalog, adapter Adapter) (*Wizard, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(catalog, "catalog"),
		vala.IsNotNil(adapter, "adapter"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Wizard{catalog: catalog, messages: DefaultMessages(), adapter: adapter}, nil
}

func (w *Wizard) Catalog() *Catalog { return w.catalog }

// Handle interprets input in the context of sess and returns the new session state.
// On an internal error the original session is returned unchanged with a generic message.
func (w *Wizard) Handle(ctx context.Context, sess Session, input string) (Session, Reply) {
	next := sess.Clone()
	t := &turn{w: w, ctx: ctx, s: &next}
	cmd := Interpret(sess.Stage, sess.Editing != nil, input)
	if err := t.dispatch(cmd); err != nil {
		return sess, w.failure(sess, err)
	}
	return next, t.reply()
}

// Status describes where the session stands without changing it.
func (w *Wizard) Status(sess Session) Reply {
	s := sess.Clone()
	t := &turn{w: w, ctx: context.Background(), s: &s}
	if err := t.describe(); err != nil {
		return w.failure(sess, err)
	}
	return t.reply()
}

func (w *Wizard) failure(sess Session, err error) Reply {
	return Reply{
		Stage:    sess.Stage,
		Messages: []string{w.messages.Render(CatErrors, "generic", nil)},
		Prompt:   w.Prompt(sess),
		Err:      err,
	}
}

// Prompt returns the prompt label of the session's current step.
func (w *Wizard) Prompt(s Session) string {
	switch s.Stage {
	case StageEarlyAuth:
		return w.messages.Render(CatPrompt, string(s.Stage), Params{
			"current": strconv.Itoa(s.Auth.Field + 1),
			"total":   strconv.Itoa(authFieldCount),
		})
	case StageAwaitingConfirmation:
		return w.messages.Render(CatPrompt, string(s.Stage), Params{"email": s.AccountEmail})
	case StageQuestioning:
		visible := w.catalog.Visible(s.Answers)
		current := len(visible)
		for n, i := range visible {
			if i >= s.QuestionIndex {
				current = n + 1
				break
			}
		}
		return w.messages.Render(CatPrompt, string(s.Stage), Params{
			"current": strconv.Itoa(current),
			"total":   strconv.Itoa(len(visible)),
		})
	case StageReview:
		if s.Editing != nil {
			return w.messages.Render(CatPrompt, "edit", Params{"n": strconv.Itoa(w.position(s, s.Editing.Index))})
		}
	}
	return w.messages.Render(CatPrompt, string(s.Stage), nil)
}

// position is the 1-based number of question i among the visible questions; 0 when hidden.
func (w *Wizard) position(s Session, i int) int {
	for n, j := range w.catalog.Visible(s.Answers) {
		if j == i {
			return n + 1
		}
	}
	return 0
}

// ReviewLines renders one "N. label: answer" line per visible question.
func (w *Wizard) ReviewLines(s Session) []string {
	visible := w.catalog.Visible(s.Answers)
	lines := make([]string, 0, len(visible))
	for n, i := range visible {
		q := w.catalog.questions[i]
		answer := w.messages.Render(CatReview, "noAnswer", nil)
		if ans, ok := s.Answers[q.ID]; ok && !ans.IsEmpty() {
			answer = ans.Format(q)
		}
		lines = append(lines, w.messages.Render(CatReview, "line", Params{
			"n":      strconv.Itoa(n + 1),
			"label":  q.Label,
			"answer": answer,
		}))
	}
	return lines
}

// turn is one input being applied to a session.
type turn struct {
	w     *Wizard
	ctx   context.Context
	s     *Session
	out   []string
	ended bool
	warn  error
}

func (t *turn) say(category, key string, params Params) {
	t.out = append(t.out, t.w.messages.Render(category, key, params))
}

func (t *turn) reply() Reply {
	return Reply{
		Stage:    t.s.Stage,
		Messages: t.out,
		Prompt:   t.w.Prompt(*t.s),
		Ended:    t.ended,
		Err:      t.warn,
	}
}

// stageKey selects the stage-specific help and invalid-command messages.
func (t *turn) stageKey() string {
	if t.s.Stage == StageReview && t.s.Editing != nil {
		return "edit"
	}
	return string(t.s.Stage)
}

func (t *turn) invalidCommand() error {
	t.say(CatInvalid, t.stageKey(), nil)
	return nil
}

func (t *turn) reprompt(res ValidationResult) {
	t.say(CatValidation, KeyReprompt, Params{"message": res.Message()})
}

func (t *turn) dispatch(cmd Command) error {
	if cmd.Kind == CmdHelp {
		t.say(CatHelp, t.stageKey(), nil)
		return nil
	}

	switch t.s.Stage {
	case StageIntro:
		return t.intro(cmd)
	case StageEarlyAuth:
		return t.earlyAuth(cmd)
	case StageAwaitingConfirmation:
		return t.awaitingConfirmation(cmd)
	case StageQuestioning:
		return t.questioning(cmd)
	case StageReview:
		if t.s.Editing != nil {
			return t.editing(cmd)
		}
		return t.review(cmd)
	case StageSubmitting:
		if cmd.Kind == CmdRetry {
			return t.submit()
		}
		return t.invalidCommand()
	case StageSubmissionError:
		return t.submissionError(cmd)
	case StageSuccess:
		if cmd.Kind == CmdExit {
			t.end()
			t.say(CatSubmit, "closed", nil)
			return nil
		}
		return t.invalidCommand()
	}
	return errUnknownStage
}

func (t *turn) describe() error {
	switch t.s.Stage {
	case StageIntro:
		t.say(CatIntro, "welcome", nil)
	case StageEarlyAuth:
		t.askAuthField()
	case StageAwaitingConfirmation:
		t.say(CatConfirm, "awaiting", Params{"email": t.s.AccountEmail})
	case StageQuestioning:
		if t.s.QuestionIndex >= t.w.catalog.Len() {
			t.sayReview()
			return nil
		}
		return t.askQuestion()
	case StageReview:
		if t.s.Editing != nil {
			return t.askEdit()
		}
		t.sayReview()
	case StageSubmitting, StageSubmissionError, StageSuccess:
		t.say(CatHelp, string(t.s.Stage), nil)
	default:
		return errUnknownStage
	}
	return nil
}

func (t *turn) end() {
	t.ended = true
	t.s.Stage = StageIntro
	t.s.Editing = nil
}

// Intro

func (t *turn) intro(cmd Command) error {
	switch cmd.Kind {
	case CmdNew:
		if key := t.s.IdentityKey(); key != "" {
			if err := t.w.adapter.ClearProgress(t.ctx, key); err != nil {
				t.say(CatQuestions, "saveFailed", Params{"message": err.Error()})
				return nil
			}
		}
		t.s.Answers = make(AnswerSet)
		t.s.QuestionIndex = 0
		t.s.LastEdited = -1
		t.s.Editing = nil
		t.s.RegistrationID = ""
		t.say(CatIntro, "started", nil)

		switch {
		case t.s.Confirmed && t.s.UserID != "":
			t.say(CatAuth, "signedIn", Params{"email": t.s.AccountEmail})
			return t.enterQuestioning()
		case t.s.AccountEmail != "":
			// the account exists but is not confirmed yet
			t.enterAwaitingConfirmation()
			return nil
		}
		t.s.Auth = AuthDraft{}
		t.s.Stage = StageEarlyAuth
		t.askAuthField()
		return nil

	case CmdContinue:
		key := t.s.IdentityKey()
		if key == "" {
			t.say(CatIntro, "noSavedProgress", nil)
			return nil
		}
		answers, found, err := t.w.adapter.LoadProgress(t.ctx, key)
		if err != nil {
			t.say(CatQuestions, "loadFailed", Params{"message": err.Error()})
			return nil
		}
		if !found {
			t.say(CatIntro, "noSavedProgress", nil)
			return nil
		}
		if answers == nil {
			answers = make(AnswerSet)
		}
		t.s.Answers = answers
		t.say(CatIntro, "resumed", nil)
		if !t.s.Confirmed {
			t.enterAwaitingConfirmation()
			return nil
		}
		return t.enterQuestioning()
	}
	return t.invalidCommand()
}

// EarlyAuth

func (t *turn) askAuthField() {
	t.say(CatAuth, authFieldKeys[t.s.Auth.Field], nil)
}

func (t *turn) earlyAuth(cmd Command) error {
	switch cmd.Kind {
	case CmdAnswer:
		return t.authAnswer(cmd.Text)
	case CmdBack:
		if t.s.Auth.Field == AuthFirstName {
			t.s.Auth = AuthDraft{}
			t.s.Stage = StageIntro
			t.say(CatIntro, "welcome", nil)
			return nil
		}
		t.s.Auth.Field--
		if t.s.Auth.Field < AuthConfirmPassword {
			t.s.Auth.PasswordHash = nil
		}
		t.askAuthField()
		return nil
	case CmdExit:
		t.s.Auth = AuthDraft{}
		t.s.Stage = StageIntro
		t.say(CatIntro, "welcome", nil)
		return nil
	}
	return t.invalidCommand()
}

func (t *turn) authAnswer(text string) error {
	a := &t.s.Auth
	switch a.Field {
	case AuthFirstName, AuthLastName:
		ans, res := Parse(nameQuestion, text)
		if !res.Valid {
			t.reprompt(res)
			t.askAuthField()
			return nil
		}
		if a.Field == AuthFirstName {
			a.FirstName = ans.Text
		} else {
			a.LastName = ans.Text
		}
	case AuthEmail:
		ans, res := Parse(emailQuestion, text)
		if !res.Valid {
			t.reprompt(res)
			t.askAuthField()
			return nil
		}
		a.Email = strings.ToLower(ans.Text)
	case AuthPassword:
		if err := user.ValidatePassword(text, a.FirstName, a.LastName, a.Email); err != nil {
			t.say(CatValidation, KeyPasswordPolicy, Params{"message": err.Error()})
			t.askAuthField()
			return nil
		}
		hash, err := user.HashPassword(text)
		if err != nil {
			return err
		}
		a.PasswordHash = hash
	case AuthConfirmPassword:
		if err := user.CompareHashAndPassword(a.PasswordHash, text); err != nil {
			a.PasswordHash = nil
			a.Field = AuthPassword
			t.say(CatAuth, "passwordMismatch", nil)
			t.askAuthField()
			return nil
		}
		return t.createAccount()
	default:
		return errUnknownStage
	}
	a.Field++
	t.askAuthField()
	return nil
}

func (t *turn) createAccount() error {
	a := t.s.Auth
	id, err := t.w.adapter.CreateAccount(t.ctx, user.NewAccount{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			t.s.Auth.Email = ""
			t.s.Auth.PasswordHash = nil
			t.s.Auth.Field = AuthEmail
			t.say(CatAuth, "accountExists", Params{"email": a.Email})
			t.askAuthField()
			return nil
		}
		t.say(CatAuth, "accountFailed", Params{"message": err.Error()})
		t.askAuthField()
		return nil
	}

	t.s.UserID = id
	t.s.AccountEmail = a.Email
	t.s.Confirmed = false
	t.s.Auth = AuthDraft{}
	t.say(CatAuth, "accountCreated", Params{"email": a.Email})
	t.enterAwaitingConfirmation()
	return nil
}

// AwaitingConfirmation

func (t *turn) enterAwaitingConfirmation() {
	t.s.Stage = StageAwaitingConfirmation
	t.say(CatConfirm, "awaiting", Params{"email": t.s.AccountEmail})
}

func (t *turn) awaitingConfirmation(cmd Command) error {
	switch cmd.Kind {
	case CmdContinue:
		if t.s.AccountEmail == "" {
			return errNoIdentityKey
		}
		ok, err := t.w.adapter.CheckConfirmed(t.ctx, t.s.AccountEmail)
		if err != nil {
			t.say(CatConfirm, "checkError", Params{"message": err.Error()})
			return nil
		}
		if !ok {
			t.say(CatConfirm, "checkFailed", Params{"email": t.s.AccountEmail})
			return nil
		}
		t.s.Confirmed = true
		t.say(CatConfirm, "confirmed", nil)
		if len(t.s.Answers) == 0 {
			answers, found, err := t.w.adapter.LoadProgress(t.ctx, t.s.IdentityKey())
			if err != nil {
				t.say(CatQuestions, "loadFailed", Params{"message": err.Error()})
			} else if found && answers != nil {
				t.s.Answers = answers
				t.say(CatIntro, "resumed", nil)
			}
		}
		return t.enterQuestioning()
	case CmdResend:
		if t.s.AccountEmail == "" {
			return errNoIdentityKey
		}
		if err := t.w.adapter.ResendConfirmation(t.ctx, t.s.AccountEmail); err != nil {
			t.say(CatConfirm, "resendFailed", Params{"message": err.Error()})
			return nil
		}
		t.say(CatConfirm, "resendSuccess", Params{"email": t.s.AccountEmail})
		return nil
	case CmdExit:
		t.s.Stage = StageIntro
		t.say(CatIntro, "welcome", nil)
		return nil
	}
	return t.invalidCommand()
}

// Questioning

func (t *turn) enterQuestioning() error {
	t.s.Stage = StageQuestioning
	t.s.Editing = nil
	t.s.QuestionIndex = t.w.catalog.FirstUnanswered(t.s.Answers)
	if t.s.QuestionIndex >= t.w.catalog.Len() {
		t.saveProgress(false)
		t.enterReview()
		return nil
	}
	return t.askQuestion()
}

func (t *turn) sayQuestion(q Question) {
	t.say(CatQuestions, "question", Params{"label": q.Label})
	if q.Hint != "" {
		t.say(CatQuestions, "hint", Params{"hint": q.Hint})
	}
	if len(q.Options) > 0 {
		t.say(CatQuestions, "options", Params{"options": optionList(q)})
	}
	if ans, ok := t.s.Answers[q.ID]; ok && !ans.IsEmpty() {
		t.say(CatQuestions, "current", Params{"answer": ans.Format(q)})
	}
}

func (t *turn) askQuestion() error {
	q, ok := t.w.catalog.At(t.s.QuestionIndex)
	if !ok {
		return errQuestionOutOfRange
	}
	t.sayQuestion(q)
	return nil
}

// saveProgress persists the answers; failures are reported to the user.
func (t *turn) saveProgress(announce bool) bool {
	key := t.s.IdentityKey()
	if key == "" {
		t.say(CatQuestions, "saveFailed", Params{"message": errNoIdentityKey.Error()})
		return false
	}
	if err := t.w.adapter.SaveProgress(t.ctx, key, t.s.Answers); err != nil {
		t.say(CatQuestions, "saveFailed", Params{"message": err.Error()})
		return false
	}
	if announce {
		t.say(CatQuestions, "progressSaved", nil)
	}
	return true
}

func (t *turn) exitToIntro() error {
	if !t.saveProgress(false) {
		return nil
	}
	t.s.Stage = StageIntro
	t.s.Editing = nil
	t.say(CatQuestions, "exited", nil)
	return nil
}

func (t *turn) questioning(cmd Command) error {
	c := t.w.catalog
	// skip questions whose dependency is not met
	if t.s.QuestionIndex < c.Len() && !c.IsVisible(t.s.QuestionIndex, t.s.Answers) {
		t.s.QuestionIndex = c.NextVisible(t.s.QuestionIndex, t.s.Answers)
	}

	switch cmd.Kind {
	case CmdAnswer:
		q, ok := c.At(t.s.QuestionIndex)
		if !ok {
			return errQuestionOutOfRange
		}
		ans, res := Parse(q, cmd.Text)
		if !res.Valid {
			t.reprompt(res)
			return t.askQuestion()
		}
		t.s.Answers[q.ID] = ans
		t.s.QuestionIndex = c.NextVisible(t.s.QuestionIndex+1, t.s.Answers)
		if t.s.QuestionIndex >= c.Len() {
			t.saveProgress(false)
			t.enterReview()
			return nil
		}
		return t.askQuestion()
	case CmdBack:
		prev := c.PrevVisible(t.s.QuestionIndex-1, t.s.Answers)
		if prev < 0 {
			t.say(CatQuestions, "atFirst", nil)
			return t.askQuestion()
		}
		t.s.QuestionIndex = prev
		return t.askQuestion()
	case CmdSave:
		t.saveProgress(true)
		return nil
	case CmdReview:
		t.saveProgress(false)
		t.enterReview()
		return nil
	case CmdExit:
		return t.exitToIntro()
	}
	return t.invalidCommand()
}

// Review

func (t *turn) enterReview() {
	t.s.Stage = StageReview
	t.s.Editing = nil
	t.sayReview()
}

func (t *turn) sayReview() {
	t.say(CatReview, "header", nil)
	t.out = append(t.out, t.w.ReviewLines(*t.s)...)
	t.say(CatReview, "instructions", nil)
}

func (t *turn) review(cmd Command) error {
	c := t.w.catalog
	switch cmd.Kind {
	case CmdEdit:
		visible := c.Visible(t.s.Answers)
		if cmd.N < 1 || cmd.N > len(visible) {
			t.say(CatReview, "invalidEdit", Params{"n": strconv.Itoa(cmd.N), "total": strconv.Itoa(len(visible))})
			return nil
		}
		t.s.Editing = &EditState{Index: visible[cmd.N-1]}
		return t.askEdit()
	case CmdBack:
		idx := c.FirstUnanswered(t.s.Answers)
		if idx >= c.Len() {
			if t.s.LastEdited >= 0 && c.IsVisible(t.s.LastEdited, t.s.Answers) {
				idx = t.s.LastEdited
			} else {
				idx = c.PrevVisible(c.Len()-1, t.s.Answers)
			}
		}
		if idx < 0 {
			return errQuestionOutOfRange
		}
		t.s.Stage = StageQuestioning
		t.s.QuestionIndex = idx
		return t.askQuestion()
	case CmdSubmit:
		if missing := c.Missing(t.s.Answers); len(missing) > 0 {
			labels := make([]string, 0, len(missing))
			for _, q := range missing {
				labels = append(labels, q.Label)
			}
			t.say(CatReview, "incomplete", Params{"missing": strings.Join(labels, "; ")})
			return nil
		}
		return t.submit()
	case CmdReview:
		t.sayReview()
		return nil
	case CmdSave:
		t.saveProgress(true)
		return nil
	case CmdExit:
		return t.exitToIntro()
	}
	return t.invalidCommand()
}

func (t *turn) askEdit() error {
	q, ok := t.w.catalog.At(t.s.Editing.Index)
	if !ok {
		return errQuestionOutOfRange
	}
	t.say(CatReview, "editPrompt", Params{
		"n":     strconv.Itoa(t.w.position(*t.s, t.s.Editing.Index)),
		"label": q.Label,
	})
	if q.Hint != "" {
		t.say(CatQuestions, "hint", Params{"hint": q.Hint})
	}
	if len(q.Options) > 0 {
		t.say(CatQuestions, "options", Params{"options": optionList(q)})
	}
	if ans, ok := t.s.Answers[q.ID]; ok && !ans.IsEmpty() {
		t.say(CatQuestions, "current", Params{"answer": ans.Format(q)})
	}
	return nil
}

func (t *turn) editing(cmd Command) error {
	edit := t.s.Editing
	q, ok := t.w.catalog.At(edit.Index)
	if !ok {
		return errQuestionOutOfRange
	}

	switch cmd.Kind {
	case CmdAnswer:
		ans, res := Parse(q, cmd.Text)
		if !res.Valid {
			t.reprompt(res)
			return nil
		}
		edit.Draft = &ans
		formatted := ans.Format(q)
		if ans.IsEmpty() {
			formatted = t.w.messages.Render(CatReview, "noAnswer", nil)
		}
		t.say(CatReview, "editStaged", Params{"answer": formatted})
		return nil
	case CmdSave:
		if edit.Draft == nil {
			t.say(CatReview, "editNothing", nil)
			return nil
		}
		n := t.w.position(*t.s, edit.Index)
		t.s.Answers[q.ID] = *edit.Draft
		t.s.LastEdited = edit.Index
		t.s.Editing = nil
		t.saveProgress(false)
		t.say(CatReview, "editSaved", Params{"n": strconv.Itoa(n)})
		t.sayReview()
		return nil
	case CmdExit:
		t.s.Editing = nil
		t.say(CatReview, "editCancelled", nil)
		t.sayReview()
		return nil
	}
	return t.invalidCommand()
}

// Submitting

func (t *turn) submit() error {
	key := t.s.IdentityKey()
	if key == "" {
		return errNoIdentityKey
	}
	t.s.Stage = StageSubmitting
	t.say(CatSubmit, "submitting", nil)

	id, err := t.w.adapter.SubmitRegistration(t.ctx, key, t.w.catalog.Prune(t.s.Answers))
	if err != nil {
		t.s.Stage = StageSubmissionError
		t.say(CatSubmit, "failed", Params{"message": err.Error()})
		return nil
	}

	t.s.RegistrationID = id
	if err = t.w.adapter.ClearProgress(t.ctx, key); err != nil {
		t.warn = err
	}
	t.s.Stage = StageSuccess
	t.say(CatSubmit, "success", nil)
	return nil
}

func (t *turn) submissionError(cmd Command) error {
	switch cmd.Kind {
	case CmdRetry:
		return t.submit()
	case CmdExit:
		t.end()
		t.say(CatSubmit, "abandoned", nil)
		return nil
	}
	return t.invalidCommand()
}
