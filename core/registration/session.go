package registration

import "time"

// Stage is a named phase of the registration wizard.
type Stage string

const (
	StageIntro                Stage = "intro"
	StageEarlyAuth            Stage = "early_auth"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
	StageQuestioning          Stage = "questioning"
	StageReview               Stage = "review"
	StageSubmitting           Stage = "submitting"
	StageSubmissionError      Stage = "submission_error"
	StageSuccess              Stage = "success"
)

var Stages = []Stage{
	StageIntro, StageEarlyAuth, StageAwaitingConfirmation, StageQuestioning,
	StageReview, StageSubmitting, StageSubmissionError, StageSuccess,
}

// Early authentication fields, asked in order.
const (
	AuthFirstName = iota
	AuthLastName
	AuthEmail
	AuthPassword
	AuthConfirmPassword
	authFieldCount
)

var authFieldKeys = [authFieldCount]string{"firstName", "lastName", "email", "password", "confirmPassword"}

type (
	// AuthDraft holds the account fields collected so far. The password is only kept hashed.
	AuthDraft struct {
		Field        int    `json:"field"`
		FirstName    string `json:"first_name,omitempty"`
		LastName     string `json:"last_name,omitempty"`
		Email        string `json:"email,omitempty"`
		PasswordHash []byte `json:"password_hash,omitempty"`
	}

	// EditState is the Review edit sub-mode: the question being edited and the staged answer.
	EditState struct {
		Index int     `json:"index"`
		Draft *Answer `json:"draft,omitempty"`
	}

	// Identity is an account a session is bound to.
	Identity struct {
		UserID    string
		Email     string
		Confirmed bool
	}

	// Session is the persisted state of one registration wizard.
	Session struct {
		ID             string     `json:"id"`
		Stage          Stage      `json:"stage"`
		QuestionIndex  int        `json:"question_index"`
		Answers        AnswerSet  `json:"answers"`
		AccountEmail   string     `json:"account_email,omitempty"`
		UserID         string     `json:"user_id,omitempty"`
		Confirmed      bool       `json:"confirmed"`
		Auth           AuthDraft  `json:"auth"`
		Editing        *EditState `json:"editing,omitempty"`
		LastEdited     int        `json:"last_edited"`
		RegistrationID string     `json:"registration_id,omitempty"`
		Version        int64      `json:"version"`
		CreatedAt      time.Time  `json:"created_at"`
		UpdatedAt      time.Time  `json:"updated_at"`
	}
)

// NewSession returns a session at the Intro stage, optionally bound to an account.
func NewSession(id string, ident *Identity) Session {
	sess := Session{
		ID:         id,
		Stage:      StageIntro,
		Answers:    make(AnswerSet),
		LastEdited: -1,
	}
	if ident != nil {
		sess.Bind(*ident)
	}
	return sess
}

// Bind attaches the session to an account.
func (s *Session) Bind(ident Identity) {
	s.UserID = ident.UserID
	s.AccountEmail = ident.Email
	s.Confirmed = ident.Confirmed
}

// IdentityKey keys the persisted progress: the user ID once confirmed, else the pending email.
func (s Session) IdentityKey() string {
	if s.Confirmed && s.UserID != "" {
		return s.UserID
	}
	return s.AccountEmail
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	c := s
	c.Answers = s.Answers.Clone()
	if c.Answers == nil {
		c.Answers = make(AnswerSet)
	}
	if s.Auth.PasswordHash != nil {
		c.Auth.PasswordHash = append([]byte(nil), s.Auth.PasswordHash...)
	}
	if s.Editing != nil {
		e := *s.Editing
		if e.Draft != nil {
			d := e.Draft.clone()
			e.Draft = &d
		}
		c.Editing = &e
	}
	return c
}
