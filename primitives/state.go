package primitives

import "time"

// JudgementState is the full per-identity verification record: every field
// under challenge, the completion transition timestamps, and the judgement
// submission flag. Unique on Context.
type JudgementState struct {
	Context             IdentityContext `json:"context"`
	IsFullyVerified     bool            `json:"is_fully_verified"`
	InsertedTimestamp   int64           `json:"inserted_timestamp"`
	CompletionTimestamp *int64          `json:"completion_timestamp,omitempty"`
	JudgementSubmitted  bool            `json:"judgement_submitted"`
	IssueJudgementAt    *int64          `json:"issue_judgement_at,omitempty"`
	Fields              []IdentityField `json:"fields"`
}

// NewJudgementState creates a fresh state for context with one IdentityField
// per value, each carrying the challenge fixed by its kind.
func NewJudgementState(context IdentityContext, values []IdentityFieldValue) JudgementState {
	fields := make([]IdentityField, len(values))
	for i, v := range values {
		fields[i] = NewIdentityField(v)
	}
	return JudgementState{
		Context:           context,
		InsertedTimestamp: time.Now().Unix(),
		Fields:            fields,
	}
}

// CheckFullVerification reports whether every field's challenge is
// satisfied. It does not mutate state; callers run this inside the
// completion-check CAS transition.
func (s *JudgementState) CheckFullVerification() bool {
	for _, f := range s.Fields {
		if !f.Challenge.IsVerified() {
			return false
		}
	}
	return true
}

// DisplayName returns the DisplayName field's declared value, if present.
func (s *JudgementState) DisplayName() (string, bool) {
	for _, f := range s.Fields {
		if f.Value.Kind == FieldDisplayName {
			return f.Value.Value, true
		}
	}
	return "", false
}

// Field returns a pointer to the field matching value, if present, so
// callers can mutate challenge state in place.
func (s *JudgementState) Field(value IdentityFieldValue) *IdentityField {
	for i := range s.Fields {
		if s.Fields[i].Value == value {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldByKind returns a pointer to the first field of the given kind, if
// present. Field kinds are not unique by construction, but admin overrides
// and the engine always operate on the kind since callers only know the
// requested field name, not its declared value.
func (s *JudgementState) FieldByKind(kind FieldKind) *IdentityField {
	for i := range s.Fields {
		if s.Fields[i].Value.Kind == kind {
			return &s.Fields[i]
		}
	}
	return nil
}

// Blank produces the public projection of a JudgementState: unresolved
// secondary-challenge nonces are redacted and issue_judgement_at is omitted,
// so a client cannot learn the exact judgement-issuance moment or a
// not-yet-verified secondary nonce value. Blanking is idempotent: blanking a
// Blanked is the identity function, since JudgementStateBlanked carries no
// raw nonce to redact a second time.
func (s JudgementState) Blank() JudgementStateBlanked {
	fields := make([]IdentityFieldBlanked, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = IdentityFieldBlanked{
			Value:          f.Value,
			Challenge:      blankChallenge(f.Challenge),
			FailedAttempts: f.FailedAttempts,
		}
	}
	return JudgementStateBlanked{
		Context:             s.Context,
		IsFullyVerified:      s.IsFullyVerified,
		InsertedTimestamp:    s.InsertedTimestamp,
		CompletionTimestamp:  s.CompletionTimestamp,
		JudgementSubmitted:   s.JudgementSubmitted,
		Fields:               fields,
	}
}

// JudgementStateBlanked is the redacted public view of a JudgementState.
type JudgementStateBlanked struct {
	Context             IdentityContext        `json:"context"`
	IsFullyVerified     bool                   `json:"is_fully_verified"`
	InsertedTimestamp   int64                  `json:"inserted_timestamp"`
	CompletionTimestamp *int64                 `json:"completion_timestamp,omitempty"`
	JudgementSubmitted  bool                   `json:"judgement_submitted"`
	Fields              []IdentityFieldBlanked `json:"fields"`
}

type IdentityFieldBlanked struct {
	Value          IdentityFieldValue   `json:"value"`
	Challenge      ChallengeTypeBlanked `json:"challenge"`
	FailedAttempts int                  `json:"failed_attempts"`
}

// ChallengeTypeBlanked mirrors ChallengeType except ExpectedMessageChallenge's
// secondary nonce, if present, is reduced to its verification flag.
type ChallengeTypeBlanked struct {
	Kind ChallengeKind `json:"kind"`

	ExpectedMessage  *ExpectedMessageChallengeBlanked `json:"expected_message,omitempty"`
	DisplayNameCheck *DisplayNameCheckChallenge       `json:"display_name_check,omitempty"`
	Unsupported      *UnsupportedChallenge            `json:"unsupported,omitempty"`
}

type ExpectedMessageChallengeBlanked struct {
	// Expected keeps its raw value: the primary nonce is only ever echoed
	// through the field's channel by the account that owns it, and a client
	// polling its own status needs to know it to complete the first stage.
	Expected ExpectedMessage `json:"expected"`
	// Second is blanked: only the verification flag survives, so clients
	// cannot learn an unresolved secondary nonce.
	Second *ExpectedMessageBlanked `json:"second,omitempty"`
}

type ExpectedMessageBlanked struct {
	IsVerified bool `json:"is_verified"`
}

func blankChallenge(c ChallengeType) ChallengeTypeBlanked {
	switch c.Kind {
	case ChallengeExpectedMessage:
		b := &ExpectedMessageChallengeBlanked{Expected: c.ExpectedMessage.Expected}
		if c.ExpectedMessage.Second != nil {
			b.Second = &ExpectedMessageBlanked{IsVerified: c.ExpectedMessage.Second.IsVerified}
		}
		return ChallengeTypeBlanked{Kind: c.Kind, ExpectedMessage: b}
	case ChallengeDisplayNameCheck:
		return ChallengeTypeBlanked{Kind: c.Kind, DisplayNameCheck: c.DisplayNameCheck}
	default:
		return ChallengeTypeBlanked{Kind: c.Kind, Unsupported: c.Unsupported}
	}
}
