package primitives

import "strings"

// FieldKind tags the kind of attribute an IdentityFieldValue carries. The
// kind alone determines which ChallengeType a field is built with; see
// newChallengeFor.
type FieldKind string

const (
	FieldLegalName      FieldKind = "legal_name"
	FieldDisplayName    FieldKind = "display_name"
	FieldEmail          FieldKind = "email"
	FieldWeb            FieldKind = "web"
	FieldTwitter        FieldKind = "twitter"
	FieldMatrix         FieldKind = "matrix"
	FieldPGPFingerprint FieldKind = "pgp_fingerprint"
	FieldImage          FieldKind = "image"
	FieldAdditional     FieldKind = "additional"
)

// IdentityFieldValue is the user-declared attribute to prove: a kind tag
// plus the string payload the user wants vouched for.
type IdentityFieldValue struct {
	Kind  FieldKind `json:"type"`
	Value string    `json:"value"`
}

func NewLegalName(v string) IdentityFieldValue      { return IdentityFieldValue{FieldLegalName, v} }
func NewDisplayName(v string) IdentityFieldValue    { return IdentityFieldValue{FieldDisplayName, v} }
func NewEmail(v string) IdentityFieldValue          { return IdentityFieldValue{FieldEmail, v} }
func NewWeb(v string) IdentityFieldValue            { return IdentityFieldValue{FieldWeb, v} }
func NewTwitter(v string) IdentityFieldValue        { return IdentityFieldValue{FieldTwitter, v} }
func NewMatrix(v string) IdentityFieldValue         { return IdentityFieldValue{FieldMatrix, v} }
func NewPGPFingerprint(v string) IdentityFieldValue { return IdentityFieldValue{FieldPGPFingerprint, v} }
func NewImage(v string) IdentityFieldValue          { return IdentityFieldValue{FieldImage, v} }
func NewAdditional(v string) IdentityFieldValue     { return IdentityFieldValue{FieldAdditional, v} }

// MatchesOrigin reports whether this field is the one an inbound message
// claims to originate from: the field's kind must be one of the channel
// kinds (Email, Twitter, Matrix) and its payload must equal the message
// origin's handle for that same kind.
func (v IdentityFieldValue) MatchesOrigin(msg ExternalMessage) bool {
	switch v.Kind {
	case FieldEmail:
		return msg.Origin.Kind == OriginEmail && v.Value == msg.Origin.Value
	case FieldTwitter:
		return msg.Origin.Kind == OriginTwitter && v.Value == msg.Origin.Value
	case FieldMatrix:
		return msg.Origin.Kind == OriginMatrix && v.Value == msg.Origin.Value
	default:
		return false
	}
}

// ChallengeKind tags which variant of ChallengeType a field carries.
type ChallengeKind string

const (
	ChallengeExpectedMessage  ChallengeKind = "expected_message"
	ChallengeDisplayNameCheck ChallengeKind = "display_name_check"
	ChallengeUnsupported      ChallengeKind = "unsupported"
)

// ExpectedMessage is a single echo-the-nonce challenge: the user must cause
// an inbound message containing Value to arrive through the field's channel.
type ExpectedMessage struct {
	Value      string `json:"value"`
	IsVerified bool   `json:"is_verified"`
}

func newExpectedMessage() ExpectedMessage {
	return ExpectedMessage{Value: newNonce(), IsVerified: false}
}

// VerifyMessage reports whether msg carries this challenge's nonce as a
// substring of any of its values, and marks the challenge verified on
// success. Substring, not equality: accommodates reply-quoting/annotation by
// the user. Do not tighten to equality without auditing adapter behavior.
func (e *ExpectedMessage) VerifyMessage(msg ExternalMessage) bool {
	for _, v := range msg.Values {
		if strings.Contains(v, e.Value) {
			e.IsVerified = true
			return true
		}
	}
	return false
}

// ChallengeType is a tagged union over the three ways a field can be proven:
// echoing a nonce, passing an externally-computed display-name policy check,
// or an admin override for channels with no automated proof. The variants
// share no state beyond the IsVerified predicate; this is a flat struct with
// one populated branch rather than an interface hierarchy, so it round-trips
// through JSON (the store's persistence format) without custom marshaling.
type ChallengeType struct {
	Kind ChallengeKind `json:"kind"`

	ExpectedMessage  *ExpectedMessageChallenge  `json:"expected_message,omitempty"`
	DisplayNameCheck *DisplayNameCheckChallenge `json:"display_name_check,omitempty"`
	Unsupported      *UnsupportedChallenge      `json:"unsupported,omitempty"`
}

type ExpectedMessageChallenge struct {
	Expected ExpectedMessage  `json:"expected"`
	Second   *ExpectedMessage `json:"second,omitempty"`
}

type DisplayNameCheckChallenge struct {
	Passed     bool               `json:"passed"`
	Violations []DisplayNameEntry `json:"violations"`
}

// UnsupportedChallenge covers fields with no automated channel (LegalName,
// Web, PGPFingerprint, Image, Additional); only an admin override can set
// IsVerified. A nil IsVerified means "not yet judged", distinct from false.
type UnsupportedChallenge struct {
	IsVerified *bool `json:"is_verified,omitempty"`
}

// IsVerified reports whether the challenge has been satisfied.
func (c ChallengeType) IsVerified() bool {
	switch c.Kind {
	case ChallengeExpectedMessage:
		m := c.ExpectedMessage
		if m.Second != nil {
			return m.Expected.IsVerified && m.Second.IsVerified
		}
		return m.Expected.IsVerified
	case ChallengeDisplayNameCheck:
		return c.DisplayNameCheck.Passed
	case ChallengeUnsupported:
		return c.Unsupported.IsVerified != nil && *c.Unsupported.IsVerified
	default:
		return false
	}
}

// newChallengeFor builds the challenge variant fixed by a field's kind:
// Email is the only two-stage (primary + secondary nonce) challenge;
// Twitter/Matrix are single-stage; DisplayName gets a policy check stub;
// everything else requires an admin override.
func newChallengeFor(kind FieldKind) ChallengeType {
	switch kind {
	case FieldDisplayName:
		return ChallengeType{
			Kind:             ChallengeDisplayNameCheck,
			DisplayNameCheck: &DisplayNameCheckChallenge{Passed: false, Violations: []DisplayNameEntry{}},
		}
	case FieldEmail:
		second := newExpectedMessage()
		return ChallengeType{
			Kind: ChallengeExpectedMessage,
			ExpectedMessage: &ExpectedMessageChallenge{
				Expected: newExpectedMessage(),
				Second:   &second,
			},
		}
	case FieldTwitter, FieldMatrix:
		return ChallengeType{
			Kind:            ChallengeExpectedMessage,
			ExpectedMessage: &ExpectedMessageChallenge{Expected: newExpectedMessage()},
		}
	default:
		return ChallengeType{Kind: ChallengeUnsupported, Unsupported: &UnsupportedChallenge{}}
	}
}

// IdentityField is one attribute under verification: its declared value, the
// challenge fixed at creation time, and a counter of failed primary-channel
// verification attempts.
type IdentityField struct {
	Value          IdentityFieldValue `json:"value"`
	Challenge      ChallengeType      `json:"challenge"`
	FailedAttempts int                `json:"failed_attempts"`
}

// NewIdentityField constructs a field with the challenge variant fixed by
// its value's kind.
func NewIdentityField(value IdentityFieldValue) IdentityField {
	return IdentityField{
		Value:     value,
		Challenge: newChallengeFor(value.Kind),
	}
}
