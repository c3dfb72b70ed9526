package access

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Rule tags as persisted in the ledger.
const (
	TagPublic = "public"
	TagUserID = "userId"
)

// ErrMalformedRule is returned when a stored rule is not a JSON object with a rule tag.
var ErrMalformedRule = errors.New("malformed access rule")

// Rule declares who may read or write a stored object. The set of variants is
// closed: Public, UserOnly and Unknown. Authorize switches over all of them.
type Rule interface {
	Tag() string
	isRule()
}

// Public authorizes every caller, anonymous included.
type Public struct{}

// UserOnly authorizes the caller whose identity equals UserID. A nil UserID
// authorizes nobody.
type UserOnly struct {
	UserID *string
}

// Unknown holds a rule whose tag this build does not understand. It never authorizes.
type Unknown struct {
	RawTag string
	Raw    json.RawMessage
}

func (Public) Tag() string    { return TagPublic }
func (UserOnly) Tag() string  { return TagUserID }
func (u Unknown) Tag() string { return u.RawTag }

func (Public) isRule()   {}
func (UserOnly) isRule() {}
func (Unknown) isRule()  {}

// Owner returns a UserOnly rule bound to userID.
func Owner(userID string) UserOnly {
	id := userID
	return UserOnly{UserID: &id}
}

type wireRule struct {
	Rule   string  `json:"rule"`
	UserID *string `json:"userId,omitempty"`
}

// Encode serializes rule into its JSON wire form.
func Encode(rule Rule) ([]byte, error) {
	switch r := rule.(type) {
	case Public:
		return json.Marshal(wireRule{Rule: TagPublic})
	case UserOnly:
		// userId is always written, null included, so a lockout rule stays explicit.
		return json.Marshal(struct {
			Rule   string  `json:"rule"`
			UserID *string `json:"userId"`
		}{Rule: TagUserID, UserID: r.UserID})
	case Unknown:
		if len(r.Raw) > 0 {
			return r.Raw, nil
		}
		return json.Marshal(wireRule{Rule: r.RawTag})
	case nil:
		return nil, fmt.Errorf("%w: nil rule", ErrMalformedRule)
	default:
		return nil, fmt.Errorf("%w: unsupported variant %T", ErrMalformedRule, rule)
	}
}

// Decode parses the JSON wire form. Unrecognized tags decode to Unknown rather
// than failing, so they can be denied at evaluation time.
func Decode(data []byte) (Rule, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}

	var tag string
	if rawTag, ok := raw["rule"]; ok {
		if err := json.Unmarshal(rawTag, &tag); err != nil {
			return nil, fmt.Errorf("%w: rule tag is not a string", ErrMalformedRule)
		}
	}

	switch tag {
	case TagPublic:
		return Public{}, nil
	case TagUserID:
		var w wireRule
		if err := json.Unmarshal(data, &w); err != nil {
			return Unknown{RawTag: tag, Raw: append(json.RawMessage(nil), data...)}, nil
		}
		return UserOnly{UserID: w.UserID}, nil
	default:
		return Unknown{RawTag: tag, Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
