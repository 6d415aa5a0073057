package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxStudentNameLength is counted in runes.
const MaxStudentNameLength = 50

var validate = validator.New()

// pollShape is a create-poll request after trimming.
type pollShape struct {
	Question string   `validate:"required"`
	Options  []string `validate:"min=2,dive,required"`
}

// ValidateStudentName checks an already trimmed display name.
func ValidateStudentName(name string) error {
	if err := validate.Var(name, "required"); err != nil {
		return ErrNameRequired
	}
	if err := validate.Var(name, "max="+strconv.Itoa(MaxStudentNameLength)); err != nil {
		return ErrNameTooLong
	}
	return nil
}

// ValidatePollShape checks a trimmed question and its non-empty options.
func ValidatePollShape(question string, options []string) error {
	if err := validate.Struct(pollShape{Question: question, Options: options}); err != nil {
		return ErrInvalidPoll
	}
	return nil
}

// AnswerValue keeps the raw text of a submitted answer. Clients send either a
// JSON string ("1") or a JSON number (1); both are kept as their literal text
// so that parsing rules live in one place.
type AnswerValue string

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AnswerValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = AnswerValue(n.String())
	return nil
}

// ParseOptionIndex parses a raw answer into an option index in [0, optionCount).
// Surrounding whitespace is ignored; anything else that is not a base-10
// integer in range is rejected.
func ParseOptionIndex(raw string, optionCount int) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidOption
	}
	if idx < 0 || idx >= optionCount {
		return 0, ErrInvalidOption
	}
	return idx, nil
}
