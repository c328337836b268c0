package identifier

import (
	"errors"
	"strings"
)

// Name of a grading profile, e.g. `java`
type Language string

// Returned when no profile matches
const LanguageInvalid Language = ""

func (l Language) String() string {
	return string(l)
}

// Allow use as a cobra flag

func (l *Language) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return errors.New("language must not be empty")
	}

	*l = Language(v)
	return nil
}

func (*Language) Type() string {
	return "Language"
}
