package domain

import (
	"fmt"
	"strings"
)

// Recipient is one resolved destination for a dispatch run. It is supplied by
// the caller (or a directory lookup) and is never mutated by the engine.
type Recipient struct {
	ID         string
	Name       string
	Nickname   string
	Phone      string
	Attributes map[string]string
}

// DisplayName prefers the nickname over the full name.
func (r Recipient) DisplayName() string {
	if nick := strings.TrimSpace(r.Nickname); nick != "" {
		return nick
	}
	return r.Name
}

// FirstName is the first whitespace-separated token of the full name.
func (r Recipient) FirstName() string {
	fields := strings.Fields(r.Name)
	if len(fields) == 0 {
		return r.Name
	}
	return fields[0]
}

func (r Recipient) Validate() error {
	if strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: recipient needs a name or an id", ErrValidation)
	}
	return nil
}
