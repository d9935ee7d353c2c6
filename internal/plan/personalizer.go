package plan

import (
	"strings"

	"smscast/internal/domain"
)

const (
	placeholderName      = "{name}"
	placeholderNickname  = "{nickname}"
	placeholderFirstName = "{firstname}"
)

const maxPreviewRecipients = 5

// Placeholders returns the recognized placeholder set, for UI and help output.
func Placeholders() []string {
	return []string{placeholderName, placeholderNickname, placeholderFirstName}
}

// Render substitutes the recognized placeholders with the recipient's
// attributes, case-insensitively. A placeholder with no usable value stays
// verbatim in the output. Pure and deterministic; never fails.
func Render(template string, recipient domain.Recipient) string {
	rendered := replaceInsensitive(template, placeholderName, recipient.DisplayName())
	rendered = replaceInsensitive(rendered, placeholderNickname, strings.TrimSpace(recipient.Nickname))
	rendered = replaceInsensitive(rendered, placeholderFirstName, recipient.FirstName())

	for key, value := range recipient.Attributes {
		rendered = replaceInsensitive(rendered, "{"+strings.ToLower(key)+"}", strings.TrimSpace(value))
	}

	return rendered
}

// Preview renders the template against a capped sample of recipients.
type Preview struct {
	Recipient domain.Recipient
	Rendered  string
}

func PreviewRender(template string, recipients []domain.Recipient) []Preview {
	n := len(recipients)
	if n > maxPreviewRecipients {
		n = maxPreviewRecipients
	}

	previews := make([]Preview, 0, n)
	for _, recipient := range recipients[:n] {
		previews = append(previews, Preview{
			Recipient: recipient,
			Rendered:  Render(template, recipient),
		})
	}
	return previews
}

// replaceInsensitive replaces every case-insensitive occurrence of placeholder
// in s with value. An empty value leaves the placeholder verbatim so the
// recipient never receives a message with a hole in it.
func replaceInsensitive(s, placeholder, value string) string {
	if value == "" || placeholder == "" {
		return s
	}

	lowered := strings.ToLower(s)
	needle := strings.ToLower(placeholder)

	var b strings.Builder
	for {
		idx := strings.Index(lowered, needle)
		if idx < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:idx])
		b.WriteString(value)
		s = s[idx+len(needle):]
		lowered = lowered[idx+len(needle):]
	}
}
