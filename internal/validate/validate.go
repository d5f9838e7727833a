// Package validate sanitizes and bounds user supplied text before it reaches the chat core.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	htmlTag         = regexp.MustCompile(`<[^>]*>`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	check = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// Rules bounds the lengths of accepted text fields. Lengths are counted in runes.
type Rules struct {
	MaxMessageLength  int
	MaxUsernameLength int
	MaxRoomNameLength int
}

// Sanitize strips markup tags and surrounding whitespace.
func Sanitize(input string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(input, ""))
}

// Text returns the sanitized message body, or false when it is empty or too long.
func (r Rules) Text(text string) (string, bool) {
	cleaned := Sanitize(text)
	if cleaned == "" || utf8.RuneCountInString(cleaned) > r.MaxMessageLength {
		return "", false
	}
	return cleaned, true
}

// Username returns the sanitized display name. Only [A-Za-z0-9_] is accepted.
func (r Rules) Username(username string) (string, bool) {
	cleaned := Sanitize(username)
	tag := fmt.Sprintf("required,max=%d,handle", r.MaxUsernameLength)
	if err := check.Var(cleaned, tag); err != nil {
		return "", false
	}
	return cleaned, true
}

// RoomName returns the sanitized room name. Room names are case-sensitive and may contain any
// printable text; an empty result is reported through ok=false with tooLong=false.
func (r Rules) RoomName(room string) (name string, ok bool, tooLong bool) {
	cleaned := Sanitize(room)
	if cleaned == "" {
		return "", false, false
	}
	if utf8.RuneCountInString(cleaned) > r.MaxRoomNameLength {
		return "", false, true
	}
	return cleaned, true, false
}
