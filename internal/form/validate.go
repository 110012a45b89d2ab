// Package form validates login form input and guards submission of
// invalid forms. Validation is a pure function of the current values.
package form

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"
)

// Field names used as keys of a ValidationResult.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

// Password length bounds, inclusive, counted in characters.
const (
	MinPasswordLen = 6
	MaxPasswordLen = 12
)

// Messages reported for failing fields.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Email is invalid"
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "Password Too Short!"
	MsgPasswordLong     = "Password Too Long!"
)

// Values are the raw field values of a login form.
type Values struct {
	Email    string
	Password string
}

// ValidationResult maps a field name to its error message. A field is
// present only when it fails its rule.
type ValidationResult map[string]string

// Valid reports whether no field failed.
func (r ValidationResult) Valid() bool { return len(r) == 0 }

// Error returns the message for field, or "" when the field passed.
func (r ValidationResult) Error(field string) string { return r[field] }

// Fields returns the failing field names in sorted order.
func (r ValidationResult) Fields() []string {
	fields := make([]string, 0, len(r))
	for f := range r {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ValidationError is returned when a submission is attempted with a
// failing ValidationResult.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Result))
	for _, f := range e.Result.Fields() {
		parts = append(parts, f+": "+e.Result[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// Validate checks values against the login schema.
func Validate(v Values) ValidationResult {
	res := ValidationResult{}
	if msg := validateEmail(v.Email); msg != "" {
		res[FieldEmail] = msg
	}
	if msg := validatePassword(v.Password); msg != "" {
		res[FieldPassword] = msg
	}
	return res
}

func validateEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return MsgEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	// ParseAddress accepts "Name <a@b>" forms; only a bare address is an email.
	if err != nil || addr.Address != email || addr.Name != "" {
		return MsgEmailInvalid
	}
	if !dottedDomain(email[strings.LastIndexByte(email, '@')+1:]) {
		return MsgEmailInvalid
	}
	return ""
}

// dottedDomain requires at least two non-empty labels. Domain literals
// such as [127.0.0.1] and single-label hosts are rejected.
func dottedDomain(domain string) bool {
	if strings.ContainsAny(domain, "[]") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}

func validatePassword(password string) string {
	n := utf8.RuneCountInString(password)
	switch {
	case n == 0:
		return MsgPasswordRequired
	case n < MinPasswordLen:
		return MsgPasswordShort
	case n > MaxPasswordLen:
		return MsgPasswordLong
	}
	return ""
}
