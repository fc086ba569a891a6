package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyEmail indicates the email is empty
	ErrEmptyEmail = errors.New("email cannot be empty")

	// ErrInvalidFormat indicates the email is not a valid address
	ErrInvalidFormat = errors.New("email format is invalid")

	// ErrDomainNotAllowed indicates the email domain is not accepted for registration
	ErrDomainNotAllowed = errors.New("email domain is not allowed")
)

// emailRegex is a pragmatic address check; full RFC 5322 is overkill here
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// EmailValidator validates addresses and optionally restricts the
// accepted domains (e.g. university domains for student accounts).
type EmailValidator struct {
	allowedDomains []string
}

// NewEmailValidator creates a validator. An empty domain list accepts
// any well-formed address.
func NewEmailValidator(allowedDomains []string) *EmailValidator {
	normalized := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &EmailValidator{allowedDomains: normalized}
}

// Validate checks the address and returns it lowercased and trimmed
func (v *EmailValidator) Validate(email string) (string, error) {
	sanitized := v.Sanitize(email)

	if sanitized == "" {
		return "", ErrEmptyEmail
	}

	if !emailRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if !v.IsAllowedDomain(sanitized) {
		return "", ErrDomainNotAllowed
	}

	return sanitized, nil
}

// ValidateSyntax checks the address format only, skipping the domain
// allow list. Used for accounts the list does not apply to.
func (v *EmailValidator) ValidateSyntax(email string) (string, error) {
	sanitized := v.Sanitize(email)

	if sanitized == "" {
		return "", ErrEmptyEmail
	}

	if !emailRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	return sanitized, nil
}

// Sanitize lowercases and trims an address
func (v *EmailValidator) Sanitize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAllowedDomain checks the domain against the allow list. Subdomains
// of an allowed domain are accepted, so "studenti.unipd.it" passes a
// "unipd.it" rule.
func (v *EmailValidator) IsAllowedDomain(email string) bool {
	if len(v.allowedDomains) == 0 {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]

	for _, allowed := range v.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}

	return false
}

// IsValid is a convenience method that returns true if the email is valid
func (v *EmailValidator) IsValid(email string) bool {
	_, err := v.Validate(email)
	return err == nil
}

// MustValidate validates and panics if invalid (use for testing only)
func (v *EmailValidator) MustValidate(email string) string {
	sanitized, err := v.Validate(email)
	if err != nil {
		panic(fmt.Sprintf("invalid email %s: %v", email, err))
	}
	return sanitized
}
