package lists

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const (
	maxDomainLength = 253
	maxLabelLength  = 63
)

var (
	labelRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	tldRegex   = regexp.MustCompile(`^[a-z]{2,}$`)

	lookupProfile = idna.New(idna.MapForLookup(), idna.Transitional(false))
)

// InvalidDomainError is returned when a list pattern fails domain syntax rules.
type InvalidDomainError struct {
	Pattern string
	Reason  string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("invalid domain pattern %q: %s", e.Pattern, e.Reason)
}

// NotFoundError is returned when removing a pattern that is not on the list.
type NotFoundError struct {
	Tag     Tag
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pattern %q not found on %s list", e.Pattern, e.Tag)
}

// ValidateDomain checks a pattern's domain syntax. A leading "*." is
// stripped before the remainder is validated.
func ValidateDomain(pattern string) error {
	_, err := Canonical(pattern)
	return err
}

// Canonical normalizes a pattern, maps internationalized names to ASCII and
// validates the result. It returns the form stored in a Set.
func Canonical(pattern string) (string, error) {
	p := Normalize(pattern)
	wildcard := strings.HasPrefix(p, "*.")
	domain := strings.TrimPrefix(p, "*.")

	if domain == "" {
		return "", &InvalidDomainError{Pattern: pattern, Reason: "empty domain"}
	}

	if !isASCII(domain) {
		ascii, err := lookupProfile.ToASCII(domain)
		if err != nil {
			return "", &InvalidDomainError{Pattern: pattern, Reason: "not a valid internationalized name"}
		}
		domain = ascii
	}

	if reason := domainProblem(domain); reason != "" {
		return "", &InvalidDomainError{Pattern: pattern, Reason: reason}
	}

	if wildcard {
		return "*." + domain, nil
	}
	return domain, nil
}

func domainProblem(domain string) string {
	if len(domain) > maxDomainLength {
		return "longer than 253 characters"
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "must contain at least two labels"
	}
	for _, label := range labels {
		switch {
		case label == "":
			return "empty label"
		case len(label) > maxLabelLength:
			return "label longer than 63 characters"
		case !labelRegex.MatchString(label):
			return fmt.Sprintf("label %q must be alphanumeric with internal hyphens only", label)
		}
	}
	if !tldRegex.MatchString(labels[len(labels)-1]) {
		return "top-level label must be alphabetic and at least 2 characters"
	}
	return ""
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
