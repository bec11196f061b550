// Package signals turns a URL and an optional page snapshot into weighted
// risk Issues. Each Extractor looks at one aspect of the target and knows
// nothing about the others.
package signals

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// MalformedTargetError reports a URL that cannot be scanned.
type MalformedTargetError struct {
	Raw    string
	Reason string
}

func (e *MalformedTargetError) Error() string {
	return fmt.Sprintf("malformed target %q: %s", e.Raw, e.Reason)
}

// Target is a parsed, immutable scan subject.
type Target struct {
	Raw    string
	Scheme string
	// Host is the lower-cased ASCII hostname; unicode names are converted to
	// their xn-- form.
	Host string
	// Port is the explicit port, or 0 when the URL has none.
	Port     int
	Path     string
	RawQuery string
	// Key identifies the target in the scan cache. Fragments and userinfo
	// are dropped, default ports are omitted.
	Key string
}

var hostProfile = idna.New(idna.MapForLookup(), idna.Transitional(false))

// ParseTarget parses raw into a Target.
func ParseTarget(raw string) (Target, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Target{}, &MalformedTargetError{Raw: raw, Reason: "empty URL"}
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, &MalformedTargetError{Raw: raw, Reason: err.Error()}
	}
	if u.Scheme == "" {
		return Target{}, &MalformedTargetError{Raw: raw, Reason: "missing scheme"}
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return Target{}, &MalformedTargetError{Raw: raw, Reason: "missing host"}
	}
	if !isASCII(host) {
		ascii, err := hostProfile.ToASCII(host)
		if err != nil {
			return Target{}, &MalformedTargetError{Raw: raw, Reason: "invalid internationalized host: " + err.Error()}
		}
		host = ascii
	}

	t := Target{
		Raw:      s,
		Scheme:   strings.ToLower(u.Scheme),
		Host:     host,
		Path:     u.EscapedPath(),
		RawQuery: u.RawQuery,
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return Target{}, &MalformedTargetError{Raw: raw, Reason: "invalid port " + p}
		}
		t.Port = port
	}

	t.Key = t.cacheKey()
	return t, nil
}

func (t Target) cacheKey() string {
	var b strings.Builder
	b.WriteString(t.Scheme)
	b.WriteString("://")
	if strings.Contains(t.Host, ":") {
		b.WriteString("[" + t.Host + "]")
	} else {
		b.WriteString(t.Host)
	}
	if t.Port != 0 && !isDefaultPort(t.Scheme, t.Port) {
		b.WriteString(":" + strconv.Itoa(t.Port))
	}
	if t.Path == "" {
		b.WriteString("/")
	} else {
		b.WriteString(t.Path)
	}
	if t.RawQuery != "" {
		b.WriteString("?" + t.RawQuery)
	}
	return b.String()
}

// Labels returns the dot-separated labels of the host.
func (t Target) Labels() []string {
	return strings.Split(t.Host, ".")
}

func isDefaultPort(scheme string, port int) bool {
	return (scheme == "http" && port == 80) || (scheme == "https" && port == 443)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
