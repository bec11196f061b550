// Package catalog holds the weighted keyword and regex definitions that the
// signal extractors match against URLs and page content.
//
// A Catalog is immutable once compiled. Updates build a new Catalog and swap
// it into a Holder in one step, so a scan always sees a single version.
package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Category names referenced directly by extractors.
const (
	InsecureTransport    = "insecure-transport"
	RegionalTerminology  = "regional-scam-terminology"
	ScholarshipScams     = "scholarship-scams"
	FinancialFraud       = "financial-fraud"
	InvestmentScams      = "investment-scams"
	WorkScams            = "work-scams"
	UrgencyPressure      = "urgency-pressure"
	MoneyTransfer        = "money-transfer"
	Phishing             = "phishing"
	SensitiveDataRequest = "sensitive-data-request"
	FinancialInstrument  = "financial-instrument"
	SuspiciousTLD        = "suspicious-tld"
	URLShortener         = "url-shortener"
	SuspiciousScriptHost = "suspicious-script-host"
	DownloadExtension    = "download-extension"
	OfficialImagery      = "official-imagery"
	DeceptiveImagery     = "deceptive-imagery"
	KnownScamHost        = "known-scam-host"
)

// Weights are the fixed weights of structural signals that have no term list.
type Weights struct {
	ExcessiveSubdomains int `json:"excessiveSubdomains"`
	NonStandardPort     int `json:"nonStandardPort"`
	Punycode            int `json:"punycode"`
	SuspiciousLinks     int `json:"suspiciousLinks"`
	Obfuscation         int `json:"obfuscation"`
	RecentlyRegistered  int `json:"recentlyRegistered"`
	SensitiveForm       int `json:"sensitiveForm"`
}

// CategoryDef is the serialisable form of a category.
type CategoryDef struct {
	Name            string   `json:"name"`
	Weight          int      `json:"weight"`
	Phrase          bool     `json:"phrase,omitempty"`
	EscalateWith    string   `json:"escalateWith,omitempty"`
	EscalatedWeight int      `json:"escalatedWeight,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Patterns        []string `json:"patterns,omitempty"`
}

// Definition is the serialisable form of a whole catalog.
type Definition struct {
	Version    string        `json:"version"`
	Weights    Weights       `json:"weights"`
	Categories []CategoryDef `json:"categories"`
}

// Category is a compiled, read-only category.
type Category struct {
	Name            string
	Weight          int
	Phrase          bool
	EscalateWith    string
	EscalatedWeight int
	Keywords        []string

	keywordWords []string
	patterns     []*regexp.Regexp
}

// Catalog is a compiled, read-only set of categories.
type Catalog struct {
	Version string
	Weights Weights

	def        Definition
	categories map[string]*Category
	phrases    []*Category
}

// Compile validates a definition and builds a Catalog from it.
func Compile(def Definition) (*Catalog, error) {
	if err := def.Weights.validate(); err != nil {
		return nil, err
	}

	c := &Catalog{
		Version:    def.Version,
		Weights:    def.Weights,
		def:        def,
		categories: make(map[string]*Category, len(def.Categories)),
	}

	for _, cd := range def.Categories {
		cat, err := compileCategory(cd)
		if err != nil {
			return nil, err
		}
		if _, dup := c.categories[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		c.categories[cat.Name] = cat
		if cat.Phrase {
			c.phrases = append(c.phrases, cat)
		}
	}

	for _, cat := range c.categories {
		if cat.EscalateWith != "" {
			if _, ok := c.categories[cat.EscalateWith]; !ok {
				return nil, fmt.Errorf("category %q escalates with unknown category %q", cat.Name, cat.EscalateWith)
			}
		}
	}
	return c, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(def Definition) *Catalog {
	c, err := Compile(def)
	if err != nil {
		panic("catalog: " + err.Error())
	}
	return c
}

func compileCategory(cd CategoryDef) (*Category, error) {
	name := strings.TrimSpace(cd.Name)
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if cd.Weight <= 0 {
		return nil, fmt.Errorf("category %q: weight must be positive, got %d", name, cd.Weight)
	}
	if cd.EscalatedWeight != 0 && cd.EscalatedWeight < cd.Weight {
		return nil, fmt.Errorf("category %q: escalated weight %d below base weight %d", name, cd.EscalatedWeight, cd.Weight)
	}

	cat := &Category{
		Name:            name,
		Weight:          cd.Weight,
		Phrase:          cd.Phrase,
		EscalateWith:    cd.EscalateWith,
		EscalatedWeight: cd.EscalatedWeight,
	}

	for _, kw := range cd.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		w := Prepare(kw).Words
		if w == "" {
			return nil, fmt.Errorf("category %q: keyword %q has no letters or digits", name, kw)
		}
		cat.Keywords = append(cat.Keywords, kw)
		cat.keywordWords = append(cat.keywordWords, w)
	}

	for _, p := range cd.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("category %q: invalid pattern %q: %w", name, p, err)
		}
		cat.patterns = append(cat.patterns, re)
	}
	return cat, nil
}

func (w Weights) validate() error {
	for name, v := range map[string]int{
		"excessiveSubdomains": w.ExcessiveSubdomains,
		"nonStandardPort":     w.NonStandardPort,
		"punycode":            w.Punycode,
		"suspiciousLinks":     w.SuspiciousLinks,
		"obfuscation":         w.Obfuscation,
		"recentlyRegistered":  w.RecentlyRegistered,
		"sensitiveForm":       w.SensitiveForm,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// Category returns the named category. Unknown names yield an empty
// category that never matches.
func (c *Catalog) Category(name string) *Category {
	if cat, ok := c.categories[name]; ok {
		return cat
	}
	return &Category{Name: name}
}

// Phrases returns the categories matched against URL and page text, in
// definition order.
func (c *Catalog) Phrases() []*Category {
	return c.phrases
}

// Definition returns the definition the catalog was compiled from.
func (c *Catalog) Definition() Definition {
	return c.def
}

// Match returns each distinct keyword or pattern of the category found in
// any of the texts, in definition order.
func (cat *Category) Match(texts ...Text) []string {
	var out []string
	for i, kw := range cat.keywordWords {
		for _, t := range texts {
			if t.containsWords(kw) {
				out = append(out, cat.Keywords[i])
				break
			}
		}
	}
	for _, re := range cat.patterns {
		for _, t := range texts {
			if re.MatchString(t.Raw) {
				out = append(out, re.String())
				break
			}
		}
	}
	return out
}

// HostMatch reports the first keyword equal to host or a parent domain of it.
func (cat *Category) HostMatch(host string) (string, bool) {
	for _, kw := range cat.Keywords {
		if host == kw || strings.HasSuffix(host, "."+kw) {
			return kw, true
		}
	}
	return "", false
}

// SuffixMatch reports the first keyword that s ends with.
func (cat *Category) SuffixMatch(s string) (string, bool) {
	for _, kw := range cat.Keywords {
		if strings.HasSuffix(s, kw) {
			return kw, true
		}
	}
	return "", false
}

// Contains reports the first keyword occurring as a substring of s.
func (cat *Category) Contains(s string) (string, bool) {
	for _, kw := range cat.Keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}
