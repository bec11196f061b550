package catalog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Compiles(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultVersion, c.Version)

	for _, name := range []string{
		InsecureTransport, RegionalTerminology, ScholarshipScams, UrgencyPressure,
		MoneyTransfer, SensitiveDataRequest, SuspiciousTLD, URLShortener, Phishing,
		KnownScamHost,
	} {
		cat := c.Category(name)
		assert.Positive(t, cat.Weight, name)
	}

	regional := c.Category(RegionalTerminology)
	assert.Equal(t, MoneyTransfer, regional.EscalateWith)
	assert.Greater(t, regional.EscalatedWeight, regional.Weight)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"zero weight", Definition{Categories: []CategoryDef{{Name: "a", Weight: 0}}}},
		{"negative weight", Definition{Categories: []CategoryDef{{Name: "a", Weight: -1}}}},
		{"bad regex", Definition{Categories: []CategoryDef{{Name: "a", Weight: 1, Patterns: []string{"(unclosed"}}}}},
		{"missing name", Definition{Categories: []CategoryDef{{Weight: 1}}}},
		{"duplicate", Definition{Categories: []CategoryDef{{Name: "a", Weight: 1}, {Name: "a", Weight: 2}}}},
		{"unknown escalation", Definition{Categories: []CategoryDef{{Name: "a", Weight: 1, EscalateWith: "b", EscalatedWeight: 2}}}},
		{"escalation below base", Definition{Categories: []CategoryDef{{Name: "a", Weight: 3, EscalatedWeight: 1}}}},
		{"punctuation keyword", Definition{Categories: []CategoryDef{{Name: "a", Weight: 1, Keywords: []string{"..."}}}}},
		{"negative structural weight", Definition{Weights: Weights{Punycode: -2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(Definition{Categories: []CategoryDef{{Name: "a"}}})
	})
}

func TestCategory_UnknownNeverMatches(t *testing.T) {
	cat := Default().Category("does-not-exist")
	assert.Zero(t, cat.Weight)
	assert.Empty(t, cat.Match(Prepare("anything at all")))
}

func TestPrepare(t *testing.T) {
	tests := []struct {
		in        string
		wantRaw   string
		wantWords string
	}{
		{"Free-Scholarship", "free-scholarship", "free scholarship"},
		{"bank_account", "bank_account", "bank account"},
		{"cardNumber", "cardnumber", "card number"},
		{"  send   MONEY!! ", "  send   money!! ", "send money"},
		{"ＦＲＥＥ scholarship", "free scholarship", "free scholarship"},
		{"Mother's maiden name", "mother's maiden name", "mothers maiden name"},
		{"", "", ""},
	}
	for _, tt := range tests {
		got := Prepare(tt.in)
		assert.Equal(t, tt.wantRaw, got.Raw, tt.in)
		assert.Equal(t, tt.wantWords, got.Words, tt.in)
	}
}

func TestMatch_WordBoundaries(t *testing.T) {
	c := MustCompile(Definition{Categories: []CategoryDef{
		{Name: "p", Weight: 1, Phrase: true, Keywords: []string{"pin", "send money"}},
	}})
	cat := c.Category("p")

	assert.Empty(t, cat.Match(Prepare("spinning shipping")))
	assert.Equal(t, []string{"pin"}, cat.Match(Prepare("enter your PIN")))
	assert.Equal(t, []string{"send money"}, cat.Match(Prepare("please send-money now")))
}

func TestMatch_DistinctAcrossTexts(t *testing.T) {
	cat := Default().Category(ScholarshipScams)

	got := cat.Match(
		Prepare("free scholarship free scholarship"),
		Prepare("http://free-scholarship.example/apply"),
	)
	assert.Equal(t, []string{"free scholarship"}, got)
}

func TestMatch_Patterns(t *testing.T) {
	cat := Default().Category(Phishing)
	got := cat.Match(Prepare("https://x.example/login/please-verify/account"))
	assert.Contains(t, got, `login.*verify.*account`)
}

func TestHostMatch_LabelAligned(t *testing.T) {
	cat := Default().Category(URLShortener)

	kw, ok := cat.HostMatch("bit.ly")
	assert.True(t, ok)
	assert.Equal(t, "bit.ly", kw)

	_, ok = cat.HostMatch("www.t.co")
	assert.True(t, ok)

	_, ok = cat.HostMatch("microsoft.com")
	assert.False(t, ok)
}

func TestSuffixAndContains(t *testing.T) {
	c := Default()

	kw, ok := c.Category(SuspiciousTLD).SuffixMatch("prize.tk")
	assert.True(t, ok)
	assert.Equal(t, ".tk", kw)
	_, ok = c.Category(SuspiciousTLD).SuffixMatch("tk.example.com")
	assert.False(t, ok)

	_, ok = c.Category(SuspiciousScriptHost).Contains("https://cdn.scamhost.net/x.js")
	assert.True(t, ok)
}

func TestHolder_Swap(t *testing.T) {
	h := NewHolder(nil)
	first := h.Load()
	require.NotNil(t, first)

	next := MustCompile(Definition{Version: "v2"})
	prev := h.Swap(next)
	assert.Same(t, first, prev)
	assert.Equal(t, "v2", h.Load().Version)

	assert.Same(t, next, h.Swap(nil))
	assert.Same(t, next, h.Load())
}

func TestHolder_ConcurrentReadersSeeWholeCatalogs(t *testing.T) {
	h := NewHolder(MustCompile(Definition{Version: "a", Categories: []CategoryDef{{Name: "x", Weight: 1}}}))
	b := MustCompile(Definition{Version: "b", Categories: []CategoryDef{{Name: "x", Weight: 2}}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c := h.Load()
				w := c.Category("x").Weight
				if c.Version == "a" {
					assert.Equal(t, 1, w)
				} else {
					assert.Equal(t, 2, w)
				}
			}
		}()
	}
	h.Swap(b)
	wg.Wait()
}
