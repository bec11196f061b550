// Package inspect turns an HTML document into a signals.Snapshot.
package inspect

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/mbd888/fountainscan/internal/signals"
)

// MaxDocumentBytes bounds how much of a document is parsed.
const MaxDocumentBytes = 5 << 20

const maxLinks = 10000

type walker struct {
	base *url.URL
	snap *signals.Snapshot
	text strings.Builder

	form    *signals.Form
	orphans []signals.Input
}

// Inspect parses r and collects the page content the signal extractors
// look at. Relative link, image and script URLs are resolved against
// baseURL. Inputs outside any form are reported as one extra form with no
// action.
func Inspect(r io.Reader, baseURL string) (*signals.Snapshot, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	doc, err := html.Parse(io.LimitReader(r, MaxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	w := &walker{base: base, snap: &signals.Snapshot{}}
	w.traverse(doc)

	if len(w.orphans) > 0 {
		w.snap.Forms = append(w.snap.Forms, signals.Form{Inputs: w.orphans})
	}
	w.snap.Text = strings.Join(strings.Fields(w.text.String()), " ")
	return w.snap, nil
}

func (w *walker) traverse(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text.WriteString(n.Data)
		w.text.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.Data {
		case "style", "noscript", "template":
			return
		case "script":
			w.script(n)
			return
		case "form":
			w.formNode(n)
			return
		case "input", "textarea", "select":
			w.input(n)
		case "a":
			w.link(n)
		case "img":
			w.image(n)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.traverse(c)
	}
}

func (w *walker) formNode(n *html.Node) {
	prev := w.form
	f := &signals.Form{Inputs: []signals.Input{}}
	if action := attr(n, "action"); action != "" {
		f.Action = w.resolve(action)
	}
	w.form = f
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.traverse(c)
	}
	w.form = prev
	w.snap.Forms = append(w.snap.Forms, *f)
}

func (w *walker) input(n *html.Node) {
	typ := strings.ToLower(attr(n, "type"))
	if n.Data != "input" {
		typ = n.Data
	}
	switch typ {
	case "hidden", "submit", "button", "reset", "image":
		return
	}

	in := signals.Input{
		Name:        attr(n, "name"),
		ID:          attr(n, "id"),
		Placeholder: attr(n, "placeholder"),
		Type:        typ,
	}
	if w.form != nil {
		w.form.Inputs = append(w.form.Inputs, in)
		return
	}
	w.orphans = append(w.orphans, in)
}

func (w *walker) link(n *html.Node) {
	if len(w.snap.Links) >= maxLinks {
		return
	}
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return
	}
	w.snap.Links = append(w.snap.Links, w.resolve(href))
}

func (w *walker) image(n *html.Node) {
	src := attr(n, "src")
	if src != "" {
		src = w.resolve(src)
	}
	w.snap.Images = append(w.snap.Images, signals.Image{Src: src, Alt: attr(n, "alt")})
}

func (w *walker) script(n *html.Node) {
	s := signals.Script{}
	if src := attr(n, "src"); src != "" {
		s.Src = w.resolve(src)
	}
	var body strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			body.WriteString(c.Data)
		}
	}
	s.Body = body.String()
	if s.Src == "" && strings.TrimSpace(s.Body) == "" {
		return
	}
	w.snap.Scripts = append(w.snap.Scripts, s)
}

// resolve makes ref absolute; unparsable references are kept verbatim.
func (w *walker) resolve(ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return w.base.ResolveReference(u).String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
