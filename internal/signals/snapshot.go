package signals

// Snapshot is the page content captured around a target: visible text with
// script and style removed, forms, links, images and scripts.
type Snapshot struct {
	Text    string   `json:"text"`
	Forms   []Form   `json:"forms,omitempty"`
	Links   []string `json:"links,omitempty"`
	Images  []Image  `json:"images,omitempty"`
	Scripts []Script `json:"scripts,omitempty"`
}

// Form is one form element and its inputs.
type Form struct {
	Action string  `json:"action,omitempty"`
	Inputs []Input `json:"inputs"`
}

// Input is an input, textarea or select element.
type Input struct {
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Image is an img element.
type Image struct {
	Src string `json:"src,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Script is a script element, external (Src) or inline (Body).
type Script struct {
	Src  string `json:"src,omitempty"`
	Body string `json:"body,omitempty"`
}

// Label is the text a form input is identified by.
func (in Input) Label() string {
	return in.Name + " " + in.Placeholder + " " + in.ID
}
