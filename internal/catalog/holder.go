package catalog

import "sync/atomic"

// Holder publishes the current catalog. Readers take one pointer per scan
// and keep using it even if a newer catalog is stored meanwhile.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a holder serving c, or the built-in catalog if c is nil.
func NewHolder(c *Catalog) *Holder {
	if c == nil {
		c = Default()
	}
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Load returns the current catalog.
func (h *Holder) Load() *Catalog {
	return h.current.Load()
}

// Swap installs c and returns the previous catalog. A nil c is ignored.
func (h *Holder) Swap(c *Catalog) *Catalog {
	if c == nil {
		return h.current.Load()
	}
	return h.current.Swap(c)
}
