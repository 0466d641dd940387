package relation

import (
	"fmt"
	"strings"
)

// Key layout (relative to Config.Root, default "/relation"):
//
//	{root}/from/{model}/{attr}/{from}/{id}     → Edge (forward index, ordered by id)
//	{root}/from_to/{model}/{attr}/{from}/{to}  → Edge (lookup index)
//	{root}/count/{model}/{attr}/{from}         → {"count": n}
//
// Every segment is separator-free, so a scan over ForwardPrefix visits exactly
// one node's edges.

const sep = "/"

// Scheme renders the keys of one (model, attr) relation.
type Scheme struct {
	root  string
	model string
}

// NewScheme returns the key scheme for relations owned by model.
func NewScheme(root, model string) Scheme {
	return Scheme{root: strings.TrimSuffix(root, sep), model: model}
}

// Forward returns the forward key of edge id.
func (s Scheme) Forward(attr, from, id string) string {
	return s.ForwardPrefix(attr, from) + id
}

// ForwardPrefix returns the prefix shared by every forward key of from.
func (s Scheme) ForwardPrefix(attr, from string) string {
	return s.root + "/from/" + s.model + sep + attr + sep + from + sep
}

// Lookup returns the lookup key of the (from, to) pair.
func (s Scheme) Lookup(attr, from, to string) string {
	return s.root + "/from_to/" + s.model + sep + attr + sep + from + sep + to
}

// Count returns the count key of from. It depends on (attr, from) only.
func (s Scheme) Count(attr, from string) string {
	return s.root + "/count/" + s.model + sep + attr + sep + from
}

// LookupKey is a parsed lookup key.
type LookupKey struct {
	Model string
	Attr  string
	From  string
	To    string
}

// ParseLookupKey parses a key produced by Scheme.Lookup under root.
func ParseLookupKey(root, key string) (LookupKey, bool) {
	prefix := strings.TrimSuffix(root, sep) + "/from_to/"
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return LookupKey{}, false
	}
	parts := strings.Split(rest, sep)
	if len(parts) != 4 {
		return LookupKey{}, false
	}
	for _, p := range parts {
		if p == "" {
			return LookupKey{}, false
		}
	}
	return LookupKey{Model: parts[0], Attr: parts[1], From: parts[2], To: parts[3]}, true
}

// validateSegments checks that every segment is non-empty and separator-free.
func validateSegments(segs ...string) error {
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("%w: empty", ErrInvalidSegment)
		}
		if strings.Contains(s, sep) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidSegment, s, sep)
		}
	}
	return nil
}
