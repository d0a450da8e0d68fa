package ndn

import "strings"

// Name is an ordered sequence of name components. Names are immutable from
// the caller's perspective: every mutating operation returns a new Name.
type Name struct {
	components []Component
}

// NewName builds a Name from components.
func NewName(components ...Component) Name {
	return Name{components: append([]Component(nil), components...)}
}

// ParseName parses a slash-separated URI-style name such as
// "/Security/ValidatorFixture/KEY/%00/self/%FD%00". Percent-escaped bytes
// are decoded; everything else is treated as a generic component. It does
// not recognize typed-component markers (v=, seg=, ...) and is meant for
// test fixtures and configuration, not wire decoding.
func ParseName(uri string) Name {
	uri = strings.TrimPrefix(uri, "ndn:")
	parts := strings.Split(strings.Trim(uri, "/"), "/")
	n := Name{}
	for _, p := range parts {
		if p == "" {
			continue
		}
		n.components = append(n.components, NewGenericComponent(unescapeComponent(p)))
	}
	return n
}

func unescapeComponent(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi := hexVal(s[i+1])
			lo := hexVal(s[i+2])
			if hi >= 0 && lo >= 0 {
				out = append(out, byte(hi<<4|lo))
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return out
}

func hexVal(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	}
	return -1
}

// Len returns the number of components.
func (n Name) Len() int { return len(n.components) }

// At returns the component at index i; negative i counts from the end, so
// At(-1) is the last component (mirrors ndn-cxx's Name::at).
func (n Name) At(i int) Component {
	if i < 0 {
		i += len(n.components)
	}
	return n.components[i]
}

// Append returns a new Name with c appended.
func (n Name) Append(c Component) Name {
	out := make([]Component, len(n.components)+1)
	copy(out, n.components)
	out[len(n.components)] = c
	return Name{components: out}
}

// AppendName returns a new Name with another name's components appended.
func (n Name) AppendName(o Name) Name {
	out := make([]Component, 0, len(n.components)+len(o.components))
	out = append(out, n.components...)
	out = append(out, o.components...)
	return Name{components: out}
}

// GetPrefix returns the first n components; negative n means "all but the
// last |n| components", matching ndn-cxx's getPrefix(-k).
func (n Name) GetPrefix(count int) Name {
	if count < 0 {
		count = len(n.components) + count
	}
	if count < 0 {
		count = 0
	}
	if count > len(n.components) {
		count = len(n.components)
	}
	out := make([]Component, count)
	copy(out, n.components[:count])
	return Name{components: out}
}

// GetSubName returns components [start, start+count).
func (n Name) GetSubName(start, count int) Name {
	if start < 0 {
		start += len(n.components)
	}
	end := len(n.components)
	if count >= 0 && start+count < end {
		end = start + count
	}
	if start < 0 {
		start = 0
	}
	if start > len(n.components) {
		start = len(n.components)
	}
	if end < start {
		end = start
	}
	out := make([]Component, end-start)
	copy(out, n.components[start:end])
	return Name{components: out}
}

// IsPrefixOf reports whether n is a prefix of (or equal to) other.
func (n Name) IsPrefixOf(other Name) bool {
	if len(n.components) > len(other.components) {
		return false
	}
	for i, c := range n.components {
		if !c.Equal(other.components[i]) {
			return false
		}
	}
	return true
}

// IsStrictPrefixOf reports whether n is a proper prefix of other.
func (n Name) IsStrictPrefixOf(other Name) bool {
	return len(n.components) < len(other.components) && n.IsPrefixOf(other)
}

// Equal reports component-wise equality.
func (n Name) Equal(other Name) bool {
	if len(n.components) != len(other.components) {
		return false
	}
	for i, c := range n.components {
		if !c.Equal(other.components[i]) {
			return false
		}
	}
	return true
}

// Compare implements canonical NDN name ordering: shorter common prefixes
// sort first, then component-by-component comparison.
func (n Name) Compare(other Name) int {
	for i := 0; i < len(n.components) && i < len(other.components); i++ {
		if c := n.components[i].Compare(other.components[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(n.components) < len(other.components):
		return -1
	case len(n.components) > len(other.components):
		return 1
	default:
		return 0
	}
}

// String renders the name as a slash-separated URI.
func (n Name) String() string {
	if len(n.components) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range n.components {
		b.WriteByte('/')
		b.WriteString(c.String())
	}
	return b.String()
}

// Components exposes a defensive copy of the underlying component slice.
func (n Name) Components() []Component {
	return append([]Component(nil), n.components...)
}
