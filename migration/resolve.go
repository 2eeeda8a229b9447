package migration

// MatchKind names the index that produced a resolution.
type MatchKind string

const (
	MatchOrigRewrite MatchKind = "orig-rewrite"
	MatchOrigPath    MatchKind = "orig-path"
	MatchOrigBase    MatchKind = "orig-basename"
	MatchRelPath     MatchKind = "rel-path"
	MatchBasename    MatchKind = "basename"
	MatchSlug        MatchKind = "slug"
)

// Resolution is the edit to apply to an image reference.
type Resolution struct {
	Alt string
	// NewSrc is set only when Rewrite is true.
	NewSrc    string
	Rewrite   bool
	MatchedBy MatchKind
}

// Resolve finds the alt text (and, when rewrite is enabled, the replacement reference) for
// ref. Original-link entries from three column rows outrank the general indices, and exact
// path beats basename beats slug.
func Resolve(ref string, m *Mapping, rewrite bool) (Resolution, bool) {
	if ref == "" || m == nil {
		return Resolution{}, false
	}
	kRel, kBase, kSlug := lookupKeys(ref)

	if rewrite {
		if rw, ok := m.ByOrigMap[kRel]; ok {
			return Resolution{Alt: rw.Alt, NewSrc: rw.NewSrc, Rewrite: true, MatchedBy: MatchOrigRewrite}, true
		}
	}

	lookups := []struct {
		index map[string]string
		key   string
		kind  MatchKind
	}{
		{m.AltByOrigPath, kRel, MatchOrigPath},
		{m.AltByOrigBase, kBase, MatchOrigBase},
		{m.ByRelPath, kRel, MatchRelPath},
		{m.ByBasename, kBase, MatchBasename},
		{m.BySlug, kSlug, MatchSlug},
	}
	for _, l := range lookups {
		if alt, ok := l.index[l.key]; ok && alt != "" {
			return Resolution{Alt: alt, MatchedBy: l.kind}, true
		}
	}
	return Resolution{}, false
}
