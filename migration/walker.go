package migration

import "encoding/json"

// Change records one edit: the reference as found, the alt text written, and the new
// reference when it was rewritten (empty otherwise).
type Change struct {
	OldSrc string
	Alt    string
	NewSrc string
}

// MarshalJSON encodes a change as the triple [old_src, alt, new_src|null].
func (c Change) MarshalJSON() ([]byte, error) {
	var newSrc *string
	if c.NewSrc != "" {
		newSrc = &c.NewSrc
	}
	return json.Marshal([]any{c.OldSrc, c.Alt, newSrc})
}

// UnmarshalJSON accepts the triple produced by MarshalJSON.
func (c *Change) UnmarshalJSON(b []byte) error {
	var raw []*string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*c = Change{}
	for i, p := range raw {
		if p == nil {
			continue
		}
		switch i {
		case 0:
			c.OldSrc = *p
		case 1:
			c.Alt = *p
		case 2:
			c.NewSrc = *p
		}
	}
	return nil
}

// UpdateDocument runs the alt text pass and then the duplicate shape pass over one decoded
// document, mutating it in place. It reports whether anything changed and returns the change
// log in traversal order with duplicates removed.
func UpdateDocument(doc any, m *Mapping, rewrite bool) (bool, []Change) {
	changed, changes := WalkDocument(doc, m, rewrite)
	if PruneDuplicateShapes(doc) {
		changed = true
	}
	return changed, changes
}

// WalkDocument visits every object in doc depth first, resolving and applying alt text (and
// rewrites, when enabled) for each recognized image shape. Children are always visited,
// including the containers of shapes that were just edited.
func WalkDocument(doc any, m *Mapping, rewrite bool) (bool, []Change) {
	w := &walker{mapping: m, rewrite: rewrite}
	w.visit(doc)
	return w.changed, dedupeChanges(w.changes)
}

type walker struct {
	mapping *Mapping
	rewrite bool
	changed bool
	changes []Change
}

func (w *walker) visit(v any) {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return
		}
		w.visitObject(t)
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			w.visit(pair.Value)
		}
	case []any:
		for _, e := range t {
			w.visit(e)
		}
	}
}

func (w *walker) visitObject(node *Object) {
	s := RecognizeShape(node, w.mapping)
	if !s.Found() {
		return
	}
	res, ok := Resolve(s.Ref, w.mapping, w.rewrite)
	if !ok {
		return
	}

	if res.Rewrite {
		if ApplyRewrite(s, res.NewSrc, res.Alt) {
			w.record(Change{OldSrc: s.Ref, Alt: res.Alt, NewSrc: res.NewSrc})
		}
		return
	}
	if ApplyAlt(s, res.Alt) {
		w.record(Change{OldSrc: s.Ref, Alt: res.Alt})
	}
}

func (w *walker) record(c Change) {
	w.changed = true
	w.changes = append(w.changes, c)
}

func dedupeChanges(in []Change) []Change {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[Change]struct{}, len(in))
	out := make([]Change, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
