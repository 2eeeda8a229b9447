package migration

import "strings"

// ShapeKind enumerates the ways a JSON object can carry an image reference.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	// ShapeNestedImage is {"image": {"src": ..., "alt": ...}}.
	ShapeNestedImage
	// ShapeSiblingFields is {"imageSrc": ..., "imageAlt": ...}.
	ShapeSiblingFields
	// ShapeRichAttrs is the rich-text editor node {"type": "image", "attrs": {"src": ..., "alt": ...}}.
	ShapeRichAttrs
	// ShapeTopLevelTyped is {"type": "image", "src": ..., "alt": ...}.
	ShapeTopLevelTyped
	// ShapeBareSrc is {"src": ..., "alt": ...} with no image type marker.
	ShapeBareSrc
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeNone:
		return "none"
	case ShapeNestedImage:
		return "nested-image"
	case ShapeSiblingFields:
		return "sibling-fields"
	case ShapeRichAttrs:
		return "rich-attrs"
	case ShapeTopLevelTyped:
		return "top-level-typed"
	case ShapeBareSrc:
		return "bare-src"
	default:
		return "unknown"
	}
}

// Shape is a recognized image reference: the object holding the reference, the keys of the
// reference and alt fields inside it, and the current reference value.
type Shape struct {
	Kind      ShapeKind
	Container *Object
	SrcKey    string
	AltKey    string
	Ref       string
}

// Found reports whether the node carried a recognized image reference.
func (s Shape) Found() bool {
	return s.Kind != ShapeNone
}

// CurrentAlt returns the alt value currently stored for the shape, or "" when absent or not
// a string.
func (s Shape) CurrentAlt() string {
	if !s.Found() {
		return ""
	}
	v, _ := s.Container.Get(s.AltKey)
	str, _ := v.(string)
	return str
}

// RecognizeShape determines whether node carries an image reference. Rules are tried in a
// fixed order and the first match wins:
//
//  1. image is an object with src
//  2. imageSrc is present
//  3. type is "image" and attrs is an object with src
//  4. type is "image" and src is present
//  5. src is present (any other type) and either looks like an image path or is known to m
//
// Only non-empty string references are accepted.
func RecognizeShape(node *Object, m *Mapping) Shape {
	if node == nil {
		return Shape{}
	}

	if img, ok := objectField(node, "image"); ok && hasKey(img, "src") {
		return newShape(ShapeNestedImage, img, "src", "alt")
	}

	if hasKey(node, "imageSrc") {
		return newShape(ShapeSiblingFields, node, "imageSrc", "imageAlt")
	}

	if isImageType(node) {
		if attrs, ok := objectField(node, "attrs"); ok && hasKey(attrs, "src") {
			return newShape(ShapeRichAttrs, attrs, "src", "alt")
		}
		if hasKey(node, "src") {
			return newShape(ShapeTopLevelTyped, node, "src", "alt")
		}
		return Shape{}
	}

	if hasKey(node, "src") {
		s := newShape(ShapeBareSrc, node, "src", "alt")
		if s.Found() && (IsImagePath(s.Ref) || m.Knows(s.Ref)) {
			return s
		}
	}
	return Shape{}
}

func newShape(kind ShapeKind, container *Object, srcKey, altKey string) Shape {
	v, _ := container.Get(srcKey)
	ref, ok := v.(string)
	if !ok || ref == "" {
		return Shape{}
	}
	return Shape{Kind: kind, Container: container, SrcKey: srcKey, AltKey: altKey, Ref: ref}
}

func objectField(node *Object, key string) (*Object, bool) {
	v, ok := node.Get(key)
	if !ok {
		return nil, false
	}
	obj, ok := v.(*Object)
	return obj, ok && obj != nil
}

func isImageType(node *Object) bool {
	v, _ := node.Get("type")
	s, ok := v.(string)
	return ok && s == "image"
}

// Knows reports whether any index has an entry for ref.
func (m *Mapping) Knows(ref string) bool {
	if m == nil || ref == "" {
		return false
	}
	kRel, kBase, kSlug := lookupKeys(ref)
	if _, ok := m.ByOrigMap[kRel]; ok {
		return true
	}
	if _, ok := m.AltByOrigPath[kRel]; ok {
		return true
	}
	if _, ok := m.AltByOrigBase[kBase]; ok {
		return true
	}
	if _, ok := m.ByRelPath[kRel]; ok {
		return true
	}
	if _, ok := m.ByBasename[kBase]; ok {
		return true
	}
	_, ok := m.BySlug[kSlug]
	return ok
}

func lookupKeys(ref string) (kRel, kBase, kSlug string) {
	kRel = NormalizePath(ref)
	kBase = strings.ToLower(Basename(ref))
	kSlug = ToSlug(kBase)
	return kRel, kBase, kSlug
}

func hasKey(obj *Object, key string) bool {
	_, ok := obj.Get(key)
	return ok
}
