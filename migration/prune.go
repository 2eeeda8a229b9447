package migration

// PruneDuplicateShapes removes the "attrs" object from type "image" nodes whose attrs.src and
// attrs.alt equal the node's own src and alt (an absent field equals an absent field). Nodes
// whose two representations differ are left alone. It must run after WalkDocument, never
// during it.
func PruneDuplicateShapes(v any) bool {
	changed := false
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return false
		}
		if isDuplicateRichImage(t) {
			t.Delete("attrs")
			changed = true
		}
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			if PruneDuplicateShapes(pair.Value) {
				changed = true
			}
		}
	case []any:
		for _, e := range t {
			if PruneDuplicateShapes(e) {
				changed = true
			}
		}
	}
	return changed
}

func isDuplicateRichImage(node *Object) bool {
	if !isImageType(node) || !hasKey(node, "src") {
		return false
	}
	attrs, ok := objectField(node, "attrs")
	if !ok || !hasKey(attrs, "src") {
		return false
	}
	return valuesEqual(fieldOrNil(attrs, "src"), fieldOrNil(node, "src")) &&
		valuesEqual(fieldOrNil(attrs, "alt"), fieldOrNil(node, "alt"))
}

func fieldOrNil(obj *Object, key string) any {
	v, _ := obj.Get(key)
	return v
}
