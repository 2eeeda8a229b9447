package migration

// ApplyAlt writes alt into the alt field of the recognized shape. It only touches the
// shape's own container, so an "attrs" or "image" object is never created. It returns false
// when the field already held alt.
func ApplyAlt(s Shape, alt string) bool {
	if !s.Found() {
		return false
	}
	return setString(s.Container, s.AltKey, alt)
}

// ApplyRewrite replaces the reference with newSrc and sets alt, in the recognized shape
// only. It returns true if either value changed.
func ApplyRewrite(s Shape, newSrc, alt string) bool {
	if !s.Found() {
		return false
	}
	srcChanged := setString(s.Container, s.SrcKey, newSrc)
	altChanged := setString(s.Container, s.AltKey, alt)
	return srcChanged || altChanged
}

func setString(obj *Object, key, val string) bool {
	if cur, ok := obj.Get(key); ok {
		if s, isStr := cur.(string); isStr && s == val {
			return false
		}
	}
	obj.Set(key, val)
	return true
}
