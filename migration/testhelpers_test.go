package migration

import "testing"

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := DecodeDocument(s)
	if err != nil {
		t.Fatalf("DecodeDocument(%s): %v", s, err)
	}
	return v
}

func mustObject(t *testing.T, s string) *Object {
	t.Helper()
	obj, ok := mustDecode(t, s).(*Object)
	if !ok {
		t.Fatalf("%s is not a JSON object", s)
	}
	return obj
}

func mustEncode(t *testing.T, v any) string {
	t.Helper()
	b, err := EncodeDocument(v)
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	return string(b)
}

// compact re-encodes a JSON text through the document codec so expectations can be written
// on one line.
func compact(t *testing.T, s string) string {
	t.Helper()
	return mustEncode(t, mustDecode(t, s))
}

func objectKeys(obj *Object) []string {
	var out []string
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}
