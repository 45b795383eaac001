package domain

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"time"
)

// UnmarshalJSON decodes a preference record field by field. A text or list
// field of the wrong JSON type degrades to its closest reading (or empty)
// instead of failing the record.
func (p *PreferenceRecord) UnmarshalJSON(b []byte) error {
	type plain PreferenceRecord
	var out plain
	if err := decodeLenient(b, &out); err != nil {
		return err
	}
	*p = PreferenceRecord(out)
	return nil
}

// UnmarshalJSON decodes a listing with the same field-level tolerance as
// PreferenceRecord.
func (p *Property) UnmarshalJSON(b []byte) error {
	type plain Property
	var out plain
	if err := decodeLenient(b, &out); err != nil {
		return err
	}
	*p = Property(out)
	return nil
}

// DecodeProperties decodes each raw listing on its own. Entries that are not
// JSON objects are skipped and counted.
func DecodeProperties(raw []json.RawMessage) ([]Property, int) {
	props := make([]Property, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var p Property
		if err := json.Unmarshal(r, &p); err != nil || isNull(r) {
			skipped++
			continue
		}
		props = append(props, p)
	}
	return props, skipped
}

type fieldKind int

const (
	kindOther fieldKind = iota
	kindText
	kindTags
	kindTime
)

var timeType = reflect.TypeOf(time.Time{})

// decodeLenient coerces the string, []string and time.Time fields of the
// struct dst points at before the regular decode. The document itself must
// still be a JSON object (or null).
func decodeLenient(b []byte, dst any) error {
	if isNull(b) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	kinds := fieldKinds(reflect.TypeOf(dst).Elem())
	for k, v := range raw {
		switch kinds[strings.ToLower(k)] {
		case kindText:
			raw[k] = coerceText(v)
		case kindTags:
			raw[k] = coerceTags(v)
		case kindTime:
			var t time.Time
			if json.Unmarshal(v, &t) != nil {
				delete(raw, k)
			}
		}
	}

	fixed, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(fixed, dst)
}

func fieldKinds(t reflect.Type) map[string]fieldKind {
	kinds := make(map[string]fieldKind, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		var k fieldKind
		switch {
		case f.Type == timeType:
			k = kindTime
		case f.Type.Kind() == reflect.String:
			k = kindText
		case f.Type.Kind() == reflect.Slice && f.Type.Elem().Kind() == reflect.String:
			k = kindTags
		default:
			continue
		}
		kinds[strings.ToLower(name)] = k
	}
	return kinds
}

// scalarText reads a JSON string, number or bool as text.
func scalarText(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 {
		return "", false
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return "", false
		}
		if b {
			return "true", true
		}
		return "false", true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

func coerceText(v json.RawMessage) json.RawMessage {
	if isNull(v) {
		return v
	}
	s, _ := scalarText(v)
	return mustMarshal(s)
}

// coerceTags turns a scalar into a one-element list and drops list entries
// that are not scalars. Anything else becomes an empty list.
func coerceTags(v json.RawMessage) json.RawMessage {
	if isNull(v) {
		return v
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		items = []json.RawMessage{v}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := scalarText(it); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return mustMarshal(out)
}

func isNull(v []byte) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
