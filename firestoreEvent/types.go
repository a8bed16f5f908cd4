package firestoreEvent

import (
	"path"
	"time"
)

type UpdateMask struct {
	FieldPaths []string `json:"fieldPaths"`
}

// Event is the payload of a Cloud Firestore trigger whose document fields
// decode into T.
type Event[T any] struct {
	OldValue   Value[T]   `json:"oldValue"`
	Value      Value[T]   `json:"value"`
	UpdateMask UpdateMask `json:"updateMask"`
}

type Value[T any] struct {
	CreateTime time.Time `json:"createTime"`
	Fields     T         `json:"fields"`
	Name       string    `json:"name"`
	UpdateTime time.Time `json:"updateTime"`
}

// DocumentID is the last segment of the document resource name.
func (v Value[T]) DocumentID() string {
	if v.Name == "" {
		return ""
	}
	return path.Base(v.Name)
}

// Updated reports whether field is in the update mask. Nested paths match on
// their last segment.
func (m UpdateMask) Updated(field string) bool {
	for _, fieldPath := range m.FieldPaths {
		if path.Base(fieldPath) == field {
			return true
		}
	}
	return false
}

type StringValue struct {
	Value string `json:"stringValue"`
}

type BoolValue struct {
	Value *bool `json:"booleanValue"`
}

// Or returns the boolean, or def when the field is absent.
func (b BoolValue) Or(def bool) bool {
	if b.Value == nil {
		return def
	}
	return *b.Value
}

type TimestampValue struct {
	Value time.Time `json:"timestampValue"`
}

type ArrayValue struct {
	Value struct {
		Values []StringValue `json:"values"`
	} `json:"arrayValue"`
}

func (a ArrayValue) Strings() []string {
	out := make([]string, 0, len(a.Value.Values))
	for _, v := range a.Value.Values {
		out = append(out, v.Value)
	}
	return out
}
