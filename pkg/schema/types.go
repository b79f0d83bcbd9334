// Package schema describes the inferred shape of tabular source data and turns
// it into CREATE TABLE statements for the relational destinations.
package schema

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the discriminator of an InferredType.
type Kind int

const (
	KindUnknown Kind = iota
	KindString
	KindInteger
	KindFloat
	KindNumber
	KindBoolean
	KindNull
	KindArray
	KindObject
	KindUnion
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindString:  "string",
	KindInteger: "integer",
	KindFloat:   "float",
	KindNumber:  "number",
	KindBoolean: "boolean",
	KindNull:    "null",
	KindArray:   "array",
	KindObject:  "object",
	KindUnion:   "union",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// InferredType is the inferred type of one field. Elem is set for arrays,
// Fields for objects and Members for unions.
type InferredType struct {
	Kind    Kind
	Elem    *InferredType
	Fields  map[string]InferredType
	Members []InferredType
}

func String() InferredType  { return InferredType{Kind: KindString} }
func Integer() InferredType { return InferredType{Kind: KindInteger} }
func Float() InferredType   { return InferredType{Kind: KindFloat} }
func Number() InferredType  { return InferredType{Kind: KindNumber} }
func Boolean() InferredType { return InferredType{Kind: KindBoolean} }
func Null() InferredType    { return InferredType{Kind: KindNull} }

// Array returns an array type with the given element type.
func Array(elem InferredType) InferredType {
	return InferredType{Kind: KindArray, Elem: &elem}
}

// Object returns an object type with the given fields.
func Object(fields map[string]InferredType) InferredType {
	return InferredType{Kind: KindObject, Fields: fields}
}

// Union returns a union of the given members in order.
func Union(members ...InferredType) InferredType {
	return InferredType{Kind: KindUnion, Members: members}
}

// String renders the type in a compact, stable form such as "array<integer>".
func (t InferredType) String() string {
	switch t.Kind {
	case KindArray:
		if t.Elem == nil {
			return "array<unknown>"
		}
		return "array<" + t.Elem.String() + ">"
	case KindObject:
		names := make([]string, 0, len(t.Fields))
		for name := range t.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + ":" + t.Fields[name].String()
		}
		return "object{" + strings.Join(parts, ",") + "}"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return strings.Join(parts, "|")
	default:
		return t.Kind.String()
	}
}

// Equal reports structural equality.
func (t InferredType) Equal(o InferredType) bool {
	return t.String() == o.String()
}

type typeJSON struct {
	Type    string                  `json:"type"`
	Items   *InferredType           `json:"items,omitempty"`
	Fields  map[string]InferredType `json:"fields,omitempty"`
	Members []InferredType          `json:"members,omitempty"`
}

// MarshalJSON encodes the type as {"type": "...", ...} for unit envelopes.
func (t InferredType) MarshalJSON() ([]byte, error) {
	return json.Marshal(typeJSON{
		Type:    t.Kind.String(),
		Items:   t.Elem,
		Fields:  t.Fields,
		Members: t.Members,
	})
}
