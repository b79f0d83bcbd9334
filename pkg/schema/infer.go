package schema

import (
	"sort"
)

// Infer derives a field-to-type map from rows. Fields missing from some rows
// are still included. A field whose values disagree becomes a union of the
// observed kinds in first-seen order, except that integers and floats widen
// to number and nulls are dropped when any other kind is present.
func Infer(rows []map[string]any) map[string]InferredType {
	if len(rows) == 0 {
		return nil
	}

	values := make(map[string][]any)
	for _, row := range rows {
		for k, v := range row {
			values[k] = append(values[k], v)
		}
	}

	out := make(map[string]InferredType, len(values))
	for name, vs := range values {
		out[name] = InferValues(vs)
	}
	return out
}

// InferValues infers one type for a set of sample values.
func InferValues(values []any) InferredType {
	if len(values) == 0 {
		return InferredType{Kind: KindUnknown}
	}
	var acc *InferredType
	for _, v := range values {
		t := TypeOf(v)
		if acc == nil {
			acc = &t
			continue
		}
		merged := merge(*acc, t)
		acc = &merged
	}
	return *acc
}

// TypeOf returns the type of a single decoded value.
func TypeOf(value any) InferredType {
	switch v := value.(type) {
	case nil:
		return Null()
	case bool:
		return Boolean()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Integer()
	case float32, float64:
		return Float()
	case string:
		return String()
	case []any:
		return Array(InferValues(v))
	case map[string]any:
		fields := make(map[string]InferredType, len(v))
		for k, fv := range v {
			fields[k] = TypeOf(fv)
		}
		return Object(fields)
	default:
		return InferredType{Kind: KindUnknown}
	}
}

func merge(a, b InferredType) InferredType {
	switch {
	case a.Equal(b):
		return a
	case a.Kind == KindNull || a.Kind == KindUnknown:
		return b
	case b.Kind == KindNull || b.Kind == KindUnknown:
		return a
	case isNumeric(a.Kind) && isNumeric(b.Kind):
		return Number()
	case a.Kind == KindObject && b.Kind == KindObject:
		return Object(mergeFields(a.Fields, b.Fields))
	case a.Kind == KindArray && b.Kind == KindArray:
		return Array(merge(elemOf(a), elemOf(b)))
	}

	members := flatten(a)
	for _, m := range flatten(b) {
		members = addMember(members, m)
	}
	if len(members) == 1 {
		return members[0]
	}
	return Union(members...)
}

func isNumeric(k Kind) bool {
	return k == KindInteger || k == KindFloat || k == KindNumber
}

func elemOf(t InferredType) InferredType {
	if t.Elem == nil {
		return InferredType{Kind: KindUnknown}
	}
	return *t.Elem
}

func mergeFields(a, b map[string]InferredType) map[string]InferredType {
	out := make(map[string]InferredType, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if existing, ok := out[k]; ok {
			out[k] = merge(existing, b[k])
		} else {
			out[k] = b[k]
		}
	}
	return out
}

func flatten(t InferredType) []InferredType {
	if t.Kind == KindUnion {
		return append([]InferredType(nil), t.Members...)
	}
	return []InferredType{t}
}

func addMember(members []InferredType, t InferredType) []InferredType {
	for i, m := range members {
		if m.Equal(t) || m.Kind == t.Kind && (t.Kind == KindObject || t.Kind == KindArray) {
			members[i] = merge(m, t)
			return members
		}
		if isNumeric(m.Kind) && isNumeric(t.Kind) {
			members[i] = Number()
			return members
		}
	}
	if t.Kind == KindNull {
		return members
	}
	return append(members, t)
}
