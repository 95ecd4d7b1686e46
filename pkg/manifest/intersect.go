package manifest

// Intersect computes the expression accepted by both operands. The result
// is absent when the operands share no concrete value. List results keep
// the order of the first list operand.
func Intersect(a, b Expression) Expression {
	if a.IsAbsent() || b.IsAbsent() {
		return Expression{}
	}

	switch {
	case a.kind == KindRange && b.kind == KindRange:
		return intersectRanges(a, b)
	case a.kind == KindRange && b.kind == KindList:
		return intersectRangeList(a, b)
	case a.kind == KindList && b.kind == KindRange:
		return intersectRangeList(b, a)
	case a.kind == KindRange && b.kind == KindValue:
		return intersectContains(a, b.value)
	case a.kind == KindValue && b.kind == KindRange:
		return intersectContains(b, a.value)
	case a.kind == KindList && b.kind == KindList:
		return intersectLists(a, b)
	case a.kind == KindList && b.kind == KindValue:
		return intersectContains(a, b.value)
	case a.kind == KindValue && b.kind == KindList:
		return intersectContains(b, a.value)
	case a.kind == KindValue && b.kind == KindValue:
		if scalarEqual(a.value, b.value) {
			return a
		}

		return Expression{}
	default:
		return Expression{}
	}
}

// intersectRanges clamps both ranges to their overlap.
func intersectRanges(a, b Expression) Expression {
	min, max := a.min, a.max
	if b.min > min {
		min = b.min
	}

	if b.max < max {
		max = b.max
	}

	if min > max {
		return Expression{}
	}

	return NewRange(min, max)
}

// intersectRangeList filters the list to values inside the range, keeping
// the list's order.
func intersectRangeList(r, list Expression) Expression {
	var keep []interface{}

	for _, v := range list.list {
		if r.Admits(v) {
			keep = append(keep, v)
		}
	}

	if len(keep) == 0 {
		return Expression{}
	}

	return Expression{kind: KindList, list: keep}
}

// intersectLists keeps a's order and retains only values present in b.
func intersectLists(a, b Expression) Expression {
	var keep []interface{}

	for _, v := range a.list {
		if b.Admits(v) {
			keep = append(keep, v)
		}
	}

	if len(keep) == 0 {
		return Expression{}
	}

	return Expression{kind: KindList, list: keep}
}

// intersectContains narrows an expression to a single candidate value.
func intersectContains(e Expression, v interface{}) Expression {
	if e.Admits(v) {
		return NewValue(v)
	}

	return Expression{}
}

// IntersectAttributes intersects two surfaces per attribute. Names absent
// on either side are skipped; attributes whose intersection is absent are
// dropped, so the result carries only attributes accepted by both.
func IntersectAttributes(a, b Attributes) Attributes {
	out := Attributes{}

	for name, ea := range a {
		eb, ok := b[name]
		if !ok {
			continue
		}

		if r := Intersect(ea, eb); !r.IsAbsent() {
			out[name] = r
		}
	}

	return out
}
