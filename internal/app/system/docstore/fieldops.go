package docstore

// FieldOpKind selects what a FieldOp does.
type FieldOpKind int

const (
	OpSet FieldOpKind = iota
	OpSetAdd
	OpSetRemove
	OpIncrement
	OpServerTimestamp
)

// FieldOp is a single field-level mutation. Path may be dotted to reach
// into nested maps ("unread_counts.u1").
type FieldOp struct {
	Kind   FieldOpKind
	Path   string
	Value  any
	Values []any
	Delta  int64
}

// Set replaces the value at path.
func Set(path string, v any) FieldOp {
	return FieldOp{Kind: OpSet, Path: path, Value: v}
}

// SetAdd adds values to the array at path, skipping ones already present.
func SetAdd(path string, values ...any) FieldOp {
	return FieldOp{Kind: OpSetAdd, Path: path, Values: values}
}

// SetRemove removes every occurrence of values from the array at path.
func SetRemove(path string, values ...any) FieldOp {
	return FieldOp{Kind: OpSetRemove, Path: path, Values: values}
}

// Increment adds delta to the number at path. A missing field counts as 0.
func Increment(path string, delta int64) FieldOp {
	return FieldOp{Kind: OpIncrement, Path: path, Delta: delta}
}

// ServerTimestamp sets path to the store's clock at write time.
func ServerTimestamp(path string) FieldOp {
	return FieldOp{Kind: OpServerTimestamp, Path: path}
}
