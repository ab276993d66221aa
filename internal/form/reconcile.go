package form

// MergeValues takes the union of a freshly extracted value set and a
// caller-supplied one. Extraction wins on key collision: a just-edited
// document reflects its own state more faithfully than a stale snapshot.
// Both inputs are left untouched.
func MergeValues(extracted, supplied ValueMapping) ValueMapping {
	merged := make(ValueMapping, len(extracted)+len(supplied))
	for name, value := range supplied {
		merged[name] = value
	}
	for name, value := range extracted {
		merged[name] = value
	}
	return merged
}

// MetadataChanged reports whether a freshly computed payload warrants a
// metadata update. A missing previous payload always does.
func MetadataChanged(previous, fresh *Payload) bool {
	if previous == nil {
		return fresh != nil
	}
	return !previous.Equal(fresh)
}

// Reconcile produces the value set to persist and whether field-definition
// metadata needs a write. It composes the extractor's and caller's views; it
// holds no document parsing of its own.
func Reconcile(extracted, supplied ValueMapping, previous, fresh *Payload) (ValueMapping, bool) {
	return MergeValues(extracted, supplied), MetadataChanged(previous, fresh)
}
