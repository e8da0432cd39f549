package records

// Keys returns the ordered set of exportable field names across the
// collection. Records are scanned in order and fields in insertion order;
// a field is included once any record holds a non-container value for it.
func Keys(data Collection) []string {
	seen := make(map[string]bool)
	keys := make([]string, 0)

	for _, record := range data {
		for _, key := range record.Keys() {
			if seen[key] {
				continue
			}
			if IsContainer(record.Value(key)) {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}

	return keys
}
