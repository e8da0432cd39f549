// Package records provides the row model shared by every export format.
//
// A Record is an insertion-ordered mapping from field name to value. Field
// order matters: the CSV header, the text report columns and the JSON output
// all follow the order in which fields were first seen.
//
// This package contains three main components:
//
// Record and Collection: ordered rows backed by an ordered map, with JSON
// decoding that keeps the field order of the source document.
//
// Value helpers: classification (scalar or container), JavaScript-compatible
// stringification, numeric coercion and truthiness used by the filter and
// summary code.
//
// Keys: the key extractor that derives the exportable column list from a
// heterogeneous collection.
//
// Example usage:
//
//	data := records.Collection{
//	    records.Of("name", "Asha", "amount", 1200),
//	    records.Of("name", "Ravi", "stage", "won"),
//	}
//
//	keys := records.Keys(data) // [name amount stage]
package records
