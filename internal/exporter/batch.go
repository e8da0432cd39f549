package exporter

import (
	"github.com/iancoleman/orderedmap"

	"crmexport/internal/records"
)

// Divider field names inserted before each section of a flattened batch
const (
	SectionField = "_section"
	DataField    = "_data"
)

// Section is a titled record collection within a batch export
type Section struct {
	Title string             `json:"title" validate:"required"`
	Data  records.Collection `json:"data"`
}

// FlattenSections concatenates sections into one collection. Each section is
// preceded by a divider record {_section: title, _data: ""}, so the divider
// columns appear in every row of a tabular export.
func FlattenSections(sections []Section) records.Collection {
	var out records.Collection
	for _, section := range sections {
		out = append(out, records.Of(SectionField, section.Title, DataField, ""))
		out = append(out, section.Data...)
	}
	return out
}

// SectionsByTitle maps each section title to its data in section order. A
// repeated title keeps its first position and takes the later data.
func SectionsByTitle(sections []Section) *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	for _, section := range sections {
		data := section.Data
		if data == nil {
			data = records.Collection{}
		}
		m.Set(section.Title, data)
	}
	return m
}
