/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

type ReportOptions struct {
	TopTemplates  int
	TopFieldTypes int
}

var (
	DefaultReportOptions = ReportOptions{
		TopTemplates:  10,
		TopFieldTypes: 20,
	}
)

// maxListedLengths is the number of distinct lengths listed in full. Beyond that, only the three
// smallest and the two largest are listed.
const maxListedLengths = 5

// Report is a ranked summary of a Snapshot. It holds no references into the snapshot.
type Report struct {
	Since       time.Time `json:"since" yaml:"since"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generatedAt"`
	Counters    Counters  `json:"counters" yaml:"counters"`

	TotalTemplates        int                    `json:"total_templates" yaml:"totalTemplates"`
	TopTemplates          []TemplateSummary      `json:"top_templates" yaml:"topTemplates"`
	TotalFieldTypes       int                    `json:"total_field_types" yaml:"totalFieldTypes"`
	TopFieldTypes         []FieldTypeSummary     `json:"top_field_types" yaml:"topFieldTypes"`
	ProblematicFieldTypes []ProblematicFieldType `json:"problematic_field_types" yaml:"problematicFieldTypes"`
}

type TemplateSummary struct {
	Key           TemplateKey `json:"key" yaml:"key"`
	Count         uint64      `json:"count" yaml:"count"`
	FieldCount    uint16      `json:"field_count" yaml:"fieldCount"`
	DecodedFields int         `json:"decoded_fields" yaml:"decodedFields"`
}

// Truncated reports whether the latest announcement had fewer decodable fields than declared
func (t TemplateSummary) Truncated() bool {
	return t.DecodedFields < int(t.FieldCount)
}

type FieldTypeSummary struct {
	Type uint16 `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	// Semantics, Counter and Retired are taken from the IANA registry and empty for enterprise or
	// unknown types
	Semantics string `json:"semantics,omitempty" yaml:"semantics,omitempty"`
	Counter   bool   `json:"counter,omitempty" yaml:"counter,omitempty"`
	Retired   bool   `json:"retired,omitempty" yaml:"retired,omitempty"`

	Count             uint64  `json:"count" yaml:"count"`
	MeanLength        float64 `json:"mean_length" yaml:"meanLength"`
	EnterprisePercent float64 `json:"enterprise_percent" yaml:"enterprisePercent"`

	// Lengths are the distinct observed lengths in ascending order. If there are more than 5,
	// only the three smallest and two largest are listed, and LengthsElided is set.
	Lengths       []uint16 `json:"lengths" yaml:"lengths"`
	LengthsElided bool     `json:"lengths_elided,omitempty" yaml:"lengthsElided,omitempty"`
}

type ProblematicFieldType struct {
	Type uint16 `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`

	MaxLength           uint16 `json:"max_length" yaml:"maxLength"`
	VariableLengthCount uint64 `json:"variable_length_count" yaml:"variableLengthCount"`
	LargeLengthCount    uint64 `json:"large_length_count" yaml:"largeLengthCount"`
}

// NewReport ranks the tables of a snapshot. It does not modify the snapshot.
func NewReport(snap Snapshot, opts ...ReportOptions) *Report {
	options := DefaultReportOptions
	for _, o := range opts {
		if o.TopTemplates > 0 {
			options.TopTemplates = o.TopTemplates
		}
		if o.TopFieldTypes > 0 {
			options.TopFieldTypes = o.TopFieldTypes
		}
	}

	return &Report{
		Since:                 snap.Since,
		GeneratedAt:           snap.Taken,
		Counters:              snap.Counters,
		TotalTemplates:        len(snap.Templates),
		TopTemplates:          topTemplates(snap.Templates, options.TopTemplates),
		TotalFieldTypes:       len(snap.FieldTypes),
		TopFieldTypes:         topFieldTypes(snap.FieldTypes, options.TopFieldTypes),
		ProblematicFieldTypes: problematicFieldTypes(snap.FieldTypes),
	}
}

func topTemplates(templates map[TemplateKey]TemplateStats, n int) []TemplateSummary {
	all := make([]TemplateSummary, 0, len(templates))
	for k, v := range templates {
		all = append(all, TemplateSummary{
			Key:           k,
			Count:         v.Count,
			FieldCount:    v.FieldCount,
			DecodedFields: len(v.Fields),
		})
	}
	slices.SortFunc(all, func(a, b TemplateSummary) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return a.Key.Compare(b.Key)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func topFieldTypes(fieldTypes map[uint16]FieldTypeStats, n int) []FieldTypeSummary {
	all := make([]FieldTypeSummary, 0, len(fieldTypes))
	for typ, v := range fieldTypes {
		lengths, elided := distinctLengths(v.Lengths)
		ie, _ := lookupElement(typ)
		all = append(all, FieldTypeSummary{
			Type:              typ,
			Name:              FieldTypeName(typ),
			Semantics:         ie.Semantics.String(),
			Counter:           ie.Semantics.Counter(),
			Retired:           ie.Status.Retired(),
			Count:             v.Count,
			MeanLength:        meanLength(v.Lengths),
			EnterprisePercent: percent(v.EnterpriseCount, v.Count),
			Lengths:           lengths,
			LengthsElided:     elided,
		})
	}
	slices.SortFunc(all, func(a, b FieldTypeSummary) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func problematicFieldTypes(fieldTypes map[uint16]FieldTypeStats) []ProblematicFieldType {
	problematic := make([]ProblematicFieldType, 0)
	for typ, v := range fieldTypes {
		p := ProblematicFieldType{
			Type: typ,
			Name: FieldTypeName(typ),
		}
		for _, l := range v.Lengths {
			p.MaxLength = max(p.MaxLength, l)
			switch {
			case l == VariableLength:
				p.VariableLengthCount++
			case l > LargeFieldLength:
				p.LargeLengthCount++
			}
		}
		if p.VariableLengthCount > 0 || p.LargeLengthCount > 0 {
			problematic = append(problematic, p)
		}
	}
	slices.SortFunc(problematic, func(a, b ProblematicFieldType) int {
		return cmp.Compare(a.Type, b.Type)
	})
	return problematic
}

func distinctLengths(lengths []uint16) ([]uint16, bool) {
	d := slices.Clone(lengths)
	slices.Sort(d)
	d = slices.Compact(d)
	if len(d) <= maxListedLengths {
		return d, false
	}
	return append(d[:3:3], d[len(d)-2:]...), true
}

func meanLength(lengths []uint16) float64 {
	if len(lengths) == 0 {
		return 0
	}
	var sum uint64
	for _, l := range lengths {
		sum += uint64(l)
	}
	return float64(sum) / float64(len(lengths))
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// FieldTypeName returns the IANA name of a raw field type code, if known. Enterprise-specific
// types are rendered as enterprise(<id>), unknown IANA types as unknown(<id>).
func FieldTypeName(typ uint16) string {
	f := FieldSpecifier{Type: typ}
	if f.IsEnterprise() {
		return fmt.Sprintf("enterprise(%d)", f.Id())
	}
	if ie, ok := lookupElement(typ); ok {
		return ie.Name
	}
	return fmt.Sprintf("unknown(%d)", typ)
}

// lookupElement finds the IANA registry entry of a raw field type code. Enterprise-specific
// codes are never looked up, their ids are scoped to the enterprise.
func lookupElement(typ uint16) (InformationElement, bool) {
	if typ&penMask != 0 {
		return InformationElement{}, false
	}
	ie, ok := IANA()[typ]
	return ie, ok
}
