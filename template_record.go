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
	"encoding/binary"
	"fmt"
	"io"
)

type TemplateRecord struct {
	TemplateId uint16 `json:"template_id" yaml:"templateId"`
	// FieldCount is the number of fields announced by the exporter, which can be larger
	// than len(Fields) if the record was cut off
	FieldCount uint16 `json:"field_count" yaml:"fieldCount"`

	Fields []FieldSpecifier `json:"fields,omitempty" yaml:"fields,omitempty"`
}

var _ fmt.Stringer = &TemplateRecord{}

func (tr *TemplateRecord) String() string {
	sl := make([]string, 0, len(tr.Fields))
	for _, f := range tr.Fields {
		sl = append(sl, f.String())
	}

	return fmt.Sprintf("<id=%d,len=%d>%v", tr.TemplateId, tr.FieldCount, sl)
}

// Truncated reports whether fewer fields were decoded than the record announced
func (tr *TemplateRecord) Truncated() bool {
	return len(tr.Fields) < int(tr.FieldCount)
}

// Length is the number of bytes the decoded part of the record occupies on the wire
func (tr *TemplateRecord) Length() int {
	l := TemplateRecordHeaderLength
	for _, f := range tr.Fields {
		// sizeof(fieldId) + sizeof(fieldLength) + (penProvided ? sizeof(pen) : 0)
		if f.EnterpriseNumber == nil {
			l += 4
		} else {
			l += 8
		}
	}
	return l
}

func (tr *TemplateRecord) Encode(w io.Writer) (n int, err error) {
	b := make([]byte, 0, TemplateRecordHeaderLength)
	b = binary.BigEndian.AppendUint16(b, tr.TemplateId)
	b = binary.BigEndian.AppendUint16(b, tr.FieldCount)
	n, err = w.Write(b)
	if err != nil {
		return n, err
	}
	for _, f := range tr.Fields {
		fn, err := f.Encode(w)
		n += fn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// decodeTemplateRecord decodes a template record header and up to FieldCount field specifiers.
// The caller guarantees TemplateRecordHeaderLength bytes at offset. On truncation, the record is
// returned with the fields decoded so far together with the truncation error.
func decodeTemplateRecord(b []byte, offset int) (TemplateRecord, int, error) {
	tr := TemplateRecord{
		TemplateId: binary.BigEndian.Uint16(b[offset:]),
		FieldCount: binary.BigEndian.Uint16(b[offset+2:]),
	}
	offset += TemplateRecordHeaderLength

	// a hostile field count must not make us allocate more than the payload can hold
	capacity := int(tr.FieldCount)
	if fit := (len(b) - offset) / 4; capacity > fit {
		capacity = fit
	}
	tr.Fields = make([]FieldSpecifier, 0, capacity)

	for i := 0; i < int(tr.FieldCount); i++ {
		f, next, err := DecodeFieldSpecifier(b, offset)
		offset = next
		if err != nil {
			return tr, offset, fmt.Errorf("template %d, field %d of %d: %w", tr.TemplateId, i+1, tr.FieldCount, err)
		}
		tr.Fields = append(tr.Fields, f)
	}
	return tr, offset, nil
}
