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

// FieldSpecifier describes one column of a template, as announced on the wire:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|E|  Information Element ident. |        Field Length           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                      Enterprise Number                        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//
// Type is kept raw, i.e., including the enterprise bit.
type FieldSpecifier struct {
	Type   uint16 `json:"type" yaml:"type"`
	Length uint16 `json:"length" yaml:"length"`

	// EnterpriseNumber is nil for IANA fields, and for enterprise fields whose enterprise number
	// was cut off
	EnterpriseNumber *uint32 `json:"enterprise_number,omitempty" yaml:"enterpriseNumber,omitempty"`
}

var _ fmt.Stringer = FieldSpecifier{}

// IsEnterprise reports whether the enterprise bit of the type code is set
func (f FieldSpecifier) IsEnterprise() bool {
	return f.Type&penMask != 0
}

// Id returns the information element id without the enterprise bit
func (f FieldSpecifier) Id() uint16 {
	return f.Type &^ penMask
}

// IsVariableLength reports whether the field carries the variable-length marker (RFC 7011, section 7)
func (f FieldSpecifier) IsVariableLength() bool {
	return f.Length == VariableLength
}

// Anomaly classifies the announced length. Anomalies are informational only.
func (f FieldSpecifier) Anomaly() FieldAnomaly {
	switch {
	case f.IsVariableLength():
		return AnomalyVariableLength
	case f.Length > LargeFieldLength:
		return AnomalyLargeLength
	default:
		return AnomalyNone
	}
}

func (f FieldSpecifier) String() string {
	if f.EnterpriseNumber != nil {
		return fmt.Sprintf("<id=%d,pen=%d,len=%d>", f.Id(), *f.EnterpriseNumber, f.Length)
	}
	return fmt.Sprintf("<id=%d,len=%d>", f.Id(), f.Length)
}

// Encode writes the field specifier in wire format. The enterprise number is only written
// if the enterprise bit is set and the number is present.
func (f FieldSpecifier) Encode(w io.Writer) (int, error) {
	b := make([]byte, 0, 8)
	b = binary.BigEndian.AppendUint16(b, f.Type)
	b = binary.BigEndian.AppendUint16(b, f.Length)
	if f.IsEnterprise() && f.EnterpriseNumber != nil {
		b = binary.BigEndian.AppendUint32(b, *f.EnterpriseNumber)
	}
	return w.Write(b)
}

// DecodeFieldSpecifier decodes exactly one field specifier from b at offset and returns it along
// with the offset following it.
//
// If fewer than 4 bytes remain, ErrTruncated is returned and the offset is moved to the end of b.
// If the enterprise bit is set and the enterprise number does not fit, ErrTruncatedEnterpriseField
// is returned together with the partially decoded specifier (type and length, no enterprise number)
// and an offset advanced by only 4 bytes.
func DecodeFieldSpecifier(b []byte, offset int) (FieldSpecifier, int, error) {
	if len(b)-offset < 4 {
		return FieldSpecifier{}, len(b), truncated("field specifier", offset, 4, len(b)-offset)
	}
	f := FieldSpecifier{
		Type:   binary.BigEndian.Uint16(b[offset:]),
		Length: binary.BigEndian.Uint16(b[offset+2:]),
	}
	offset += 4

	if !f.IsEnterprise() {
		return f, offset, nil
	}
	if len(b)-offset < 4 {
		return f, offset, fmt.Errorf("%w for field %d at offset %d", ErrTruncatedEnterpriseField, f.Id(), offset)
	}
	pen := binary.BigEndian.Uint32(b[offset:])
	f.EnterpriseNumber = &pen
	return f, offset + 4, nil
}

// FieldAnomaly flags field lengths worth looking at when diagnosing an exporter
type FieldAnomaly int

const (
	AnomalyNone FieldAnomaly = iota
	// AnomalyVariableLength is the reserved 0xFFFF length marker
	AnomalyVariableLength
	// AnomalyLargeLength is any fixed length above LargeFieldLength
	AnomalyLargeLength
)

func (a FieldAnomaly) String() string {
	switch a {
	case AnomalyVariableLength:
		return "variable_length"
	case AnomalyLargeLength:
		return "unusually_large"
	default:
		return "none"
	}
}
