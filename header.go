package ipfix

import (
	"encoding/binary"
	"io"
)

type SetHeader struct {
	// 2 for TemplateSet, 3 for OptionsTemplateSet, and
	// 256-65535 for DataSet as TemplateId (thus uint16)
	Id uint16 `json:"id,omitempty" yaml:"id,omitempty"`

	// Length includes the 4 bytes of the header itself
	Length uint16 `json:"length,omitempty" yaml:"length,omitempty"`
}

// Kind classifies the set by its id
func (h SetHeader) Kind() SetKind {
	switch {
	case h.Id == TemplateSetId:
		return KindTemplateSet
	case h.Id == OptionsTemplateSetId:
		return KindOptionsTemplateSet
	case h.Id >= MinDataSetId:
		return KindDataSet
	default:
		return KindUnsupportedSet
	}
}

func (h SetHeader) Encode(w io.Writer) (int, error) {
	b := make([]byte, 0, SetHeaderLength)
	b = binary.BigEndian.AppendUint16(b, h.Id)
	b = binary.BigEndian.AppendUint16(b, h.Length)
	return w.Write(b)
}

// decodeSetHeader expects at least SetHeaderLength bytes at offset
func decodeSetHeader(b []byte, offset int) (SetHeader, int, error) {
	if len(b)-offset < SetHeaderLength {
		return SetHeader{}, len(b), truncated("set header", offset, SetHeaderLength, len(b)-offset)
	}
	return SetHeader{
		Id:     binary.BigEndian.Uint16(b[offset:]),
		Length: binary.BigEndian.Uint16(b[offset+2:]),
	}, offset + SetHeaderLength, nil
}
