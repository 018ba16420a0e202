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
	"net/netip"
	"time"

	"github.com/zoomoid/ipfix-inspect/iana/version"
)

// PacketEnvelope is a single datagram as handed over by a packet source. It is owned by
// the decode call processing it.
type PacketEnvelope struct {
	Payload []byte
	Source  netip.Addr
	Arrival time.Time
}

// MessageHeader is the 16 byte IPFIX message header
type MessageHeader struct {
	Version             version.ProtocolVersion `json:"version" yaml:"version"`
	Length              uint16                  `json:"length,omitempty" yaml:"length,omitempty"`
	ExportTime          uint32                  `json:"export_time,omitempty" yaml:"exportTime,omitempty"`
	SequenceNumber      uint32                  `json:"sequence_number,omitempty" yaml:"sequenceNumber,omitempty"`
	ObservationDomainId uint32                  `json:"observation_domain_id,omitempty" yaml:"observationDomainId,omitempty"`
}

func (h MessageHeader) Encode(w io.Writer) (int, error) {
	b := make([]byte, 0, MessageHeaderLength)
	b = binary.BigEndian.AppendUint16(b, uint16(h.Version))
	b = binary.BigEndian.AppendUint16(b, h.Length)
	b = binary.BigEndian.AppendUint32(b, h.ExportTime)
	b = binary.BigEndian.AppendUint32(b, h.SequenceNumber)
	b = binary.BigEndian.AppendUint32(b, h.ObservationDomainId)
	return w.Write(b)
}

func decodeMessageHeader(b []byte) (MessageHeader, int, error) {
	if len(b) < MessageHeaderLength {
		return MessageHeader{}, len(b), truncated("message header", 0, MessageHeaderLength, len(b))
	}
	return MessageHeader{
		Version:             version.ProtocolVersion(binary.BigEndian.Uint16(b[0:2])),
		Length:              binary.BigEndian.Uint16(b[2:4]),
		ExportTime:          binary.BigEndian.Uint32(b[4:8]),
		SequenceNumber:      binary.BigEndian.Uint32(b[8:12]),
		ObservationDomainId: binary.BigEndian.Uint32(b[12:16]),
	}, MessageHeaderLength, nil
}

// Message is what the decoder found in a single packet. For NetFlow v5/v9 and unknown versions only
// Version and RawVersion are populated.
type Message struct {
	Source     netip.Addr              `json:"source" yaml:"source"`
	Version    version.ProtocolVersion `json:"-" yaml:"-"`
	RawVersion uint16                  `json:"version" yaml:"version"`

	Header *MessageHeader `json:"header,omitempty" yaml:"header,omitempty"`
	Sets   []Set          `json:"sets,omitempty" yaml:"sets,omitempty"`
}

// Templates returns all template records of all template sets of the message in wire order
func (m *Message) Templates() []TemplateRecord {
	var records []TemplateRecord
	for _, s := range m.Sets {
		if ts, ok := s.Set.(*TemplateSet); ok {
			records = append(records, ts.Records...)
		}
	}
	return records
}

func (m *Message) String() string {
	if m.Header == nil {
		return fmt.Sprintf("<%s from %s>", m.Version, m.Source)
	}
	return fmt.Sprintf("<%s from %s, domain=%d, seq=%d, len=%d>%v",
		m.Version, m.Source, m.Header.ObservationDomainId, m.Header.SequenceNumber, m.Header.Length, m.Sets)
}
