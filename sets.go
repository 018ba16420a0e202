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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
)

// SetKind is the closed set of set classes the decoder dispatches on
type SetKind string

// The Kind* constants are also used as metric labels
const (
	KindTemplateSet        SetKind = "TemplateSet"
	KindOptionsTemplateSet SetKind = "OptionsTemplateSet"
	KindDataSet            SetKind = "DataSet"
	KindUnsupportedSet     SetKind = "UnsupportedSet"
)

func SetKinds() []SetKind {
	return []SetKind{KindTemplateSet, KindOptionsTemplateSet, KindDataSet, KindUnsupportedSet}
}

type set interface {
	// PayloadLength is the number of bytes following the set header
	PayloadLength() int
}

type Set struct {
	SetHeader `json:",inline" yaml:",inline"`
	Kind      SetKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	Set set `json:"-" yaml:"-"`
}

var _ json.Marshaler = &Set{}

func (s *Set) MarshalJSON() ([]byte, error) {
	type ifs struct {
		Id      uint16           `json:"id"`
		Length  uint16           `json:"length"`
		Kind    SetKind          `json:"kind,omitempty"`
		Records []TemplateRecord `json:"records,omitempty"`
	}

	t := &ifs{
		Id:     s.Id,
		Length: s.Length,
		Kind:   s.Kind,
	}
	if ts, ok := s.Set.(*TemplateSet); ok {
		t.Records = ts.Records
	}
	return json.Marshal(t)
}

func (s Set) String() string {
	if ts, ok := s.Set.(*TemplateSet); ok {
		return fmt.Sprintf("%s(%d)%v", s.Kind, s.Id, ts.Records)
	}
	return fmt.Sprintf("%s(%d,len=%d)", s.Kind, s.Id, s.Length)
}

// TemplateSet decodes template records and reports every record, complete or cut off, to
// the statistics it is bound to.
type TemplateSet struct {
	Records []TemplateRecord `json:"records,omitempty" yaml:"records,omitempty"`

	payloadLength int

	stats               *Statistics
	source              netip.Addr
	observationDomainId uint32
}

func (d *TemplateSet) PayloadLength() int {
	return d.payloadLength
}

// With binds the set to an exporter scope and statistics. stats may be nil.
func (d *TemplateSet) With(stats *Statistics, source netip.Addr, observationDomainId uint32) *TemplateSet {
	d.stats = stats
	d.source = source
	d.observationDomainId = observationDomainId
	return d
}

// Decode consumes a set payload, i.e., the bytes following the set header. As long as at least a
// template record header remains, another record is decoded. A truncated record ends decoding of the
// set; the partial record is kept and recorded, and the truncation error is returned.
func (d *TemplateSet) Decode(ctx context.Context, payload []byte) (n int, err error) {
	logger := FromContext(ctx, "source", d.source, "domain", d.observationDomainId)
	d.payloadLength = len(payload)
	d.Records = make([]TemplateRecord, 0)

	offset := 0
	for len(payload)-offset >= TemplateRecordHeaderLength {
		record, next, rerr := decodeTemplateRecord(payload, offset)
		offset = next
		d.Records = append(d.Records, record)
		d.observe(ctx, record)

		if rerr != nil {
			TruncatedFieldsTotal.Inc()
			if d.stats != nil {
				d.stats.RecordTruncation()
			}
			logger.V(1).Info("template record truncated",
				"templateId", record.TemplateId,
				"declared", record.FieldCount,
				"decoded", len(record.Fields),
				"error", rerr.Error(),
			)
			return offset, rerr
		}
	}
	// fewer than 4 trailing bytes are padding
	return offset, nil
}

func (d *TemplateSet) observe(ctx context.Context, record TemplateRecord) {
	logger := FromContext(ctx)
	for _, f := range record.Fields {
		if a := f.Anomaly(); a != AnomalyNone {
			FieldAnomaliesTotal.WithLabelValues(a.String()).Inc()
			logger.V(1).Info("field length anomaly",
				"source", d.source,
				"domain", d.observationDomainId,
				"templateId", record.TemplateId,
				"fieldType", f.Type,
				"length", f.Length,
				"anomaly", a.String(),
			)
		}
	}
	DecodedTemplatesTotal.Inc()

	if d.stats == nil {
		return
	}
	d.stats.RecordTemplate(TemplateKey{
		Source:              d.source,
		ObservationDomainId: d.observationDomainId,
		TemplateId:          record.TemplateId,
	}, record)
}

// OptionsTemplateSet only records the size of its payload. Scope and option fields are not decoded.
type OptionsTemplateSet struct {
	payloadLength int
}

func (d *OptionsTemplateSet) PayloadLength() int {
	return d.payloadLength
}

func (d *OptionsTemplateSet) Decode(payload []byte) (int, error) {
	d.payloadLength = len(payload)
	return len(payload), nil
}

// DataSet is counted, but its records are not decoded
type DataSet struct {
	TemplateId    uint16 `json:"template_id" yaml:"templateId"`
	payloadLength int
}

func (d *DataSet) PayloadLength() int {
	return d.payloadLength
}

func (d *DataSet) Decode(payload []byte) (int, error) {
	d.payloadLength = len(payload)
	return len(payload), nil
}

// UnsupportedSet carries a set id from the reserved range
type UnsupportedSet struct {
	payloadLength int
}

func (d *UnsupportedSet) PayloadLength() int {
	return d.payloadLength
}

func (d *UnsupportedSet) Decode(payload []byte) (int, error) {
	d.payloadLength = len(payload)
	return len(payload), nil
}

// isTruncation is true for both plain truncation and cut off enterprise numbers
func isTruncation(err error) bool {
	return errors.Is(err, ErrTruncated)
}
