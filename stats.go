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
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/zoomoid/ipfix-inspect/iana/version"
)

// TemplateKey identifies a logical template instance. Announcements with the same key are
// re-announcements of the same template.
type TemplateKey struct {
	Source              netip.Addr `json:"source" yaml:"source"`
	ObservationDomainId uint32     `json:"observation_domain_id" yaml:"observationDomainId"`
	TemplateId          uint16     `json:"template_id" yaml:"templateId"`
}

func (k TemplateKey) String() string {
	return fmt.Sprintf("%s/%d/%d", k.Source, k.ObservationDomainId, k.TemplateId)
}

// Compare orders keys by source address, then observation domain, then template id
func (k TemplateKey) Compare(o TemplateKey) int {
	if c := k.Source.Compare(o.Source); c != 0 {
		return c
	}
	if c := cmp.Compare(k.ObservationDomainId, o.ObservationDomainId); c != 0 {
		return c
	}
	return cmp.Compare(k.TemplateId, o.TemplateId)
}

type TemplateStats struct {
	// Count is the number of times the template was announced
	Count uint64 `json:"count" yaml:"count"`
	// FieldCount is the field count declared by the latest announcement
	FieldCount uint16 `json:"field_count" yaml:"fieldCount"`
	// Fields are the fields decoded from the latest announcement
	Fields []FieldSpecifier `json:"fields,omitempty" yaml:"fields,omitempty"`

	FirstSeen time.Time `json:"first_seen" yaml:"firstSeen"`
	LastSeen  time.Time `json:"last_seen" yaml:"lastSeen"`
}

// Truncated reports whether the latest announcement was cut off
func (t TemplateStats) Truncated() bool {
	return len(t.Fields) < int(t.FieldCount)
}

type FieldTypeStats struct {
	Count uint64 `json:"count" yaml:"count"`
	// Lengths holds every observed length in observation order, including duplicates
	Lengths         []uint16 `json:"lengths,omitempty" yaml:"lengths,omitempty"`
	EnterpriseCount uint64   `json:"enterprise_count" yaml:"enterpriseCount"`
}

// Counters are packet and set level tallies gathered alongside the tables
type Counters struct {
	Packets uint64 `json:"packets" yaml:"packets"`
	Bytes   uint64 `json:"bytes" yaml:"bytes"`

	IPFIXPackets          uint64 `json:"ipfix_packets" yaml:"ipfixPackets"`
	NetFlowV5Packets      uint64 `json:"netflow_v5_packets" yaml:"netflowV5Packets"`
	NetFlowV9Packets      uint64 `json:"netflow_v9_packets" yaml:"netflowV9Packets"`
	UnknownVersionPackets uint64 `json:"unknown_version_packets" yaml:"unknownVersionPackets"`
	DiscardedPackets      uint64 `json:"discarded_packets" yaml:"discardedPackets"`

	TemplateSets        uint64 `json:"template_sets" yaml:"templateSets"`
	OptionsTemplateSets uint64 `json:"options_template_sets" yaml:"optionsTemplateSets"`
	DataSets            uint64 `json:"data_sets" yaml:"dataSets"`
	UnsupportedSets     uint64 `json:"unsupported_sets" yaml:"unsupportedSets"`
	MalformedSets       uint64 `json:"malformed_sets" yaml:"malformedSets"`

	OptionsTemplateBytes uint64 `json:"options_template_bytes" yaml:"optionsTemplateBytes"`
	DataSetBytes         uint64 `json:"data_set_bytes" yaml:"dataSetBytes"`

	TruncatedRecords     uint64 `json:"truncated_records" yaml:"truncatedRecords"`
	VariableLengthFields uint64 `json:"variable_length_fields" yaml:"variableLengthFields"`
	LargeFields          uint64 `json:"large_fields" yaml:"largeFields"`
}

// Statistics owns the template and field type tables. Entries are created on first observation
// and live as long as the Statistics value. The tables grow without bounds, which is fine for
// diagnostic runs, but not for a long-running collector.
//
// All methods are safe for concurrent use, such that reports can be taken while packets are
// being decoded.
type Statistics struct {
	mu *sync.RWMutex

	templates  map[TemplateKey]*TemplateStats
	fieldTypes map[uint16]*FieldTypeStats
	counters   Counters

	created time.Time
	now     func() time.Time
}

func NewStatistics() *Statistics {
	return &Statistics{
		mu:         &sync.RWMutex{},
		templates:  make(map[TemplateKey]*TemplateStats),
		fieldTypes: make(map[uint16]*FieldTypeStats),
		created:    time.Now(),
		now:        time.Now,
	}
}

// RecordTemplate records one (re-)announcement of a template record, complete or partial.
// The occurrence count is incremented, the stored field list is replaced, and every decoded
// field is observed in the field type table.
func (s *Statistics) RecordTemplate(key TemplateKey, record TemplateRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordTemplateOccurrence(key, record)
	for _, f := range record.Fields {
		s.recordFieldObservation(f)
	}
}

// RecordField records a single field specifier observation without an enclosing template
func (s *Statistics) RecordField(f FieldSpecifier) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recordFieldObservation(f)
}

func (s *Statistics) recordTemplateOccurrence(key TemplateKey, record TemplateRecord) {
	now := s.now()
	ts, ok := s.templates[key]
	if !ok {
		ts = &TemplateStats{FirstSeen: now}
		s.templates[key] = ts
	}
	ts.Count++
	ts.LastSeen = now
	ts.FieldCount = record.FieldCount
	ts.Fields = slices.Clone(record.Fields)
}

func (s *Statistics) recordFieldObservation(f FieldSpecifier) {
	fs, ok := s.fieldTypes[f.Type]
	if !ok {
		fs = &FieldTypeStats{}
		s.fieldTypes[f.Type] = fs
	}
	fs.Count++
	fs.Lengths = append(fs.Lengths, f.Length)
	if f.EnterpriseNumber != nil {
		fs.EnterpriseCount++
	}

	switch f.Anomaly() {
	case AnomalyVariableLength:
		s.counters.VariableLengthFields++
	case AnomalyLargeLength:
		s.counters.LargeFields++
	}
}

// RecordPacket counts a received packet and its classified protocol version
func (s *Statistics) RecordPacket(size int, v version.ProtocolVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Packets++
	s.counters.Bytes += uint64(size)
	switch v {
	case version.IPFIX:
		s.counters.IPFIXPackets++
	case version.NetFlowV5:
		s.counters.NetFlowV5Packets++
	case version.NetFlowV9:
		s.counters.NetFlowV9Packets++
	default:
		s.counters.UnknownVersionPackets++
	}
}

// RecordDiscard counts a packet too short to be classified or decoded
func (s *Statistics) RecordDiscard(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.Packets++
	s.counters.Bytes += uint64(size)
	s.counters.DiscardedPackets++
}

// RecordSet counts a set by kind together with its payload size
func (s *Statistics) RecordSet(kind SetKind, payloadLength int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case KindTemplateSet:
		s.counters.TemplateSets++
	case KindOptionsTemplateSet:
		s.counters.OptionsTemplateSets++
		s.counters.OptionsTemplateBytes += uint64(payloadLength)
	case KindDataSet:
		s.counters.DataSets++
		s.counters.DataSetBytes += uint64(payloadLength)
	default:
		s.counters.UnsupportedSets++
	}
}

func (s *Statistics) RecordMalformedSet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.MalformedSets++
}

func (s *Statistics) RecordTruncation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.TruncatedRecords++
}

// Template returns a copy of the stats stored for key
func (s *Statistics) Template(key TemplateKey) (TemplateStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.templates[key]
	if !ok {
		return TemplateStats{}, false
	}
	c := *ts
	c.Fields = slices.Clone(ts.Fields)
	return c, true
}

// FieldType returns a copy of the stats stored for the raw field type code
func (s *Statistics) FieldType(typ uint16) (FieldTypeStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.fieldTypes[typ]
	if !ok {
		return FieldTypeStats{}, false
	}
	c := *fs
	c.Lengths = slices.Clone(fs.Lengths)
	return c, true
}

// Snapshot is a deep copy of both tables and the counters at a point in time
type Snapshot struct {
	Templates  map[TemplateKey]TemplateStats `json:"-" yaml:"-"`
	FieldTypes map[uint16]FieldTypeStats     `json:"-" yaml:"-"`
	Counters   Counters                      `json:"counters" yaml:"counters"`

	Since time.Time `json:"since" yaml:"since"`
	Taken time.Time `json:"taken" yaml:"taken"`
}

func (s *Statistics) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Templates:  make(map[TemplateKey]TemplateStats, len(s.templates)),
		FieldTypes: make(map[uint16]FieldTypeStats, len(s.fieldTypes)),
		Counters:   s.counters,
		Since:      s.created,
		Taken:      s.now(),
	}
	for k, v := range s.templates {
		c := *v
		c.Fields = slices.Clone(v.Fields)
		snap.Templates[k] = c
	}
	for k, v := range s.fieldTypes {
		c := *v
		c.Lengths = slices.Clone(v.Lengths)
		snap.FieldTypes[k] = c
	}
	return snap
}
