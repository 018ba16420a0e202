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
	"bytes"
	"context"
	"errors"
	"net/netip"
	"testing"
)

func TestTemplateSet_Decode(t *testing.T) {
	source := netip.MustParseAddr("10.0.0.1")
	records := []TemplateRecord{
		templateRecord(256, field(8, 4), field(12, 4), field(4, 1)),
		templateRecord(257, field(7, 2), enterpriseField(5, 4, 12345)),
	}
	payload := templateSet(t, records...)[SetHeaderLength:]

	stats := NewStatistics()
	ts := (&TemplateSet{}).With(stats, source, 7)
	n, err := ts.Decode(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Errorf("expected %d bytes consumed, got %d", len(payload), n)
	}
	if len(ts.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(ts.Records))
	}

	for i, want := range records {
		got := ts.Records[i]
		if got.TemplateId != want.TemplateId || got.FieldCount != want.FieldCount {
			t.Errorf("record %d: expected %s, got %s", i, &want, &got)
		}
		for j := range want.Fields {
			if got.Fields[j].Type != want.Fields[j].Type || got.Fields[j].Length != want.Fields[j].Length {
				t.Errorf("record %d, field %d: expected %s, got %s", i, j, want.Fields[j], got.Fields[j])
			}
		}

		key := TemplateKey{Source: source, ObservationDomainId: 7, TemplateId: want.TemplateId}
		tstats, ok := stats.Template(key)
		if !ok {
			t.Fatalf("expected template %s to be recorded", key)
		}
		if tstats.Count != 1 || len(tstats.Fields) != len(want.Fields) {
			t.Errorf("template %s: expected count 1 and %d fields, got %d and %d", key, len(want.Fields), tstats.Count, len(tstats.Fields))
		}
	}

	pen, ok := stats.FieldType(5 | penMask)
	if !ok || pen.Count != 1 || pen.EnterpriseCount != 1 {
		t.Errorf("expected one enterprise observation of type %#x, got %+v", 5|penMask, pen)
	}
}

func TestTemplateSet_Decode_TruncatedRecord(t *testing.T) {
	source := netip.MustParseAddr("10.0.0.2")

	payload := &bytes.Buffer{}
	tr := templateRecord(256, field(8, 4))
	_, _ = tr.Encode(payload)
	// declares 3 fields, but only the first one and half of the second follow
	payload.Write([]byte{0x01, 0x2c, 0x00, 0x03})
	_, _ = field(1, 8).Encode(payload)
	payload.Write([]byte{0x00, 0x02})

	stats := NewStatistics()
	ts := (&TemplateSet{}).With(stats, source, 1)
	_, err := ts.Decode(context.Background(), payload.Bytes())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation, got %v", err)
	}

	if len(ts.Records) != 2 {
		t.Fatalf("expected the complete and the partial record, got %d", len(ts.Records))
	}
	partial := ts.Records[1]
	if partial.TemplateId != 300 || partial.FieldCount != 3 || len(partial.Fields) != 1 || !partial.Truncated() {
		t.Errorf("unexpected partial record %s", &partial)
	}

	tstats, ok := stats.Template(TemplateKey{Source: source, ObservationDomainId: 1, TemplateId: 300})
	if !ok {
		t.Fatal("expected partial template to be recorded")
	}
	if tstats.FieldCount != 3 || len(tstats.Fields) != 1 || !tstats.Truncated() {
		t.Errorf("expected declared 3 fields and 1 decoded, got %d and %d", tstats.FieldCount, len(tstats.Fields))
	}
	if f, _ := stats.FieldType(1); f.Count != 1 {
		t.Errorf("expected decoded field of the partial record to be observed, got %d", f.Count)
	}
	if c := stats.Snapshot().Counters.TruncatedRecords; c != 1 {
		t.Errorf("expected 1 truncated record, got %d", c)
	}
}

func TestTemplateSet_Decode_TruncatedEnterpriseNumber(t *testing.T) {
	// record 256 declares 2 fields, the second is an enterprise field missing its enterprise number
	payload := []byte{
		0x01, 0x00, 0x00, 0x02,
		0x00, 0x08, 0x00, 0x04,
		0x80, 0x05, 0x00, 0x04, 0x00, 0x00,
	}
	stats := NewStatistics()
	ts := (&TemplateSet{}).With(stats, netip.MustParseAddr("10.0.0.3"), 1)
	_, err := ts.Decode(context.Background(), payload)
	if !errors.Is(err, ErrTruncatedEnterpriseField) {
		t.Fatalf("expected ErrTruncatedEnterpriseField, got %v", err)
	}
	if len(ts.Records) != 1 || len(ts.Records[0].Fields) != 1 {
		t.Fatalf("expected one record with the first field only, got %v", ts.Records)
	}
	if _, ok := stats.FieldType(5 | penMask); ok {
		t.Error("field with cut off enterprise number must not be observed")
	}
}

func TestTemplateSet_Decode_Padding(t *testing.T) {
	payload := templateSet(t, templateRecord(256, field(8, 4)))[SetHeaderLength:]
	payload = append(payload, 0x00, 0x00, 0x00)

	ts := &TemplateSet{}
	n, err := ts.Decode(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(ts.Records) != 1 {
		t.Errorf("expected trailing bytes to be ignored, got %d records", len(ts.Records))
	}
	if n != len(payload)-3 {
		t.Errorf("expected padding not to be consumed, got %d of %d", n, len(payload))
	}
}

func TestTemplateSet_Decode_ZeroFields(t *testing.T) {
	stats := NewStatistics()
	source := netip.MustParseAddr("10.0.0.4")
	ts := (&TemplateSet{}).With(stats, source, 1)
	if _, err := ts.Decode(context.Background(), []byte{0x01, 0x00, 0x00, 0x00}); err != nil {
		t.Fatal(err)
	}
	tstats, ok := stats.Template(TemplateKey{Source: source, ObservationDomainId: 1, TemplateId: 256})
	if !ok || tstats.FieldCount != 0 || len(tstats.Fields) != 0 {
		t.Errorf("expected a zero-field template, got %+v", tstats)
	}
}

func TestTemplateRecord_Length(t *testing.T) {
	tr := templateRecord(256, field(8, 4), enterpriseField(5, 4, 12345))
	if tr.Length() != 4+4+8 {
		t.Errorf("expected 16 bytes, got %d", tr.Length())
	}
	buf := &bytes.Buffer{}
	n, err := tr.Encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != tr.Length() {
		t.Errorf("expected encoded length %d, got %d", tr.Length(), n)
	}
}

func TestSetHeader_Kind(t *testing.T) {
	tests := []struct {
		id   uint16
		want SetKind
	}{
		{0, KindUnsupportedSet},
		{1, KindUnsupportedSet},
		{2, KindTemplateSet},
		{3, KindOptionsTemplateSet},
		{4, KindUnsupportedSet},
		{255, KindUnsupportedSet},
		{256, KindDataSet},
		{65535, KindDataSet},
	}
	for _, tt := range tests {
		if got := (SetHeader{Id: tt.id}).Kind(); got != tt.want {
			t.Errorf("set id %d: expected %s, got %s", tt.id, tt.want, got)
		}
	}
}
