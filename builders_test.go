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
	"testing"

	"github.com/zoomoid/ipfix-inspect/iana/version"
)

func field(typ, length uint16) FieldSpecifier {
	return FieldSpecifier{Type: typ, Length: length}
}

func enterpriseField(id, length uint16, pen uint32) FieldSpecifier {
	return FieldSpecifier{Type: id | penMask, Length: length, EnterpriseNumber: &pen}
}

func templateRecord(id uint16, fields ...FieldSpecifier) TemplateRecord {
	return TemplateRecord{TemplateId: id, FieldCount: uint16(len(fields)), Fields: fields}
}

// rawSet frames payload with a set header carrying its actual length
func rawSet(id uint16, payload []byte) []byte {
	buf := &bytes.Buffer{}
	_, _ = SetHeader{Id: id, Length: uint16(SetHeaderLength + len(payload))}.Encode(buf)
	buf.Write(payload)
	return buf.Bytes()
}

func templateSet(t *testing.T, records ...TemplateRecord) []byte {
	t.Helper()
	payload := &bytes.Buffer{}
	for _, r := range records {
		if _, err := r.Encode(payload); err != nil {
			t.Fatal(err)
		}
	}
	return rawSet(TemplateSetId, payload.Bytes())
}

// message prepends an IPFIX message header with the total length to sets
func message(t *testing.T, domain uint32, sets ...[]byte) []byte {
	t.Helper()
	body := bytes.Join(sets, nil)
	buf := &bytes.Buffer{}
	_, err := MessageHeader{
		Version:             version.IPFIX,
		Length:              uint16(MessageHeaderLength + len(body)),
		ExportTime:          1700000000,
		SequenceNumber:      1,
		ObservationDomainId: domain,
	}.Encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	buf.Write(body)
	return buf.Bytes()
}
