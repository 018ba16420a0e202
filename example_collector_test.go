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


package ipfix_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/netip"

	"github.com/zoomoid/ipfix-inspect"
	"github.com/zoomoid/ipfix-inspect/iana/version"
)

// A file replay of a single exporter announcing template 256 twice. The collector reads one
// message after the other, and a report is taken once the file is exhausted.
func Example_collector() {
	record := ipfix.TemplateRecord{
		TemplateId: 256,
		FieldCount: 3,
		Fields: []ipfix.FieldSpecifier{
			{Type: 8, Length: 4},
			{Type: 12, Length: 4},
			{Type: 82, Length: ipfix.VariableLength},
		},
	}

	set := &bytes.Buffer{}
	_, _ = ipfix.SetHeader{Id: ipfix.TemplateSetId, Length: uint16(ipfix.SetHeaderLength + record.Length())}.Encode(set)
	_, _ = record.Encode(set)

	file := &bytes.Buffer{}
	for seq := uint32(0); seq < 2; seq++ {
		_, _ = ipfix.MessageHeader{
			Version:             version.IPFIX,
			Length:              uint16(ipfix.MessageHeaderLength + set.Len()),
			SequenceNumber:      seq,
			ObservationDomainId: 7,
		}.Encode(file)
		file.Write(set.Bytes())
	}

	stats := ipfix.NewStatistics()
	reader := ipfix.NewFileReader(io.NopCloser(file), netip.MustParseAddr("10.0.0.1"))
	defer reader.Close()

	if err := ipfix.NewCollector(reader, ipfix.NewDecoder(stats)).Run(context.Background()); err != nil {
		fmt.Println(err)
		return
	}

	report := ipfix.NewReport(stats.Snapshot())
	for _, t := range report.TopTemplates {
		fmt.Printf("template %s announced %d times with %d fields\n", t.Key, t.Count, t.DecodedFields)
	}
	for _, f := range report.TopFieldTypes {
		fmt.Printf("%s: %d\n", f.Name, f.Count)
	}
	for _, p := range report.ProblematicFieldTypes {
		fmt.Printf("problematic: %s, %d variable-length\n", p.Name, p.VariableLengthCount)
	}
	// Output:
	// template 10.0.0.1/7/256 announced 2 times with 3 fields
	// sourceIPv4Address: 2
	// destinationIPv4Address: 2
	// interfaceName: 2
	// problematic: interfaceName, 2 variable-length
}
