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
	"embed"
)

const (
	// MessageHeaderLength is the fixed size of an IPFIX message header
	MessageHeaderLength int = 16
	// SetHeaderLength is the fixed size of a Set header, which is also the smallest legal Set length
	SetHeaderLength int = 4
	// TemplateRecordHeaderLength is the size of template id and field count
	TemplateRecordHeaderLength int = 4

	// VariableLength is the field length announced in templates for variable-length encoded fields
	VariableLength uint16 = 0xFFFF

	// LargeFieldLength is the bound above which a field length is considered unusual
	LargeFieldLength uint16 = 1000

	// MaxDatagramSize is the largest possible UDP payload
	MaxDatagramSize int = 0xFFFF

	// penMask is the enterprise bit in a field specifier's type code
	penMask uint16 = 0x8000
)

// Set ids as assigned by RFC 7011, section 3.3.2. Ids 0 and 1 are unused for historical
// reasons, 4 to 255 are reserved.
const (
	TemplateSetId        uint16 = 2
	OptionsTemplateSetId uint16 = 3
	MinDataSetId         uint16 = 256
)

var (
	ianaIpfixIEs map[uint16]InformationElement

	//go:embed hack/ipfix-information-elements.csv
	registry embed.FS
)

func init() {
	iif, _ := registry.ReadFile("hack/ipfix-information-elements.csv")
	ianaIpfixIEs = MustReadCSV(bytes.NewBuffer(iif))
}

// IANA returns the embedded excerpt of the IANA IPFIX information element registry
func IANA() map[uint16]InformationElement {
	return ianaIpfixIEs
}
