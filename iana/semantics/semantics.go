package semantics

import (
	"encoding"
	"fmt"
)

// Semantic is the data type semantics column of the IANA registry (RFC 7012, section 3.2)
type Semantic int

const (
	Undefined Semantic = iota

	Default
	Quantity
	TotalCounter
	DeltaCounter
	Identifier
	Flags
	List
	SNMPCounter
	SNMPGauge
)

var (
	_ fmt.Stringer             = Semantic(0)
	_ encoding.TextMarshaler   = Semantic(0)
	_ encoding.TextUnmarshaler = (*Semantic)(nil)
)

var names = map[Semantic]string{
	Default:      "default",
	Quantity:     "quantity",
	TotalCounter: "totalCounter",
	DeltaCounter: "deltaCounter",
	Identifier:   "identifier",
	Flags:        "flags",
	List:         "list",
	SNMPCounter:  "snmpCounter",
	SNMPGauge:    "snmpGauge",
}

func (s Semantic) String() string {
	return names[s]
}

// Counter reports whether values of the element accumulate, i.e., are total or delta counters
func (s Semantic) Counter() bool {
	switch s {
	case TotalCounter, DeltaCounter, SNMPCounter:
		return true
	default:
		return false
	}
}

func (s Semantic) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Semantic) UnmarshalText(in []byte) error {
	*s = Parse(string(in))
	return nil
}

// Parse maps a registry literal onto Semantic. Empty and unknown literals are Undefined.
func Parse(semantic string) Semantic {
	for s, name := range names {
		if name == semantic {
			return s
		}
	}
	return Undefined
}
