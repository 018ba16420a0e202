package status

import (
	"encoding"
	"fmt"
)

// Status is the registration status of an information element in the IANA registry
type Status int

const (
	Undefined Status = iota

	Current

	// Deprecated elements may still be sent by older exporters, but should not be in new templates
	Deprecated

	Obsolete
)

var (
	_ fmt.Stringer             = Status(0)
	_ encoding.TextMarshaler   = Status(0)
	_ encoding.TextUnmarshaler = (*Status)(nil)
)

func (s Status) String() string {
	switch s {
	case Current:
		return "current"
	case Deprecated:
		return "deprecated"
	case Obsolete:
		return "obsolete"
	default:
		return ""
	}
}

// Retired reports whether exporters should no longer use the element
func (s Status) Retired() bool {
	return s == Deprecated || s == Obsolete
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(in []byte) error {
	*s = Parse(string(in))
	return nil
}

// Parse maps the registry's status column onto Status. Unknown literals are Undefined.
func Parse(status string) Status {
	switch status {
	case "current":
		return Current
	case "deprecated":
		return Deprecated
	case "obsolete":
		return Obsolete
	default:
		return Undefined
	}
}
