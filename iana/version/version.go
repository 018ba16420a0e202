package version

import (
	"errors"
	"strings"
)

// ProtocolVersion is the version number found in the first two bytes of every
// NetFlow and IPFIX message header
type ProtocolVersion uint16

var (
	ErrUnknownProtocolVersion = errors.New("unknown protocol version")
)

const (
	Unknown ProtocolVersion = 0

	NetFlowV5 ProtocolVersion = 5
	NetFlowV9 ProtocolVersion = 9
	IPFIX     ProtocolVersion = 10
)

// Known returns all versions that are recognized by their header
func Known() []ProtocolVersion {
	return []ProtocolVersion{NetFlowV5, NetFlowV9, IPFIX}
}

// Classify maps a raw version number onto the closed set of known versions,
// returning Unknown for everything else
func Classify(v uint16) ProtocolVersion {
	switch p := ProtocolVersion(v); p {
	case NetFlowV5, NetFlowV9, IPFIX:
		return p
	default:
		return Unknown
	}
}

func (p ProtocolVersion) String() string {
	switch p {
	case NetFlowV5:
		return "NetFlowV5"
	case NetFlowV9:
		return "NetFlowV9"
	case IPFIX:
		return "IPFIX"
	default:
		return "Unknown"
	}
}

func (p ProtocolVersion) MarshalText() ([]byte, error) {
	s := p.String()
	if s == "Unknown" {
		return nil, ErrUnknownProtocolVersion
	}
	return []byte(s), nil
}

func (p *ProtocolVersion) UnmarshalText(in []byte) error {
	switch strings.ToLower(string(in)) {
	case "netflowv5", "v5":
		*p = NetFlowV5
	case "netflowv9", "v9":
		*p = NetFlowV9
	case "ipfix":
		*p = IPFIX
	default:
		return ErrUnknownProtocolVersion
	}
	return nil
}
