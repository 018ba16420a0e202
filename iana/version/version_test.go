package version

import "testing"

func TestVersionString(t *testing.T) {
	tests := []struct {
		v        ProtocolVersion
		expected string
	}{
		{IPFIX, "IPFIX"},
		{ProtocolVersion(10), "IPFIX"},
		{NetFlowV5, "NetFlowV5"},
		{NetFlowV9, "NetFlowV9"},
		{ProtocolVersion(0), "Unknown"},
		{ProtocolVersion(4), "Unknown"},
		{ProtocolVersion(1), "Unknown"},
	}
	for _, tt := range tests {
		if s := tt.v.String(); s != tt.expected {
			t.Fatalf("expected %s for %d, found %s", tt.expected, uint16(tt.v), s)
		}
	}
}

func TestClassify(t *testing.T) {
	for _, v := range Known() {
		if c := Classify(uint16(v)); c != v {
			t.Fatalf("expected %s, found %s", v, c)
		}
	}
	for _, raw := range []uint16{0, 1, 7, 8, 11, 0xFFFF} {
		if c := Classify(raw); c != Unknown {
			t.Fatalf("expected Unknown for %d, found %s", raw, c)
		}
	}
}

func TestMarshalText(t *testing.T) {
	ipfixLit := IPFIX
	if _, err := ipfixLit.MarshalText(); err != nil {
		t.Fatal(err)
	}

	unknown := ProtocolVersion(0)
	if _, err := unknown.MarshalText(); err == nil {
		t.Fatal("expected error for unknown version")
	}
}

func TestUnmarshalText(t *testing.T) {
	p := ProtocolVersion(0)

	if err := p.UnmarshalText([]byte("IPFIX")); err != nil {
		t.Fatal(err)
	}
	if p != IPFIX {
		t.Fatalf("expected IPFIX, found %s", p)
	}

	if err := p.UnmarshalText([]byte("v9")); err != nil || p != NetFlowV9 {
		t.Fatalf("expected NetFlowV9, found %s (%v)", p, err)
	}

	if err := p.UnmarshalText([]byte("unknown")); err == nil {
		t.Fatal("expected error for unknown version")
	}
}
