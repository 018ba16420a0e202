package ipfix

import (
	"fmt"

	"github.com/zoomoid/ipfix-inspect/iana/semantics"
	"github.com/zoomoid/ipfix-inspect/iana/status"
)

// InformationElement is the part of an IANA registry entry needed to label field types
type InformationElement struct {
	Id   uint16 `json:"id,omitempty" yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Type      string             `json:"type,omitempty" yaml:"type,omitempty"`
	Semantics semantics.Semantic `json:"semantics,omitempty" yaml:"semantics,omitempty"`
	Status    status.Status      `json:"status,omitempty" yaml:"status,omitempty"`
	Units     string             `json:"units,omitempty" yaml:"units,omitempty"`
}

func (i InformationElement) String() string {
	return fmt.Sprintf("%s(%d)<%s>", i.Name, i.Id, i.Type)
}
