package clam

import (
	"encoding/xml"

	"github.com/pkg/errors"
)

// MetadataDocument is the service index a CLAM server
// publishes at its root: the system description and the
// profiles a job can be started with.
type MetadataDocument struct {
	XMLName     xml.Name      `xml:"clam"`
	System      string        `xml:"name,attr"`
	Description string        `xml:"description"`
	Profiles    []ProfileSpec `xml:"profiles>profile"`
}

// ProfileSpec is one invocation profile as declared by the
// server.
type ProfileSpec struct {
	Templates []TemplateSpec `xml:"input>InputTemplate"`
}

// TemplateSpec is one input slot of a profile.
type TemplateSpec struct {
	ID            string `xml:"id,attr"`
	Format        string `xml:"format,attr"`
	Label         string `xml:"label,attr"`
	Extension     string `xml:"extension,attr"`
	Optional      bool   `xml:"optional,attr"`
	Unique        bool   `xml:"unique,attr"`
	AcceptArchive bool   `xml:"acceptarchive,attr"`
}

// ParseMetadata decodes a service index document.
func ParseMetadata(data []byte) (*MetadataDocument, error) {
	doc := &MetadataDocument{}
	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse clam metadata document")
	}

	return doc, nil
}
