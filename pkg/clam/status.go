package clam

import (
	"encoding/xml"
)

// CLAM status codes as reported in the status document.
const (
	CodeStaging = 0
	CodeRunning = 1
	CodeDone    = 2
)

// LogEntry is one <log> element of the status document.
// Entries appear in document order, newest first.
type LogEntry struct {
	Time    string `xml:"time,attr"`
	Message string `xml:",chardata"`
}

// StatusDocument is the parsed form of the XML document
// the server returns for a job. XML retains the raw bytes
// so log ingestion can reparse them independently.
type StatusDocument struct {
	Code int
	Logs []LogEntry
	XML  []byte
}

// Done reports whether the remote job has completed.
func (d *StatusDocument) Done() bool {
	return d.Code == CodeDone
}

type statusElement struct {
	Code int        `xml:"code,attr"`
	Logs []LogEntry `xml:"log"`
}

type clamDocument struct {
	XMLName xml.Name      `xml:"clam"`
	Status  statusElement `xml:"status"`
}

// ParseStatus decodes a CLAM status document.
func ParseStatus(data []byte) (*StatusDocument, error) {
	doc := &clamDocument{}

	if err := xml.Unmarshal(data, doc); err != nil {
		return nil, err
	}

	return &StatusDocument{
		Code: doc.Status.Code,
		Logs: doc.Status.Logs,
		XML:  data,
	}, nil
}
