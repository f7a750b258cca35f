package script

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Payload is what gets handed to the script editor.
type Payload struct {
	MainTitle     string    `json:"mainTitle" jsonschema:"description=Main title or the document title"`
	AltTitle1     string    `json:"altTitle1"`
	AltTitle2     string    `json:"altTitle2"`
	Description   string    `json:"description"`
	Chapters      []Chapter `json:"chapters"`
	RawText       string    `json:"rawText"`
	FromMindMap   bool      `json:"fromMindMap"`
	DocumentID    string    `json:"documentId"`
	DocumentTitle string    `json:"documentTitle"`
}

// NewPayload builds the hand-off for an extracted script.
func NewPayload(s ExtractedScript, raw, documentID, documentTitle string) Payload {
	title := s.MainTitle
	if title == "" {
		title = documentTitle
	}
	chapters := s.Chapters
	if chapters == nil {
		chapters = []Chapter{}
	}
	return Payload{
		MainTitle:     title,
		AltTitle1:     s.AltTitle1,
		AltTitle2:     s.AltTitle2,
		Description:   s.Description,
		Chapters:      chapters,
		RawText:       raw,
		FromMindMap:   true,
		DocumentID:    documentID,
		DocumentTitle: documentTitle,
	}
}

// PayloadSchema returns the JSON schema of Payload for downstream consumers.
func PayloadSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return json.MarshalIndent(r.Reflect(&Payload{}), "", "  ")
}
