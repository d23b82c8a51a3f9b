package blockhtml

import (
	"bytes"
	"encoding/json"
)

// Scalar is a markup slot value. It accepts any JSON scalar and keeps its
// literal text: strings are unquoted, numbers and booleans are kept as
// written, null becomes the empty string. Objects and arrays keep their raw
// JSON text.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, isNull(b):
		*s = ""
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	default:
		*s = Scalar(b)
	}
	return nil
}

func (s Scalar) String() string { return string(s) }

// ParagraphData is the payload of a "paragraph" block.
type ParagraphData struct {
	Text Scalar `json:"text"`
}

// HeaderData is the payload of a "header" block. Level is expected in 1..6
// but is not checked.
type HeaderData struct {
	Level Scalar `json:"level"`
	Text  Scalar `json:"text"`
}

// ListData is the payload of a "list" block.
type ListData struct {
	Style Scalar   `json:"style"`
	Items []Scalar `json:"items"`
}

// Ordered reports whether the list renders as <ol>.
func (l ListData) Ordered() bool { return l.Style == "ordered" }

// FileRef points at an uploaded file.
type FileRef struct {
	URL Scalar `json:"url"`
}

// ImageData is the payload of an "image" block.
type ImageData struct {
	File    FileRef `json:"file"`
	Alt     Scalar  `json:"alt"`
	Caption Scalar  `json:"caption"`
}

// EmbedData is the payload of an "embed" block.
type EmbedData struct {
	URL    Scalar `json:"url"`
	Width  Scalar `json:"width"`
	Height Scalar `json:"height"`
}

// QuoteData is the payload of a "quote" block.
type QuoteData struct {
	Text    Scalar `json:"text"`
	Caption Scalar `json:"caption"`
}

// CodeData is the payload of a "code" block.
type CodeData struct {
	Code Scalar `json:"code"`
}

// TableData is the payload of a "table" block. Row 0 is the header row.
type TableData struct {
	Content [][]Scalar `json:"content"`
}

// WarningData is the payload of a "warning" block.
type WarningData struct {
	Title   Scalar `json:"title"`
	Message Scalar `json:"message"`
}

// LinkMeta is the metadata fetched for a "linkTool" block.
type LinkMeta struct {
	Title       Scalar  `json:"title"`
	Description Scalar  `json:"description"`
	Image       FileRef `json:"image"`
}

// LinkToolData is the payload of a "linkTool" block.
type LinkToolData struct {
	Link Scalar   `json:"link"`
	Meta LinkMeta `json:"meta"`
}

// AttachesData is the payload of an "attaches" block.
type AttachesData struct {
	File  FileRef `json:"file"`
	Title Scalar  `json:"title"`
}

// MediaData is the payload of a "media" block.
type MediaData struct {
	Items []Scalar `json:"items"`
}
