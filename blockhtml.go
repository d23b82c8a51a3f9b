package blockhtml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

//
// Public API
//

// Document is the structured output of one editing session: an ordered list
// of typed blocks plus metadata. Time and Version are never consumed by
// rendering.
// Document is not safe for concurrent modification.
// For concurrent reads, no synchronization is needed.
type Document struct {
	Time    int64   `json:"time,omitempty"`
	Version string  `json:"version,omitempty"`
	Blocks  []Block `json:"blocks"`
}

// BlockType is the tag that selects a block's renderer. Any string is a
// valid BlockType; unrecognised values render a fallback fragment.
type BlockType string

// Recognised block types.
const (
	TypeParagraph BlockType = "paragraph"
	TypeHeader    BlockType = "header"
	TypeList      BlockType = "list"
	TypeImage     BlockType = "image"
	TypeEmbed     BlockType = "embed"
	TypeQuote     BlockType = "quote"
	TypeCode      BlockType = "code"
	TypeTable     BlockType = "table"
	TypeHR        BlockType = "hr"
	TypeWarning   BlockType = "warning"
	TypeLinkTool  BlockType = "linkTool"
	TypeAttaches  BlockType = "attaches"
	TypeMedia     BlockType = "media"
)

// Block is one typed unit of content. Data is kept raw; each renderer decodes
// the shape it needs.
type Block struct {
	Type BlockType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses JSON into a Document.
// - Requires a top-level object; "blocks" may be absent or null
// - Requires every block to be an object
// - Never fails on metadata or type tags; odd values are read leniently
// - Does not look inside block payloads
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrap("decode", "", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return nil, wrap("decode", "", ErrExpectedObject)
		}
		return nil, wrap("decode", "", err)
	}
	if raw == nil {
		return nil, wrap("decode", "", ErrExpectedObject)
	}

	doc := &Document{
		Time:    decodeTime(raw["time"]),
		Version: scalarText(raw["version"]),
	}

	v, ok := raw["blocks"]
	if !ok || isNull(v) {
		return doc, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		return nil, wrap("decode", "blocks", ErrExpectedArray)
	}
	doc.Blocks = make([]Block, 0, len(items))
	for i, item := range items {
		b, err := parseBlock(item, fmt.Sprintf("blocks[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	return doc, nil
}

// DecodeString is a convenience wrapper for Decode.
func DecodeString(s string) (*Document, error) {
	return Decode(strings.NewReader(s))
}

// Encode serializes the document back to JSON.
// - Block payloads are re-emitted as they were decoded
// - HTML characters are not escaped
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// EncodeString is a convenience wrapper for Encode.
func EncodeString(doc *Document) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NewBlock creates a block of type t with data marshaled as its payload.
// A nil data yields a block without payload (e.g. for "hr").
func NewBlock(t BlockType, data any) (Block, error) {
	b := Block{Type: t}
	if data == nil {
		return b, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return Block{}, wrap("block", string(t), err)
	}
	b.Data = json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
	return b, nil
}

// AddBlock appends a new block to the document.
func (d *Document) AddBlock(t BlockType, data any) error {
	b, err := NewBlock(t, data)
	if err != nil {
		return err
	}
	d.Blocks = append(d.Blocks, b)
	return nil
}

// Decode unmarshals the block payload into v. A block without payload
// leaves v untouched.
func (b Block) Decode(v any) error {
	if len(b.Data) == 0 || isNull(b.Data) {
		return nil
	}
	if err := json.Unmarshal(b.Data, v); err != nil {
		return wrap("block", string(b.Type)+".data", err)
	}
	return nil
}

// Walk visits all blocks in document order; stops early on fn error.
func Walk(doc *Document, fn func(index int, b *Block) error) error {
	if doc == nil {
		return nil
	}
	for i := range doc.Blocks {
		if err := fn(i, &doc.Blocks[i]); err != nil {
			return err
		}
	}
	return nil
}

// Filter returns a new document with the blocks matching the predicate.
// Metadata is copied; payloads are copied byte-wise.
func Filter(doc *Document, pred func(*Block) bool) *Document {
	out := &Document{Blocks: make([]Block, 0)}
	if doc == nil {
		return out
	}
	out.Time = doc.Time
	out.Version = doc.Version
	for i := range doc.Blocks {
		if pred(&doc.Blocks[i]) {
			out.Blocks = append(out.Blocks, doc.Blocks[i].clone())
		}
	}
	return out
}

func (b Block) clone() Block {
	out := Block{Type: b.Type}
	if b.Data != nil {
		out.Data = append(json.RawMessage(nil), b.Data...)
	}
	return out
}

//
// Errors (typed + path aware)
//

var (
	ErrExpectedObject = errors.New("expected JSON object")
	ErrExpectedArray  = errors.New("expected JSON array")
)

type Error struct {
	Op   string // "decode", "block"
	Path string // e.g. "blocks[3]"
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("blockhtml %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blockhtml %s at %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Err: err}
}

//
// Parsing (path aware)
//

func parseBlock(b []byte, path string) (Block, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return Block{}, wrap("decode", path, ErrExpectedObject)
	}

	// A missing or non-string tag is kept as text so the block still
	// reaches the fallback renderer.
	blk := Block{Type: BlockType(scalarText(obj["type"]))}
	if d, ok := obj["data"]; ok && !isNull(d) {
		blk.Data = d
	}
	return blk, nil
}

// decodeTime reads the editor timestamp. Fractional values are truncated;
// anything that is not a number yields zero.
func decodeTime(b []byte) int64 {
	if len(b) == 0 || isNull(b) {
		return 0
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		return n
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return int64(f)
	}
	return 0
}

// scalarText returns the literal text of a JSON value, "" when absent.
func scalarText(b []byte) string {
	var s Scalar
	if len(b) == 0 || s.UnmarshalJSON(b) != nil {
		return ""
	}
	return string(s)
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
