/*
Package blockhtml renders block-structured editor documents into static HTML.

A document is the JSON a block editor saves: a timestamp, a version and an
ordered list of typed blocks (paragraph, header, list, image, ...). This
package turns that JSON into a fixed HTML fragment for read-only display.

# Quick Start

Render a saved document:

	html := blockhtml.Render(`{"blocks":[{"type":"paragraph","data":{"text":"Hi"}}]}`)
	// <div class="codex-editor"> <div class="codex-editor__redactor" style="padding-bottom:300px;"><p>Hi</p></div></div>

Input that is not a JSON object is returned unchanged:

	blockhtml.Render("not json") // "not json"

# Core Types

  - Document: metadata plus an ordered list of blocks
  - Block: a type tag and a raw JSON payload
  - Scalar: a payload slot that accepts any JSON scalar
  - Engine: the renderer; safe for concurrent use

Per-type payload structs (ParagraphData, HeaderData, ListData, ...) describe
the fields each renderer reads. Absent fields render as empty strings.

# Block Types

	paragraph  <p>{text}</p>
	header     <h{level}>{text}</h{level}>
	list       <ol> or <ul> with one <li> per item
	image      <img> followed by a caption <span>
	embed      <iframe>
	quote      <blockquote> followed by a caption <span>
	code       <pre><code>{code}</code></pre>
	table      first row as <thead>/<th>, other rows as <tr>/<td>
	hr         <hr>
	warning    title and message <div>s
	linkTool   link card; the link gets an "http://" prefix when it lacks "http"
	attaches   file link card
	media      <div class="media"> with one media-body <div> per item

Any other type renders

	<p>The block {type} could not be created.</p>

and rendering continues with the next block. The same fallback is used when a
recognised block carries a payload of the wrong shape.

# Engines

The package-level Render and RenderBlock use a silent default engine. Build
your own to attach logging or metrics:

	eng := blockhtml.New(
		blockhtml.WithLogger(zlog),
		blockhtml.WithObserver(collector),
	)
	html := eng.Render(input)

# Decoding and Encoding

	doc, err := blockhtml.DecodeString(input)
	out, err := blockhtml.EncodeString(doc)

Decoding errors carry the path of the offending value:

	var bErr *blockhtml.Error
	if errors.As(err, &bErr) {
		fmt.Println(bErr.Path) // e.g. "blocks[2]"
	}

# Building Documents

	doc := &blockhtml.Document{Version: "2.22.2"}
	doc.AddBlock(blockhtml.TypeHeader, blockhtml.HeaderData{Level: "2", Text: "Title"})
	doc.AddBlock(blockhtml.TypeHR, nil)
	html := blockhtml.New().RenderDocument(doc)

# Escaping

Text is embedded exactly as stored. Nothing is escaped; sanitize documents
from untrusted sources before rendering.
*/
package blockhtml
