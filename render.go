package blockhtml

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Container markup wrapped around every rendered document.
const (
	ContainerOpen  = `<div class="codex-editor"> <div class="codex-editor__redactor" style="padding-bottom:300px;">`
	ContainerClose = `</div></div>`
)

// Renderer turns a JSON-encoded document into HTML.
type Renderer interface {
	Render(document string) string
}

// Outcome classifies a Render call.
type Outcome string

const (
	OutcomeRendered    Outcome = "rendered"
	OutcomePassthrough Outcome = "passthrough"
)

// Observer is notified about every document and block an Engine renders.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveDocument(outcome Outcome)
	ObserveBlock(t BlockType, known bool)
}

// Engine renders documents with the fixed renderer table. An Engine is
// immutable after New and safe for concurrent use.
type Engine struct {
	log zerolog.Logger
	obs Observer
}

var _ Renderer = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output about fallbacks and
// pass-through input. The default logger discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver installs an Observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Render renders input with a default Engine. See (*Engine).Render.
func Render(input string) string {
	return defaultEngine.Render(input)
}

// RenderBlock renders a single block with a default Engine.
func RenderBlock(b Block) string {
	return defaultEngine.RenderBlock(b)
}

// Render validates input and renders it. Input that is not a JSON object,
// or whose blocks cannot be decoded, is returned unchanged.
func (e *Engine) Render(input string) string {
	if !IsValidDocument(input) {
		e.log.Debug().Int("input_len", len(input)).Msg("input is not a JSON object, passing through")
		e.observeDocument(OutcomePassthrough)
		return input
	}
	doc, err := DecodeString(input)
	if err != nil {
		e.log.Debug().Err(err).Msg("document could not be decoded, passing through")
		e.observeDocument(OutcomePassthrough)
		return input
	}
	out := e.RenderDocument(doc)
	e.observeDocument(OutcomeRendered)
	return out
}

// RenderDocument renders an already decoded document inside the container
// markup.
func (e *Engine) RenderDocument(doc *Document) string {
	var sb strings.Builder
	sb.WriteString(ContainerOpen)
	if doc != nil {
		for i := range doc.Blocks {
			e.renderBlock(&sb, doc.Blocks[i])
		}
	}
	sb.WriteString(ContainerClose)
	return sb.String()
}

// RenderBlock renders the fragment for a single block.
func (e *Engine) RenderBlock(b Block) string {
	var sb strings.Builder
	e.renderBlock(&sb, b)
	return sb.String()
}

func (e *Engine) renderBlock(sb *strings.Builder, b Block) {
	fn, ok := renderers[b.Type]
	if !ok {
		e.log.Debug().Str("block_type", string(b.Type)).Msg("no renderer for block type")
		e.observeBlock(b.Type, false)
		writeFallback(sb, b.Type)
		return
	}
	var frag strings.Builder
	if err := fn(&frag, b); err != nil {
		e.log.Debug().Err(err).Str("block_type", string(b.Type)).Msg("block payload could not be decoded")
		e.observeBlock(b.Type, false)
		writeFallback(sb, b.Type)
		return
	}
	e.observeBlock(b.Type, true)
	sb.WriteString(frag.String())
}

func (e *Engine) observeDocument(o Outcome) {
	if e.obs != nil {
		e.obs.ObserveDocument(o)
	}
}

func (e *Engine) observeBlock(t BlockType, known bool) {
	if e.obs != nil {
		e.obs.ObserveBlock(t, known)
	}
}

// BlockTypes returns the recognised block types in sorted order.
func BlockTypes() []BlockType {
	out := make([]BlockType, 0, len(renderers))
	for t := range renderers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsKnown reports whether t has a dedicated renderer.
func IsKnown(t BlockType) bool {
	_, ok := renderers[t]
	return ok
}

//
// Renderer table
//

type renderFunc func(sb *strings.Builder, b Block) error

// renderers is never written after package initialization.
var renderers = map[BlockType]renderFunc{
	TypeParagraph: renderParagraph,
	TypeHeader:    renderHeader,
	TypeList:      renderList,
	TypeImage:     renderImage,
	TypeEmbed:     renderEmbed,
	TypeQuote:     renderQuote,
	TypeCode:      renderCode,
	TypeTable:     renderTable,
	TypeHR:        renderHR,
	TypeWarning:   renderWarning,
	TypeLinkTool:  renderLinkTool,
	TypeAttaches:  renderAttaches,
	TypeMedia:     renderMedia,
}

func writeFallback(sb *strings.Builder, t BlockType) {
	sb.WriteString("<p>The block ")
	sb.WriteString(string(t))
	sb.WriteString(" could not be created.</p>")
}

func renderParagraph(sb *strings.Builder, b Block) error {
	var d ParagraphData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString("<p>" + d.Text.String() + "</p>")
	return nil
}

func renderHeader(sb *strings.Builder, b Block) error {
	var d HeaderData
	if err := b.Decode(&d); err != nil {
		return err
	}
	lvl := d.Level.String()
	sb.WriteString("<h" + lvl + ">" + d.Text.String() + "</h" + lvl + ">")
	return nil
}

func renderList(sb *strings.Builder, b Block) error {
	var d ListData
	if err := b.Decode(&d); err != nil {
		return err
	}
	tag := "ul"
	if d.Ordered() {
		tag = "ol"
	}
	sb.WriteString("<" + tag + ">")
	for _, item := range d.Items {
		sb.WriteString("<li>" + item.String() + "</li>")
	}
	sb.WriteString("</" + tag + ">")
	return nil
}

func renderImage(sb *strings.Builder, b Block) error {
	var d ImageData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<img src="` + d.File.URL.String() + `" alt="` + d.Alt.String() + `" />`)
	sb.WriteString(`<span class="editor-image-caption">` + d.Caption.String() + `</span>`)
	return nil
}

func renderEmbed(sb *strings.Builder, b Block) error {
	var d EmbedData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<iframe src="` + d.URL.String() + `" width="` + d.Width.String() +
		`" height="` + d.Height.String() + `" frameborder="0" allowfullscreen></iframe>`)
	return nil
}

func renderQuote(sb *strings.Builder, b Block) error {
	var d QuoteData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<blockquote class="blockquote">"` + d.Text.String() + `"</blockquote>`)
	sb.WriteString(`<span class="blockquote-caption">` + d.Caption.String() + `</span>`)
	return nil
}

func renderCode(sb *strings.Builder, b Block) error {
	var d CodeData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString("<pre><code>" + d.Code.String() + "</code></pre>")
	return nil
}

func renderTable(sb *strings.Builder, b Block) error {
	var d TableData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString("<table>")
	for i, row := range d.Content {
		if i == 0 {
			sb.WriteString("<thead>")
			for _, cell := range row {
				sb.WriteString("<th>" + cell.String() + "</th>")
			}
			sb.WriteString("</thead>")
			continue
		}
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>" + cell.String() + "</td>")
		}
		sb.WriteString("</tr>")
	}
	sb.WriteString("</table>")
	return nil
}

func renderHR(sb *strings.Builder, _ Block) error {
	sb.WriteString("<hr>")
	return nil
}

func renderWarning(sb *strings.Builder, b Block) error {
	var d WarningData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<div class="warning-title">` + d.Title.String() + `</div>`)
	sb.WriteString(`<div class="warning-message">` + d.Message.String() + `</div>`)
	return nil
}

// Indentation inside the multi-line link and file templates.
var (
	indent22 = strings.Repeat(" ", 22)
	indent24 = strings.Repeat(" ", 24)
	indent26 = strings.Repeat(" ", 26)
	indent28 = strings.Repeat(" ", 28)
)

func renderLinkTool(sb *strings.Builder, b Block) error {
	var d LinkToolData
	if err := b.Decode(&d); err != nil {
		return err
	}
	link := NormalizeURL(d.Link.String())
	title := d.Meta.Title.String()
	if title == "" {
		title = "No Title"
	}
	description := d.Meta.Description.String()
	if description == "" {
		description = "No Description"
	}

	sb.WriteString("<div class=\"link-tool\">\n" + indent28)
	sb.WriteString(`<a class="link-tool__content link-tool__content--rendered" target="_blank" rel="nofollow noindex noreferrer" href="` + link + `">`)
	if img := d.Meta.Image.URL.String(); img != "" {
		sb.WriteString(`<div class="link-tool__image"><img src="` + img + `" alt="` + title + `" /></div>`)
	}
	sb.WriteString(`<div class="link-tool__title">` + title + "</div>\n" + indent28)
	sb.WriteString(`<p class="link-tool__description">` + description + "</p>\n" + indent28)
	sb.WriteString(`<span class="link-tool__anchor">` + link + "</span></a>\n" + indent26)
	sb.WriteString("</div>")
	return nil
}

func renderAttaches(sb *strings.Builder, b Block) error {
	var d AttachesData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<a class="file-link" href="` + d.File.URL.String() + `" target="_blank" rel="nofollow noindex noreferrer">` + "\n")
	sb.WriteString(indent22 + `<div class="file-block">` + "\n")
	sb.WriteString(indent24 + "\n")
	sb.WriteString(indent24 + "\n")
	sb.WriteString(indent24 + `<span class="fiv-cla fiv-icon-ppt fiv-size-lg"></span>&nbsp;` + "\n")
	sb.WriteString(indent24 + `<span class="file-name">` + d.Title.String() + "</span>\n")
	sb.WriteString(indent24 + "\n")
	sb.WriteString(indent22 + "</div></a>")
	return nil
}

func renderMedia(sb *strings.Builder, b Block) error {
	var d MediaData
	if err := b.Decode(&d); err != nil {
		return err
	}
	sb.WriteString(`<div class="media">`)
	for _, item := range d.Items {
		sb.WriteString(`<div class="media-body">` + item.String() + `</div>`)
	}
	sb.WriteString("</div>")
	return nil
}
