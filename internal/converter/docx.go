package converter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/docsnatch/docsnatch/internal/domain"
	"github.com/docsnatch/docsnatch/internal/utils"
)

const (
	numIDBullet  = 1
	numIDDecimal = 2
	maxListLevel = 8
)

var whitespaceRegex = regexp.MustCompile(`[ \t\r\n\f]+`)

// DocxConverter renders an HTML fragment into a WordprocessingML package.
// Headings, lists, tables, hyperlinks, preformatted blocks, and inline
// bold/italic/underline/strike/monospace formatting are preserved; images
// and everything presentational are dropped.
type DocxConverter struct{}

// NewDocxConverter creates a new DOCX converter
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{}
}

// Convert parses htmlContent and returns the bytes of a .docx package
func (c *DocxConverter) Convert(htmlContent string) ([]byte, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConversionFailed, err)
	}

	body := findBody(root)
	if body == nil {
		body = root
	}

	b := &docxBuilder{}
	b.walkChildren(body, blockContext{}, runFormat{})
	b.flushPara()
	if len(b.blocks) == 0 {
		// a document body must hold at least one paragraph
		b.blocks = append(b.blocks, &wP{})
	}

	return b.assemble()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// blockContext carries the paragraph-level state inherited from enclosing
// block elements
type blockContext struct {
	numID int
	ilvl  int
	quote bool
}

// list returns the context for items of a nested or top-level list
func (c blockContext) list(numID int) blockContext {
	next := c
	if next.numID != 0 {
		next.ilvl++
		if next.ilvl > maxListLevel {
			next.ilvl = maxListLevel
		}
	}
	next.numID = numID
	return next
}

// runFormat carries the character-level state inherited from enclosing
// inline elements
type runFormat struct {
	bold      bool
	italic    bool
	underline bool
	strike    bool
	mono      bool
	linkID    string
}

type docxBuilder struct {
	blocks []any // *wP or *wTbl
	rels   []relationship
	para   *wP
}

func (b *docxBuilder) walkChildren(n *html.Node, ctx blockContext, f runFormat) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.walkNode(c, ctx, f)
	}
}

func (b *docxBuilder) walkNode(n *html.Node, ctx blockContext, f runFormat) {
	switch n.Type {
	case html.TextNode:
		b.appendText(ctx, f, n.Data)
	case html.ElementNode:
		b.walkElement(n, ctx, f)
	case html.DocumentNode:
		b.walkChildren(n, ctx, f)
	}
}

func (b *docxBuilder) walkElement(n *html.Node, ctx blockContext, f runFormat) {
	switch n.Data {
	case "head", "script", "style", "noscript", "iframe", "img":
		return
	case "p":
		b.paragraph(n, ctx, "", f)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		b.paragraph(n, ctx, "Heading"+n.Data[1:], f)
	case "ul":
		b.flushPara()
		b.walkChildren(n, ctx.list(numIDBullet), f)
		b.flushPara()
	case "ol":
		b.flushPara()
		b.walkChildren(n, ctx.list(numIDDecimal), f)
		b.flushPara()
	case "li":
		b.paragraph(n, ctx, "", f)
	case "table":
		b.flushPara()
		if tbl := b.buildTable(n); tbl != nil {
			b.blocks = append(b.blocks, tbl)
		}
	case "pre":
		b.preformatted(n, ctx)
	case "blockquote":
		b.flushPara()
		quoted := ctx
		quoted.quote = true
		b.walkChildren(n, quoted, f)
		b.flushPara()
	case "div", "section", "article", "main", "header", "footer", "aside",
		"nav", "figure", "figcaption", "details", "summary", "hr":
		b.flushPara()
		b.walkChildren(n, ctx, f)
		b.flushPara()
	case "br":
		b.appendRun(ctx, f, &wR{Br: &wEmpty{}})
	case "b", "strong":
		f.bold = true
		b.walkChildren(n, ctx, f)
	case "i", "em":
		f.italic = true
		b.walkChildren(n, ctx, f)
	case "u", "ins":
		f.underline = true
		b.walkChildren(n, ctx, f)
	case "s", "strike", "del":
		f.strike = true
		b.walkChildren(n, ctx, f)
	case "code", "kbd", "samp", "tt":
		f.mono = true
		b.walkChildren(n, ctx, f)
	case "a":
		// nested anchors keep the outer target
		if href := attrVal(n, "href"); href != "" && f.linkID == "" {
			f.linkID = b.addHyperlink(href)
		}
		b.walkChildren(n, ctx, f)
	default:
		b.walkChildren(n, ctx, f)
	}
}

// paragraph emits n as one paragraph with the given style
func (b *docxBuilder) paragraph(n *html.Node, ctx blockContext, style string, f runFormat) {
	b.flushPara()
	b.openPara(ctx, style)
	b.walkChildren(n, ctx, f)
	b.flushPara()
}

// preformatted emits the text of a pre block verbatim, one run per line
func (b *docxBuilder) preformatted(n *html.Node, ctx blockContext) {
	b.flushPara()
	text := strings.Trim(textContent(n), "\n")
	if text == "" {
		return
	}
	p := &wP{PPr: paraProps(ctx, "")}
	mono := runFormat{mono: true}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.Content = append(p.Content, &wR{Br: &wEmpty{}})
		}
		if line == "" {
			continue
		}
		p.Content = append(p.Content, &wR{
			RPr:  runProps(mono),
			Text: &wText{Space: "preserve", Text: line},
		})
	}
	b.blocks = append(b.blocks, p)
}

func (b *docxBuilder) buildTable(n *html.Node) *wTbl {
	var rows []*wTr
	cols := 0
	for _, tr := range tableRows(n) {
		var cells []*wTc
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
				continue
			}
			cells = append(cells, b.buildCell(td))
		}
		if len(cells) == 0 {
			continue
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, &wTr{Cells: cells})
	}
	if len(rows) == 0 {
		return nil
	}

	return &wTbl{
		TblPr: wTblPr{
			TblW:       wTblW{W: 0, Type: "auto"},
			TblBorders: defaultTblBorders(),
		},
		Grid: wTblGrid{Cols: make([]wGridCol, cols)},
		Rows: rows,
	}
}

// buildCell renders one td/th by redirecting the block sink into the cell.
// Relationship state stays shared so cell hyperlinks register normally.
func (b *docxBuilder) buildCell(td *html.Node) *wTc {
	savedBlocks, savedPara := b.blocks, b.para
	b.blocks, b.para = nil, nil

	b.walkChildren(td, blockContext{}, runFormat{bold: td.Data == "th"})
	b.flushPara()
	content := b.blocks

	b.blocks, b.para = savedBlocks, savedPara

	// a cell must end with a paragraph
	if len(content) == 0 {
		return &wTc{Content: []any{&wP{}}}
	}
	if _, ok := content[len(content)-1].(*wP); !ok {
		content = append(content, &wP{})
	}
	return &wTc{Content: content}
}

func tableRows(n *html.Node) []*html.Node {
	var rows []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			rows = append(rows, tableRows(c)...)
		}
	}
	return rows
}

func defaultTblBorders() wTblBorders {
	border := wBorder{Val: "single", Sz: 4, Color: "auto"}
	return wTblBorders{
		Top:     border,
		Left:    border,
		Bottom:  border,
		Right:   border,
		InsideH: border,
		InsideV: border,
	}
}

func (b *docxBuilder) openPara(ctx blockContext, style string) {
	b.para = &wP{PPr: paraProps(ctx, style)}
}

func (b *docxBuilder) ensurePara(ctx blockContext) *wP {
	if b.para == nil {
		b.openPara(ctx, "")
	}
	return b.para
}

// flushPara normalizes and emits the open paragraph, dropping it when
// nothing remains after whitespace cleanup
func (b *docxBuilder) flushPara() {
	if b.para == nil {
		return
	}
	p := b.para
	b.para = nil
	normalizePara(p)
	if len(p.Content) == 0 {
		return
	}
	b.blocks = append(b.blocks, p)
}

func (b *docxBuilder) appendText(ctx blockContext, f runFormat, raw string) {
	text := whitespaceRegex.ReplaceAllString(raw, " ")
	if strings.TrimSpace(text) == "" {
		// pure whitespace only separates words inside an open paragraph
		if b.para == nil || len(b.para.Content) == 0 {
			return
		}
		text = " "
	}
	b.appendRun(ctx, f, &wR{
		RPr:  runProps(f),
		Text: &wText{Space: "preserve", Text: text},
	})
}

func (b *docxBuilder) appendRun(ctx blockContext, f runFormat, r *wR) {
	p := b.ensurePara(ctx)
	if f.linkID == "" {
		p.Content = append(p.Content, r)
		return
	}
	if last, ok := lastHyperlink(p); ok && last.RID == f.linkID {
		last.Runs = append(last.Runs, r)
		return
	}
	p.Content = append(p.Content, &wHyperlink{RID: f.linkID, Runs: []*wR{r}})
}

func lastHyperlink(p *wP) (*wHyperlink, bool) {
	if len(p.Content) == 0 {
		return nil, false
	}
	h, ok := p.Content[len(p.Content)-1].(*wHyperlink)
	return h, ok
}

func (b *docxBuilder) addHyperlink(target string) string {
	// rId1 and rId2 are reserved for styles and numbering
	id := fmt.Sprintf("rId%d", len(b.rels)+3)
	b.rels = append(b.rels, relationship{
		ID:         id,
		Type:       relTypeHyperlink,
		Target:     target,
		TargetMode: "External",
	})
	return id
}

func paraProps(ctx blockContext, style string) *wPPr {
	if style == "" && ctx.quote {
		style = "Quote"
	}
	if style == "" && ctx.numID == 0 {
		return nil
	}
	props := &wPPr{}
	if style != "" {
		props.PStyle = &wVal{Val: style}
	}
	if ctx.numID != 0 {
		props.NumPr = &wNumPr{
			Ilvl:  wIntVal{Val: ctx.ilvl},
			NumID: wIntVal{Val: ctx.numID},
		}
	}
	return props
}

func runProps(f runFormat) *wRPr {
	if !f.bold && !f.italic && !f.underline && !f.strike && !f.mono && f.linkID == "" {
		return nil
	}
	props := &wRPr{}
	if f.linkID != "" {
		props.RStyle = &wVal{Val: "Hyperlink"}
	}
	if f.mono {
		props.RFonts = &wRFonts{ASCII: "Consolas", HAnsi: "Consolas"}
	}
	if f.bold {
		props.B = &wEmpty{}
	}
	if f.italic {
		props.I = &wEmpty{}
	}
	if f.strike {
		props.Strike = &wEmpty{}
	}
	if f.underline {
		props.U = &wVal{Val: "single"}
	}
	return props
}

// normalizePara collapses the spaces that indented markup introduces
// between runs and drops runs left empty by the cleanup
func normalizePara(p *wP) {
	runs := paraRuns(p)
	drop := make(map[*wR]bool)

	prevEndsSpace := true // the paragraph start acts as a boundary
	for _, r := range runs {
		if r.Br != nil {
			prevEndsSpace = true
			continue
		}
		if r.Text == nil || r.Text.Text == "" {
			drop[r] = true
			continue
		}
		if prevEndsSpace {
			r.Text.Text = strings.TrimLeft(r.Text.Text, " ")
		}
		if r.Text.Text == "" {
			drop[r] = true
			continue
		}
		prevEndsSpace = strings.HasSuffix(r.Text.Text, " ")
	}

	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		if drop[r] {
			continue
		}
		if r.Br != nil {
			break
		}
		r.Text.Text = strings.TrimRight(r.Text.Text, " ")
		if r.Text.Text == "" {
			drop[r] = true
		}
		break
	}

	var content []any
	for _, item := range p.Content {
		switch v := item.(type) {
		case *wR:
			if !drop[v] {
				content = append(content, v)
			}
		case *wHyperlink:
			var kept []*wR
			for _, r := range v.Runs {
				if !drop[r] {
					kept = append(kept, r)
				}
			}
			if len(kept) > 0 {
				v.Runs = kept
				content = append(content, v)
			}
		default:
			content = append(content, item)
		}
	}
	p.Content = content
}

func paraRuns(p *wP) []*wR {
	var runs []*wR
	for _, item := range p.Content {
		switch v := item.(type) {
		case *wR:
			runs = append(runs, v)
		case *wHyperlink:
			runs = append(runs, v.Runs...)
		}
	}
	return runs
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
			return
		}
		if m.Type == html.ElementNode && m.Data == "br" {
			sb.WriteString("\n")
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// assemble marshals the document parts and zips them into the package
func (b *docxBuilder) assemble() ([]byte, error) {
	doc := wDocument{
		XmlnsW: xmlnsW,
		XmlnsR: xmlnsR,
		Body: wBody{
			Blocks: b.blocks,
			SectPr: wSectPr{
				PgSz:  wPgSz{W: 11906, H: 16838},
				PgMar: wPgMar{Top: 1440, Right: 1440, Bottom: 1440, Left: 1440},
			},
		},
	}
	docXML, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal document: %v", domain.ErrConversionFailed, err)
	}

	relsXML, err := xml.Marshal(b.documentRels())
	if err != nil {
		return nil, fmt.Errorf("%w: marshal relationships: %v", domain.ErrConversionFailed, err)
	}

	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{"word/document.xml", append([]byte(xmlProlog), docXML...)},
		{"word/_rels/document.xml.rels", append([]byte(xmlProlog), relsXML...)},
		{"word/styles.xml", []byte(stylesXML)},
		{"word/numbering.xml", []byte(numberingXML)},
	}

	var buf bytes.Buffer
	zw := utils.NewZipWriter(&buf)
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %v", domain.ErrConversionFailed, part.name, err)
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrConversionFailed, part.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close package: %v", domain.ErrConversionFailed, err)
	}
	return buf.Bytes(), nil
}

func (b *docxBuilder) documentRels() relationships {
	rels := []relationship{
		{ID: "rId1", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles", Target: "styles.xml"},
		{ID: "rId2", Type: "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering", Target: "numbering.xml"},
	}
	return relationships{
		Xmlns: "http://schemas.openxmlformats.org/package/2006/relationships",
		Rels:  append(rels, b.rels...),
	}
}
