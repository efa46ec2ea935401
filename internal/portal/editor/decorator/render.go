package decorator

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	policy "github.com/aisa-it/portal/portal.go/internal/portal/redactor-policy"
	"github.com/tdewolff/minify/v2"
	minifyhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
)

// HTMLRenderer строит HTML документа. Узлы-декораторы отрисовываются функциями реестра,
// их внутреннее содержимое обходчиком не просматривается.
type HTMLRenderer struct {
	registry *Registry
	minifier *minify.M
}

func NewHTMLRenderer(registry *Registry) *HTMLRenderer {
	if registry == nil {
		registry = Default()
	}
	m := minify.New()
	m.AddFunc("text/html", minifyhtml.Minify)
	return &HTMLRenderer{registry: registry, minifier: m}
}

// Render возвращает очищенный и минифицированный HTML документа.
func (r *HTMLRenderer) Render(doc edtypes.SerializedEditorState) (string, error) {
	var buf bytes.Buffer
	for _, child := range doc.Root.Children {
		if err := html.Render(&buf, r.RenderNode(child)); err != nil {
			return "", err
		}
	}

	clean := policy.UgcPolicy.SanitizeBytes(buf.Bytes())
	out, err := r.minifier.Bytes("text/html", clean)
	if err != nil {
		slog.Warn("Minify document html", "err", err)
		return string(clean), nil
	}
	return string(out), nil
}

// RenderNode строит DOM-узел для узла документа.
func (r *HTMLRenderer) RenderNode(n edtypes.SerializedNode) *html.Node {
	if e, ok := r.registry.Lookup(n.Type); ok {
		return e.Render(n)
	}

	a := n.Attrs
	var el *html.Node
	switch n.Type {
	case edtypes.TextNode:
		return renderText(a)
	case edtypes.LineBreakNode:
		return element("br")
	case edtypes.ParagraphNode:
		el = element("p", "dir", a.Direction, "style", blockStyle(a))
	case edtypes.HeadingNode:
		el = element(edtypes.HeadingTag(edtypes.HeadingLevel(a.Tag)), "dir", a.Direction, "style", blockStyle(a))
	case edtypes.ListNode:
		switch a.ListType {
		case "number":
			start := ""
			if a.Start > 1 {
				start = strconv.Itoa(a.Start)
			}
			el = element("ol", "start", start)
		case "check":
			el = element("ul", "data-type", "check")
		default:
			el = element("ul")
		}
	case edtypes.ListItemNode:
		checked := ""
		if a.Checked != nil {
			checked = strconv.FormatBool(*a.Checked)
		}
		el = element("li", "data-checked", checked, "style", blockStyle(a))
	case edtypes.LinkNode, edtypes.AutoLinkNode:
		el = element("a", "href", a.URL, "target", a.Target, "rel", a.Rel, "title", a.Title)
	case edtypes.TableNode:
		el = element("table")
		body := element("tbody")
		el.AppendChild(body)
		for _, child := range n.Children {
			body.AppendChild(r.RenderNode(child))
		}
		return el
	case edtypes.TableRowNode:
		el = element("tr")
	case edtypes.TableCellNode:
		tag := "td"
		if a.HeaderState != 0 {
			tag = "th"
		}
		var style string
		if a.BackgroundColor != "" {
			style = "background-color: " + edtypes.NormalizeColor(a.BackgroundColor) + ";"
		}
		el = element(tag,
			"colspan", spanAttr(a.ColSpan),
			"rowspan", spanAttr(a.RowSpan),
			"width", itoa(a.CellWidth),
			"style", style,
		)
	default:
		// root и неизвестные элементы отрисовываются только содержимым
		el = element("div")
	}

	for _, child := range n.Children {
		el.AppendChild(r.RenderNode(child))
	}
	return el
}

var formatTags = []struct {
	flag edtypes.Format
	tag  string
}{
	{edtypes.FormatBold, "strong"},
	{edtypes.FormatItalic, "em"},
	{edtypes.FormatUnderline, "u"},
	{edtypes.FormatStrikethrough, "s"},
	{edtypes.FormatCode, "code"},
	{edtypes.FormatSubscript, "sub"},
	{edtypes.FormatSuperscript, "sup"},
}

func renderText(a edtypes.Attrs) *html.Node {
	text := &html.Node{Type: html.TextNode, Data: a.Text}
	var outer, inner *html.Node
	wrap := func(el *html.Node) {
		if outer == nil {
			outer = el
		} else {
			inner.AppendChild(el)
		}
		inner = el
	}
	if a.Style != "" {
		wrap(element("span", "style", a.Style))
	}
	for _, f := range formatTags {
		if a.Format.Has(f.flag) {
			wrap(element(f.tag))
		}
	}
	if outer == nil {
		return text
	}
	inner.AppendChild(text)
	return outer
}

func blockStyle(a edtypes.Attrs) string {
	var parts []string
	if a.Align != "" {
		parts = append(parts, "text-align: "+a.Align+";")
	}
	if a.Indent > 0 {
		parts = append(parts, "padding-inline-start: "+strconv.Itoa(a.Indent*40)+"px;")
	}
	return strings.Join(parts, " ")
}

func spanAttr(v int) string {
	if v <= 1 {
		return ""
	}
	return strconv.Itoa(v)
}
