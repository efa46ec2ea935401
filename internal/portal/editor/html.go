// Пакет предоставляет разбор HTML-фрагментов (вставка из буфера обмена, импорт) в узлы документа редактора.
// HTML предварительно очищается политикой redactor-policy, затем каждый тег переводится в узел по своему правилу.
//
// Основные возможности:
//   - Разбор HTML из io.Reader в последовательность сериализованных узлов.
//   - Перевод тегов начертания (b, i, u, s, code, sub, sup) в биты формата текста.
//   - Перевод размеров шрифта и цветов из style в стиль текстового узла.
//   - Поддержка параграфов, заголовков, списков, таблиц, ссылок, изображений и видео YouTube.
package editor

import (
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	policy "github.com/aisa-it/portal/portal.go/internal/portal/redactor-policy"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var spaceReg = regexp.MustCompile(`\s+`)

// inlineContext - наследуемое от предков форматирование текста.
type inlineContext struct {
	format edtypes.Format
	style  string
	pre    bool
}

var formatTags = map[string]edtypes.Format{
	"b":      edtypes.FormatBold,
	"strong": edtypes.FormatBold,
	"i":      edtypes.FormatItalic,
	"em":     edtypes.FormatItalic,
	"u":      edtypes.FormatUnderline,
	"ins":    edtypes.FormatUnderline,
	"s":      edtypes.FormatStrikethrough,
	"strike": edtypes.FormatStrikethrough,
	"del":    edtypes.FormatStrikethrough,
	"code":   edtypes.FormatCode,
	"kbd":    edtypes.FormatCode,
	"sub":    edtypes.FormatSubscript,
	"sup":    edtypes.FormatSuperscript,
}

// Контейнеры, пробельный текст в которых не является содержимым
var blockContainers = []string{"body", "div", "ul", "ol", "table", "thead", "tbody", "tfoot", "tr", "blockquote", "td", "th", "li"}

// ParseHTML разбирает HTML-фрагмент в узлы документа. Фрагмент из одного простого параграфа
// возвращается inline-узлами, чтобы вставка продолжала текущий блок.
func ParseHTML(r io.Reader) ([]edtypes.SerializedNode, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	clean := policy.UgcPolicy.Sanitize(policy.ProcessPastedHTML(string(raw)))

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(clean), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	result := finishBlocks(convertChildren(body, inlineContext{}))
	if !slices.ContainsFunc(result, isBlock) {
		return trimEdges(result), nil
	}
	if len(result) == 1 && result[0].Type == edtypes.ParagraphNode && result[0].Attrs == (edtypes.Attrs{}) {
		return result[0].Children, nil
	}
	return edtypes.WrapInlineRuns(result), nil
}

// ParseHTMLString - ParseHTML для строки.
func ParseHTMLString(s string) ([]edtypes.SerializedNode, error) {
	return ParseHTML(strings.NewReader(s))
}

func convertChildren(parent *html.Node, ctx inlineContext) []edtypes.SerializedNode {
	var res []edtypes.SerializedNode
	for el := parent.FirstChild; el != nil; el = el.NextSibling {
		res = append(res, convertNode(el, parent, ctx)...)
	}
	return res
}

func convertNode(el, parent *html.Node, ctx inlineContext) []edtypes.SerializedNode {
	switch el.Type {
	case html.TextNode:
		return convertText(el, parent, ctx)
	case html.ElementNode:
	default:
		return nil
	}

	if f, ok := formatTags[el.Data]; ok {
		ctx.format |= f
		return convertChildren(el, withStyle(ctx, el))
	}

	switch el.Data {
	case "span", "mark", "font", "label":
		return convertChildren(el, withStyle(ctx, el))
	case "br":
		return []edtypes.SerializedNode{edtypes.NewLineBreak()}
	case "a":
		return convertLink(el, ctx)
	case "img":
		if img := getImage(el); img != nil {
			return []edtypes.SerializedNode{*img}
		}
		return nil
	case "iframe":
		src, id, err := commands.NormalizeYouTube(getAttrValue("src", el.Attr))
		if err != nil {
			return nil
		}
		return []edtypes.SerializedNode{edtypes.NewYouTube(src, id)}
	case "p":
		return convertBlock(edtypes.ParagraphNode, el, ctx)
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return convertBlock(edtypes.HeadingNode, el, ctx)
	case "pre":
		ctx.format |= edtypes.FormatCode
		ctx.pre = true
		return convertBlock(edtypes.ParagraphNode, el, ctx)
	case "div", "blockquote", "section", "article", "header", "footer", "figure", "figcaption":
		children := convertChildren(el, ctx)
		if slices.ContainsFunc(children, isBlock) {
			return finishBlocks(children)
		}
		return convertBlock(edtypes.ParagraphNode, el, ctx)
	case "ul", "ol":
		if list := parseList(el, ctx); list != nil {
			return []edtypes.SerializedNode{*list}
		}
		return nil
	case "table":
		if t := parseTable(el, ctx); t != nil {
			return []edtypes.SerializedNode{*t}
		}
		return nil
	case "hr", "head", "title", "meta", "style", "script":
		return nil
	}
	// Неизвестные теги прозрачны
	return convertChildren(el, ctx)
}

func convertText(el, parent *html.Node, ctx inlineContext) []edtypes.SerializedNode {
	if ctx.pre {
		var res []edtypes.SerializedNode
		for i, line := range strings.Split(el.Data, "\n") {
			if i > 0 {
				res = append(res, edtypes.NewLineBreak())
			}
			if line != "" {
				res = append(res, newText(line, ctx))
			}
		}
		return res
	}
	text := spaceReg.ReplaceAllString(el.Data, " ")
	if strings.TrimSpace(text) == "" && (text == "" || slices.Contains(blockContainers, parent.Data)) {
		// Пробелы между блоками не являются текстом, но пробел между inline-элементами сохраняется
		if text == "" || !hasInlineSiblings(el) {
			return nil
		}
	}
	return []edtypes.SerializedNode{newText(text, ctx)}
}

func newText(text string, ctx inlineContext) edtypes.SerializedNode {
	n := edtypes.NewText(text, ctx.format)
	n.Attrs.Style = ctx.style
	return n
}

func hasInlineSiblings(el *html.Node) bool {
	inline := func(n *html.Node) bool {
		if n == nil {
			return false
		}
		if n.Type == html.TextNode {
			return strings.TrimSpace(n.Data) != ""
		}
		_, f := formatTags[n.Data]
		return f || n.Data == "span" || n.Data == "a" || n.Data == "img"
	}
	return inline(el.PrevSibling) && inline(el.NextSibling)
}

func convertLink(el *html.Node, ctx inlineContext) []edtypes.SerializedNode {
	children := inlineOnly(convertChildren(el, withStyle(ctx, el)))
	href, err := commands.NormalizeURL(getAttrValue("href", el.Attr))
	if err != nil || len(children) == 0 {
		return children
	}
	// Вложенные ссылки разворачиваются, ссылкой становится внешняя
	var flat []edtypes.SerializedNode
	for _, c := range children {
		if c.Type == edtypes.LinkNode || c.Type == edtypes.AutoLinkNode {
			flat = append(flat, c.Children...)
			continue
		}
		flat = append(flat, c)
	}
	link := edtypes.NewLink(href, flat...)
	link.Attrs.Target = getAttrValue("target", el.Attr)
	link.Attrs.Rel = getAttrValue("rel", el.Attr)
	link.Attrs.Title = getAttrValue("title", el.Attr)
	return []edtypes.SerializedNode{link}
}

// convertBlock строит блок с inline-содержимым. Вложенные блоки выносятся на один уровень с ним.
func convertBlock(t edtypes.NodeType, el *html.Node, ctx inlineContext) []edtypes.SerializedNode {
	children := convertChildren(el, withStyle(ctx, el))
	if slices.ContainsFunc(children, isBlock) {
		return finishBlocks(children)
	}

	attrs := blockAttrs(el)
	if t == edtypes.HeadingNode {
		attrs.Tag = el.Data
	}
	block := edtypes.NewNode(t, attrs, trimEdges(children)...)
	return []edtypes.SerializedNode{block}
}

func blockAttrs(el *html.Node) edtypes.Attrs {
	var a edtypes.Attrs
	for _, style := range parseStyles(getAttrValue("style", el.Attr)) {
		switch style.Key {
		case "text-align":
			switch style.Val {
			case "left", "center", "right", "justify", "start", "end":
				a.Align = style.Val
			}
		case "padding-inline-start", "margin-left":
			a.Indent = sizeToInt(style.Val) / 40
		}
	}
	switch dir := getAttrValue("dir", el.Attr); dir {
	case "ltr", "rtl":
		a.Direction = dir
	}
	return a
}

func parseList(root *html.Node, ctx inlineContext) *edtypes.SerializedNode {
	attrs := edtypes.Attrs{ListType: "bullet", Start: 1}
	if root.Data == "ol" {
		attrs.ListType = "number"
		if start, err := strconv.Atoi(getAttrValue("start", root.Attr)); err == nil && start > 0 {
			attrs.Start = start
		}
	}
	if getAttrValue("data-type", root.Attr) == "check" {
		attrs.ListType = "check"
	}

	list := edtypes.NewNode(edtypes.ListNode, attrs)
	value := attrs.Start
	for li := root.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode {
			continue
		}
		if li.Data == "ul" || li.Data == "ol" {
			// Вложенный список вне <li> оборачивается в отдельный элемент
			if nested := parseList(li, ctx); nested != nil {
				list.Children = append(list.Children, edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: value}, *nested))
				value++
			}
			continue
		}
		if li.Data != "li" {
			continue
		}
		list.Children = append(list.Children, parseListElement(li, ctx, attrs.ListType, &value)...)
	}
	if len(list.Children) == 0 {
		return nil
	}
	return &list
}

// parseListElement переводит <li> в элементы списка. Вложенные списки становятся отдельными элементами.
func parseListElement(li *html.Node, ctx inlineContext, listType string, value *int) []edtypes.SerializedNode {
	attrs := blockAttrs(li)
	if checked := getAttrValue("data-checked", li.Attr); checked != "" || listType == "check" {
		v := checked == "true"
		attrs.Checked = &v
	}

	var items []edtypes.SerializedNode
	var inline []edtypes.SerializedNode
	flush := func() {
		if len(inline) == 0 {
			return
		}
		a := attrs
		a.Value = *value
		*value++
		items = append(items, edtypes.NewNode(edtypes.ListItemNode, a, trimEdges(inline)...))
		inline = nil
	}

	for _, n := range convertChildren(li, withStyle(ctx, li)) {
		switch {
		case n.Type == edtypes.ListNode:
			flush()
			items = append(items, edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: *value}, n))
			*value++
		case isBlock(n):
			if len(inline) > 0 {
				inline = append(inline, edtypes.NewLineBreak())
			}
			inline = append(inline, n.Children...)
		default:
			inline = append(inline, n)
		}
	}
	flush()
	if len(items) == 0 {
		a := attrs
		a.Value = *value
		*value++
		items = append(items, edtypes.NewNode(edtypes.ListItemNode, a))
	}
	return items
}

func parseTable(root *html.Node, ctx inlineContext) *edtypes.SerializedNode {
	table := edtypes.NewNode(edtypes.TableNode, edtypes.Attrs{})

	var rows []*html.Node
	iterNodes(root, func(child *html.Node) bool {
		if child.Type == html.ElementNode && child.Data == "tr" {
			rows = append(rows, child)
			return true
		}
		return false
	})

	for _, tr := range rows {
		row := edtypes.NewNode(edtypes.TableRowNode, edtypes.Attrs{})
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.Data != "td" && td.Data != "th") {
				continue
			}
			attrs := blockAttrs(td)
			attrs.ColSpan = max(sizeToInt(getAttrValue("colspan", td.Attr)), 1)
			attrs.RowSpan = max(sizeToInt(getAttrValue("rowspan", td.Attr)), 1)
			attrs.CellWidth = sizeToInt(getAttrValue("width", td.Attr))
			if td.Data == "th" {
				attrs.HeaderState = 1
			}
			for _, style := range parseStyles(getAttrValue("style", td.Attr)) {
				if style.Key == "background-color" {
					attrs.BackgroundColor = edtypes.NormalizeColor(style.Val)
				}
			}

			content := edtypes.WrapInlineRuns(finishBlocks(convertChildren(td, ctx)))
			if len(content) == 0 {
				content = []edtypes.SerializedNode{edtypes.NewParagraph()}
			}
			row.Children = append(row.Children, edtypes.NewNode(edtypes.TableCellNode, attrs, content...))
		}
		if len(row.Children) > 0 {
			table.Children = append(table.Children, row)
		}
	}
	if len(table.Children) == 0 {
		return nil
	}
	return &table
}

func getImage(el *html.Node) *edtypes.SerializedNode {
	src := strings.TrimSpace(getAttrValue("src", el.Attr))
	if src == "" {
		return nil
	}
	img := edtypes.NewImage(src, getAttrValue("alt", el.Attr))
	img.Attrs.Width = sizeToInt(getAttrValue("width", el.Attr))
	img.Attrs.Height = sizeToInt(getAttrValue("height", el.Attr))
	for _, style := range parseStyles(getAttrValue("style", el.Attr)) {
		switch style.Key {
		case "width":
			if w := sizeToInt(style.Val); w > 0 {
				img.Attrs.Width = w
			}
		case "height":
			if h := sizeToInt(style.Val); h > 0 {
				img.Attrs.Height = h
			}
		case "max-width":
			img.Attrs.MaxWidth = sizeToInt(style.Val)
		}
	}
	return &img
}

// withStyle дополняет наследуемый стиль текста размером шрифта и цветами из атрибута style.
func withStyle(ctx inlineContext, el *html.Node) inlineContext {
	patch := make(map[string]string)
	for _, style := range parseStyles(getAttrValue("style", el.Attr)) {
		if style.Val == "inherit" || style.Val == "" {
			continue
		}
		switch style.Key {
		case "font-size":
			if size := sizeToInt(style.Val); size > 0 {
				patch["font-size"] = strconv.Itoa(edtypes.ClampFontSize(size)) + "px"
			}
		case "color", "background-color":
			if c := edtypes.NormalizeColor(style.Val); c != "" {
				patch[style.Key] = c
			}
		}
	}
	if len(patch) > 0 {
		ctx.style = edtypes.PatchStyle(ctx.style, patch)
	}
	return ctx
}

func isBlock(n edtypes.SerializedNode) bool {
	spec, ok := edtypes.Lookup(n.Type)
	return ok && !spec.Inline
}

// finishBlocks убирает пробельные inline-прогоны между блоками и оборачивает остальные в параграфы.
func finishBlocks(nodes []edtypes.SerializedNode) []edtypes.SerializedNode {
	if !slices.ContainsFunc(nodes, isBlock) {
		return nodes
	}
	var res []edtypes.SerializedNode
	for _, n := range edtypes.WrapInlineRuns(nodes) {
		if n.Type == edtypes.ParagraphNode && n.Attrs == (edtypes.Attrs{}) && strings.TrimSpace(n.TextContent()) == "" &&
			!slices.ContainsFunc(n.Children, func(c edtypes.SerializedNode) bool { return c.Type != edtypes.TextNode }) {
			continue
		}
		if n.Type == edtypes.ParagraphNode {
			n.Children = trimEdges(n.Children)
		}
		res = append(res, n)
	}
	return res
}

// inlineOnly разворачивает блоки внутри inline-контекста, разделяя их переводом строки.
func inlineOnly(nodes []edtypes.SerializedNode) []edtypes.SerializedNode {
	var res []edtypes.SerializedNode
	for _, n := range nodes {
		if !isBlock(n) {
			res = append(res, n)
			continue
		}
		if len(res) > 0 {
			res = append(res, edtypes.NewLineBreak())
		}
		res = append(res, inlineOnly(n.Children)...)
	}
	return res
}

// trimEdges убирает пробелы в начале первого и в конце последнего текстового узла блока.
func trimEdges(nodes []edtypes.SerializedNode) []edtypes.SerializedNode {
	if len(nodes) > 0 && nodes[0].Type == edtypes.TextNode {
		nodes[0].Attrs.Text = strings.TrimLeft(nodes[0].Attrs.Text, " ")
	}
	if last := len(nodes) - 1; last >= 0 && nodes[last].Type == edtypes.TextNode {
		nodes[last].Attrs.Text = strings.TrimRight(nodes[last].Attrs.Text, " ")
	}
	return slices.DeleteFunc(nodes, func(n edtypes.SerializedNode) bool {
		return n.Type == edtypes.TextNode && n.Attrs.Text == ""
	})
}

func iterNodes(node *html.Node, f func(child *html.Node) bool) {
	if f(node) {
		return
	}
	for p := node.FirstChild; p != nil; p = p.NextSibling {
		iterNodes(p, f)
	}
}

func getAttrValue(key string, attrs []html.Attribute) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func parseStyles(raw string) []html.Attribute {
	var res []html.Attribute
	for styleRaw := range strings.SplitSeq(raw, ";") {
		k, v, ok := strings.Cut(styleRaw, ":")
		if !ok {
			continue
		}
		res = append(res, html.Attribute{
			Key: strings.ToLower(strings.TrimSpace(k)),
			Val: strings.TrimSpace(v),
		})
	}
	return res
}

func sizeToInt(raw string) int {
	raw = strings.TrimSpace(raw)
	for _, unit := range []string{"px", "pt", "em", "rem", "%"} {
		raw = strings.TrimSuffix(raw, unit)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f + 0.5)
}
