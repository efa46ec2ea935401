// Пакет export выгружает документ редактора в Markdown и простой текст.
package export

import (
	"bytes"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	md "github.com/nao1215/markdown"
)

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"|", `\|`,
)

// Markdown выгружает документ в Markdown. Форматирование, которого нет в Markdown
// (подчеркивание, цвет, размер шрифта), отбрасывается.
func Markdown(doc edtypes.SerializedEditorState) (string, error) {
	var buf bytes.Buffer
	m := md.NewMarkdown(&buf)
	for i, block := range doc.Root.Children {
		if i > 0 {
			m.PlainText("")
		}
		writeBlock(m, block)
	}
	if err := m.Build(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// PlainText возвращает текст документа без форматирования, блоки разделяются переводом строки.
func PlainText(doc edtypes.SerializedEditorState) string {
	return doc.Root.TextContent()
}

func writeBlock(m *md.Markdown, block edtypes.SerializedNode) {
	switch block.Type {
	case edtypes.HeadingNode:
		text := inline(block.Children)
		switch edtypes.HeadingLevel(block.Tag) {
		case 1:
			m.H1(text)
		case 2:
			m.H2(text)
		case 3:
			m.H3(text)
		case 4:
			m.H4(text)
		case 5:
			m.H5(text)
		default:
			m.H6(text)
		}
	case edtypes.ListNode:
		writeList(m, block)
	case edtypes.TableNode:
		writeTable(m, block)
	case edtypes.YouTubeNode:
		m.PlainText(md.Link("YouTube", block.Src))
	default:
		m.PlainText(inline(block.Children))
	}
}

func writeList(m *md.Markdown, list edtypes.SerializedNode) {
	items := listItems(list)
	switch list.ListType {
	case "number":
		m.OrderedList(items...)
	case "check":
		set := make([]md.CheckBoxSet, 0, len(list.Children))
		for _, item := range list.Children {
			if hasNestedList(item) {
				continue
			}
			set = append(set, md.CheckBoxSet{
				Checked: item.Checked != nil && *item.Checked,
				Text:    inline(item.Children),
			})
		}
		m.CheckBox(set)
	default:
		m.BulletList(items...)
	}
}

// listItems возвращает тексты элементов. Вложенные списки выводятся на том же уровне.
func listItems(list edtypes.SerializedNode) []string {
	var res []string
	for _, item := range list.Children {
		if hasNestedList(item) {
			for _, c := range item.Children {
				if c.Type == edtypes.ListNode {
					res = append(res, listItems(c)...)
				}
			}
			continue
		}
		res = append(res, inline(item.Children))
	}
	return res
}

func hasNestedList(item edtypes.SerializedNode) bool {
	for _, c := range item.Children {
		if c.Type == edtypes.ListNode {
			return true
		}
	}
	return false
}

func writeTable(m *md.Markdown, table edtypes.SerializedNode) {
	if len(table.Children) == 0 {
		return
	}
	rows := make([][]string, 0, len(table.Children))
	width := 0
	for _, row := range table.Children {
		cells := make([]string, 0, len(row.Children))
		for _, cell := range row.Children {
			var parts []string
			for _, block := range cell.Children {
				parts = append(parts, inline(block.Children))
			}
			cells = append(cells, strings.Join(parts, "<br>"))
		}
		width = max(width, len(cells))
		rows = append(rows, cells)
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	m.CustomTable(md.TableSet{
		Header: rows[0],
		Rows:   rows[1:],
	}, md.TableOptions{
		AutoWrapText: false,
	})
}

func inline(nodes []edtypes.SerializedNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case edtypes.TextNode:
			sb.WriteString(formatText(n))
		case edtypes.LineBreakNode:
			sb.WriteString("  \n")
		case edtypes.LinkNode, edtypes.AutoLinkNode:
			sb.WriteString(md.Link(inline(n.Children), n.URL))
		case edtypes.ImageNode:
			img := md.Image(mdEscaper.Replace(n.AltText), n.Src)
			if n.Href != "" {
				img = md.Link(img, n.Href)
			}
			sb.WriteString(img)
		case edtypes.YouTubeNode:
			sb.WriteString(md.Link("YouTube", n.Src))
		default:
			sb.WriteString(inline(n.Children))
		}
	}
	return sb.String()
}

func formatText(n edtypes.SerializedNode) string {
	if n.Text == "" {
		return ""
	}
	if n.Format.Has(edtypes.FormatCode) {
		return md.Code(n.Text)
	}

	// Пробелы по краям выносятся за маркеры, иначе Markdown не распознает выделение
	core := strings.TrimSpace(n.Text)
	if core == "" {
		return n.Text
	}
	lead := n.Text[:strings.Index(n.Text, core)]
	trail := n.Text[len(lead)+len(core):]

	text := mdEscaper.Replace(core)
	switch {
	case n.Format.Has(edtypes.FormatBold) && n.Format.Has(edtypes.FormatItalic):
		text = md.BoldItalic(text)
	case n.Format.Has(edtypes.FormatBold):
		text = md.Bold(text)
	case n.Format.Has(edtypes.FormatItalic):
		text = md.Italic(text)
	}
	if n.Format.Has(edtypes.FormatStrikethrough) {
		text = md.Strikethrough(text)
	}
	if n.Format.Has(edtypes.FormatSubscript) {
		text = "<sub>" + text + "</sub>"
	}
	if n.Format.Has(edtypes.FormatSuperscript) {
		text = "<sup>" + text + "</sup>"
	}
	return lead + text + trail
}
