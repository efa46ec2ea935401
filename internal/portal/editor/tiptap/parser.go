package tiptap

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// ParseJSON парсит JSON документа TipTap в документ редактора.
func ParseJSON(r io.Reader) (edtypes.SerializedEditorState, error) {
	var doc TipTapDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return edtypes.SerializedEditorState{}, err
	}
	return Convert(doc), nil
}

// ParseMap переводит уже разобранный JSON документа TipTap.
func ParseMap(m map[string]any) (edtypes.SerializedEditorState, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return edtypes.SerializedEditorState{}, err
	}
	var doc TipTapDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return edtypes.SerializedEditorState{}, err
	}
	return Convert(doc), nil
}

// Convert переводит документ TipTap в документ редактора. Неизвестные узлы отбрасываются,
// их дети поднимаются на уровень родителя.
func Convert(doc TipTapDocument) edtypes.SerializedEditorState {
	var blocks []edtypes.SerializedNode
	for _, node := range doc.Content {
		blocks = append(blocks, parseNode(node)...)
	}
	state := edtypes.SerializedEditorState{Root: edtypes.NewNode(edtypes.RootNode, edtypes.Attrs{}, blocks...)}
	state.Normalize()
	return state
}

// parseNode переводит узел уровня блоков.
func parseNode(node TipTapNode) []edtypes.SerializedNode {
	switch node.Type {
	case "paragraph":
		return []edtypes.SerializedNode{parseParagraph(node)}
	case "heading":
		h := parseParagraph(node)
		h.Tag = edtypes.HeadingTag(min(max(getAttrInt(node.Attrs, "level"), 1), 6))
		return []edtypes.SerializedNode{edtypes.NewNode(edtypes.HeadingNode, h.Attrs, h.Children...)}
	case "codeBlock":
		return []edtypes.SerializedNode{parseCodeBlock(node)}
	case "blockquote", "spoiler", "info-block":
		// Блоки-обертки не поддерживаются, содержимое сохраняется параграфами
		var res []edtypes.SerializedNode
		for _, child := range node.Content {
			res = append(res, parseNode(child)...)
		}
		return res
	case "bulletList", "orderedList", "taskList":
		if list := parseList(node); list != nil {
			return []edtypes.SerializedNode{*list}
		}
		return nil
	case "table":
		if table := parseTable(node); table != nil {
			return []edtypes.SerializedNode{*table}
		}
		return nil
	case "youtube":
		if yt := parseYouTube(node); yt != nil {
			return []edtypes.SerializedNode{*yt}
		}
		return nil
	case "horizontalRule":
		return nil
	}

	if inline := parseInline(node); inline != nil {
		return inline
	}
	slog.Warn("Unknown TipTap node type", "type", node.Type)
	var res []edtypes.SerializedNode
	for _, child := range node.Content {
		res = append(res, parseNode(child)...)
	}
	return res
}

// parseInline переводит inline-узел. Возвращает nil для неизвестного типа.
func parseInline(node TipTapNode) []edtypes.SerializedNode {
	switch node.Type {
	case "text":
		return []edtypes.SerializedNode{parseText(node)}
	case "hardBreak":
		return []edtypes.SerializedNode{edtypes.NewLineBreak()}
	case "image", "imageResize":
		if img := parseImage(node); img != nil {
			return []edtypes.SerializedNode{*img}
		}
		return []edtypes.SerializedNode{}
	case "mention":
		label := getAttrString(node.Attrs, "label")
		if label == "" {
			label = getAttrString(node.Attrs, "id")
		}
		return []edtypes.SerializedNode{edtypes.NewText("@"+label, 0)}
	case "date-node":
		return []edtypes.SerializedNode{edtypes.NewText(getAttrString(node.Attrs, "date"), 0)}
	case "issueLinkMention":
		text := getAttrString(node.Attrs, "projectIdentifier") + "-" + getAttrString(node.Attrs, "currentIssueId")
		href, err := commands.NormalizeURL(getAttrString(node.Attrs, "originalUrl"))
		if err != nil {
			return []edtypes.SerializedNode{edtypes.NewText(text, 0)}
		}
		return []edtypes.SerializedNode{edtypes.NewLink(href, edtypes.NewText(text, 0))}
	}
	return nil
}

// parseInlineContent переводит содержимое параграфа. Соседние тексты с одной ссылкой
// объединяются в один узел link.
func parseInlineContent(content []TipTapNode) []edtypes.SerializedNode {
	var res []edtypes.SerializedNode
	for _, child := range content {
		var nodes []edtypes.SerializedNode
		if child.Type == "paragraph" || child.Type == "heading" {
			// Параграф внутри inline-контекста
			if len(res) > 0 {
				res = append(res, edtypes.NewLineBreak())
			}
			nodes = parseInlineContent(child.Content)
		} else if nodes = parseInline(child); nodes == nil {
			slog.Warn("Unknown paragraph child type", "type", child.Type)
			continue
		}

		link := linkMark(child.Marks)
		for _, n := range nodes {
			if link == nil || n.Type == edtypes.LinkNode {
				res = append(res, n)
				continue
			}
			if last := len(res) - 1; last >= 0 && res[last].Type == edtypes.LinkNode && res[last].URL == link.URL {
				res[last].Children = append(res[last].Children, n)
				continue
			}
			l := edtypes.NewNode(edtypes.LinkNode, *link, n)
			res = append(res, l)
		}
	}
	return res
}

func parseParagraph(node TipTapNode) edtypes.SerializedNode {
	attrs := edtypes.Attrs{
		Indent: max(getAttrInt(node.Attrs, "indent"), 0),
		Align:  parseTextAlign(getAttrString(node.Attrs, "textAlign")),
	}
	return edtypes.NewNode(edtypes.ParagraphNode, attrs, parseInlineContent(node.Content)...)
}

// parseCodeBlock переводит блок кода в параграф с форматом code, строки разделяются linebreak.
func parseCodeBlock(node TipTapNode) edtypes.SerializedNode {
	var sb strings.Builder
	for _, child := range node.Content {
		if child.Type == "text" {
			sb.WriteString(child.Text)
		}
	}
	p := edtypes.NewParagraph()
	for i, line := range strings.Split(sb.String(), "\n") {
		if i > 0 {
			p.Children = append(p.Children, edtypes.NewLineBreak())
		}
		if line != "" {
			p.Children = append(p.Children, edtypes.NewText(line, edtypes.FormatCode))
		}
	}
	return p
}

func parseImage(node TipTapNode) *edtypes.SerializedNode {
	src := strings.TrimSpace(getAttrString(node.Attrs, "src"))
	if src == "" {
		return nil
	}
	img := edtypes.NewImage(src, getAttrString(node.Attrs, "alt"))
	img.Width = max(getAttrInt(node.Attrs, "width"), 0)
	img.Height = max(getAttrInt(node.Attrs, "height"), 0)
	if styles := parseStyleAttr(getAttrString(node.Attrs, "style")); styles["width"] != "" && img.Width == 0 {
		img.Width = getAttrInt(map[string]any{"width": styles["width"]}, "width")
	}
	return &img
}

func parseYouTube(node TipTapNode) *edtypes.SerializedNode {
	src, id, err := commands.NormalizeYouTube(getAttrString(node.Attrs, "src"))
	if err != nil {
		slog.Warn("Skip TipTap youtube node", "src", getAttrString(node.Attrs, "src"), "err", err)
		return nil
	}
	yt := edtypes.NewYouTube(src, id)
	return &yt
}

func parseList(node TipTapNode) *edtypes.SerializedNode {
	attrs := edtypes.Attrs{ListType: "bullet", Start: 1}
	switch node.Type {
	case "orderedList":
		attrs.ListType = "number"
		attrs.Start = max(getAttrInt(node.Attrs, "start"), 1)
	case "taskList":
		attrs.ListType = "check"
	}

	list := edtypes.NewNode(edtypes.ListNode, attrs)
	value := attrs.Start
	for _, child := range node.Content {
		if child.Type != "listItem" && child.Type != "taskItem" {
			continue
		}
		list.Children = append(list.Children, parseListItem(child, attrs.ListType, &value)...)
	}
	if len(list.Children) == 0 {
		return nil
	}
	return &list
}

// parseListItem переводит элемент списка. Вложенные списки становятся отдельными элементами.
func parseListItem(node TipTapNode, listType string, value *int) []edtypes.SerializedNode {
	itemAttrs := func() edtypes.Attrs {
		a := edtypes.Attrs{Value: *value}
		if listType == "check" {
			checked := getAttrBool(node.Attrs, "checked")
			a.Checked = &checked
		}
		*value++
		return a
	}

	var items []edtypes.SerializedNode
	var inline []TipTapNode
	flush := func() {
		if len(inline) == 0 {
			return
		}
		items = append(items, edtypes.NewNode(edtypes.ListItemNode, itemAttrs(), parseInlineContent(inline)...))
		inline = nil
	}
	for _, child := range node.Content {
		switch child.Type {
		case "bulletList", "orderedList", "taskList":
			flush()
			if nested := parseList(child); nested != nil {
				items = append(items, edtypes.NewNode(edtypes.ListItemNode, edtypes.Attrs{Value: *value}, *nested))
				*value++
			}
		default:
			inline = append(inline, child)
		}
	}
	flush()
	if len(items) == 0 {
		items = append(items, edtypes.NewNode(edtypes.ListItemNode, itemAttrs()))
	}
	return items
}

func parseTable(node TipTapNode) *edtypes.SerializedNode {
	table := edtypes.NewNode(edtypes.TableNode, edtypes.Attrs{})
	for _, rowNode := range node.Content {
		if rowNode.Type != "tableRow" {
			continue
		}
		row := edtypes.NewNode(edtypes.TableRowNode, edtypes.Attrs{})
		for _, cellNode := range rowNode.Content {
			if cellNode.Type != "tableHeader" && cellNode.Type != "tableCell" {
				continue
			}
			attrs := edtypes.Attrs{
				ColSpan: max(getAttrInt(cellNode.Attrs, "colspan"), 1),
				RowSpan: max(getAttrInt(cellNode.Attrs, "rowspan"), 1),
			}
			if cellNode.Type == "tableHeader" {
				attrs.HeaderState = 1
			}
			if widths, ok := cellNode.Attrs["colwidth"].([]any); ok && len(widths) > 0 {
				if w, ok := widths[0].(float64); ok {
					attrs.CellWidth = int(w)
				}
			}
			if bg := getAttrString(cellNode.Attrs, "backgroundColor"); bg != "" {
				attrs.BackgroundColor = edtypes.NormalizeColor(bg)
			}

			var content []edtypes.SerializedNode
			for _, c := range cellNode.Content {
				content = append(content, parseNode(c)...)
			}
			content = edtypes.WrapInlineRuns(content)
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
