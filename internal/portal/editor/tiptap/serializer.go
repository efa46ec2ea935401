package tiptap

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// Serialize сериализует документ редактора в TipTap JSON. Используется для клиентов,
// которые еще читают содержимое в прежнем формате.
func Serialize(doc edtypes.SerializedEditorState) ([]byte, error) {
	tipTapDoc := TipTapDocument{
		Type:    "doc",
		Content: make([]TipTapNode, 0, len(doc.Root.Children)),
	}
	for _, block := range doc.Root.Children {
		if node := serializeBlock(block); node != nil {
			tipTapDoc.Content = append(tipTapDoc.Content, *node)
		}
	}
	return json.Marshal(tipTapDoc)
}

func serializeBlock(n edtypes.SerializedNode) *TipTapNode {
	switch n.Type {
	case edtypes.ParagraphNode:
		return serializeParagraph(n)
	case edtypes.HeadingNode:
		node := serializeParagraph(n)
		node.Type = "heading"
		node.Attrs["level"] = edtypes.HeadingLevel(n.Tag)
		return node
	case edtypes.ListNode:
		return serializeList(n)
	case edtypes.TableNode:
		return serializeTable(n)
	case edtypes.YouTubeNode:
		return &TipTapNode{Type: "youtube", Attrs: map[string]any{"src": n.Src}}
	default:
		slog.Warn("Unknown block type for TipTap serialization", "type", n.Type)
		return nil
	}
}

func serializeParagraph(n edtypes.SerializedNode) *TipTapNode {
	node := &TipTapNode{
		Type:  "paragraph",
		Attrs: make(map[string]any),
	}
	if n.Indent > 0 {
		node.Attrs["indent"] = n.Indent
	}
	if n.Align != "" {
		node.Attrs["textAlign"] = n.Align
	}
	node.Content = serializeInline(n.Children, nil)
	return node
}

// serializeInline переводит inline-узлы. Ссылка становится mark на каждом вложенном тексте.
func serializeInline(nodes []edtypes.SerializedNode, link *TipTapMark) []TipTapNode {
	res := make([]TipTapNode, 0, len(nodes))
	for _, n := range nodes {
		switch n.Type {
		case edtypes.TextNode:
			res = append(res, serializeText(n, link))
		case edtypes.LineBreakNode:
			res = append(res, TipTapNode{Type: "hardBreak"})
		case edtypes.LinkNode, edtypes.AutoLinkNode:
			mark := &TipTapMark{Type: "link", Attrs: map[string]any{"href": n.URL}}
			if n.Target != "" {
				mark.Attrs["target"] = n.Target
			}
			if n.Rel != "" {
				mark.Attrs["rel"] = n.Rel
			}
			res = append(res, serializeInline(n.Children, mark)...)
		case edtypes.ImageNode:
			attrs := map[string]any{"src": n.Src}
			if n.AltText != "" {
				attrs["alt"] = n.AltText
			}
			if n.Width > 0 {
				attrs["width"] = n.Width
			}
			if n.Height > 0 {
				attrs["height"] = n.Height
			}
			res = append(res, TipTapNode{Type: "image", Attrs: attrs})
		default:
			slog.Warn("Unknown inline type for TipTap serialization", "type", n.Type)
		}
	}
	return res
}

func serializeText(n edtypes.SerializedNode, link *TipTapMark) TipTapNode {
	node := TipTapNode{Type: "text", Text: n.Text}

	var marks []TipTapMark
	for _, name := range []string{"bold", "italic", "underline", "strike", "code", "superscript", "subscript"} {
		if n.Format.Has(markFormats[name]) {
			marks = append(marks, TipTapMark{Type: name})
		}
	}

	style := edtypes.ParseStyle(n.Style)
	textStyle := make(map[string]any)
	if c := style["color"]; c != "" {
		textStyle["color"] = c
	}
	if size := edtypes.FontSize(n.Style); size > 0 && style["font-size"] != "" {
		textStyle["fontSize"] = strconv.Itoa(size) + "px"
	}
	if len(textStyle) > 0 {
		marks = append(marks, TipTapMark{Type: "textStyle", Attrs: textStyle})
	}
	if bg := style["background-color"]; bg != "" {
		marks = append(marks, TipTapMark{Type: "highlight", Attrs: map[string]any{"color": bg}})
	}
	if link != nil {
		marks = append(marks, *link)
	}

	if len(marks) > 0 {
		node.Marks = marks
	}
	return node
}

func serializeList(n edtypes.SerializedNode) *TipTapNode {
	listType, itemType := "bulletList", "listItem"
	switch n.ListType {
	case "number":
		listType = "orderedList"
	case "check":
		listType, itemType = "taskList", "taskItem"
	}

	node := &TipTapNode{Type: listType, Content: make([]TipTapNode, 0, len(n.Children))}
	if listType == "orderedList" && n.Start > 1 {
		node.Attrs = map[string]any{"start": n.Start}
	}

	for _, item := range n.Children {
		itemNode := TipTapNode{Type: itemType}
		if itemType == "taskItem" {
			itemNode.Attrs = map[string]any{"checked": item.Checked != nil && *item.Checked}
		}

		var inline []edtypes.SerializedNode
		for _, c := range item.Children {
			if c.Type == edtypes.ListNode {
				// Вложенный список TipTap хранит внутри предыдущего элемента
				if nested := serializeList(c); nested != nil {
					if last := len(node.Content) - 1; len(inline) == 0 && last >= 0 {
						node.Content[last].Content = append(node.Content[last].Content, *nested)
					} else {
						itemNode.Content = append(itemNode.Content, *nested)
					}
				}
				continue
			}
			inline = append(inline, c)
		}
		if len(inline) > 0 {
			p := TipTapNode{Type: "paragraph", Content: serializeInline(inline, nil)}
			itemNode.Content = append([]TipTapNode{p}, itemNode.Content...)
		}
		if len(itemNode.Content) > 0 {
			node.Content = append(node.Content, itemNode)
		}
	}
	return node
}

func serializeTable(n edtypes.SerializedNode) *TipTapNode {
	node := &TipTapNode{Type: "table", Content: make([]TipTapNode, 0, len(n.Children))}
	for _, row := range n.Children {
		rowNode := TipTapNode{Type: "tableRow", Content: make([]TipTapNode, 0, len(row.Children))}
		for _, cell := range row.Children {
			cellNode := TipTapNode{Type: "tableCell", Attrs: make(map[string]any)}
			if cell.HeaderState != 0 {
				cellNode.Type = "tableHeader"
			}
			if cell.ColSpan > 1 {
				cellNode.Attrs["colspan"] = cell.ColSpan
			}
			if cell.RowSpan > 1 {
				cellNode.Attrs["rowspan"] = cell.RowSpan
			}
			if cell.CellWidth > 0 {
				cellNode.Attrs["colwidth"] = []int{cell.CellWidth}
			}
			if cell.BackgroundColor != "" {
				cellNode.Attrs["backgroundColor"] = cell.BackgroundColor
			}
			for _, block := range cell.Children {
				if child := serializeBlock(block); child != nil {
					cellNode.Content = append(cellNode.Content, *child)
				}
			}
			rowNode.Content = append(rowNode.Content, cellNode)
		}
		node.Content = append(node.Content, rowNode)
	}
	return node
}
