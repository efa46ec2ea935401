package tiptap

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

var markFormats = map[string]edtypes.Format{
	"bold":        edtypes.FormatBold,
	"italic":      edtypes.FormatItalic,
	"underline":   edtypes.FormatUnderline,
	"strike":      edtypes.FormatStrikethrough,
	"code":        edtypes.FormatCode,
	"superscript": edtypes.FormatSuperscript,
	"subscript":   edtypes.FormatSubscript,
}

// parseText переводит текстовый узел, marks становятся битами формата и стилем.
// Ссылка обрабатывается уровнем выше, так как в документе это отдельный узел.
func parseText(node TipTapNode) edtypes.SerializedNode {
	var format edtypes.Format
	style := make(map[string]string)
	for _, mark := range node.Marks {
		if f, ok := markFormats[mark.Type]; ok {
			format |= f
			continue
		}
		switch mark.Type {
		case "textStyle":
			applyTextStyle(style, mark.Attrs)
		case "highlight":
			if c := edtypes.NormalizeColor(getAttrString(mark.Attrs, "color")); c != "" {
				style["background-color"] = c
			}
		case "link":
		default:
			slog.Debug("Unknown mark type", "type", mark.Type)
		}
	}
	text := edtypes.NewText(node.Text, format)
	text.Style = edtypes.FormatStyle(style)
	return text
}

// applyTextStyle применяет стили текста (цвет, размер шрифта).
func applyTextStyle(style map[string]string, attrs map[string]any) {
	if c := edtypes.NormalizeColor(getAttrString(attrs, "color")); c != "" {
		style["color"] = c
	}
	if fontSize := getAttrString(attrs, "fontSize"); fontSize != "" {
		if size, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(fontSize), "px")); err == nil {
			style["font-size"] = strconv.Itoa(edtypes.ClampFontSize(size)) + "px"
		}
	}
}

// linkMark возвращает атрибуты ссылки из marks или nil. Недопустимые адреса отбрасываются.
func linkMark(marks []TipTapMark) *edtypes.Attrs {
	for _, mark := range marks {
		if mark.Type != "link" {
			continue
		}
		href, err := commands.NormalizeURL(getAttrString(mark.Attrs, "href"))
		if err != nil {
			return nil
		}
		return &edtypes.Attrs{
			URL:    href,
			Target: getAttrString(mark.Attrs, "target"),
			Rel:    getAttrString(mark.Attrs, "rel"),
		}
	}
	return nil
}
