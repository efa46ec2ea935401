package edtypes

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// exportElement записывает общие атрибуты блочных элементов.
func exportElement(a *Attrs, m map[string]any) {
	m["direction"] = nullString(a.Direction)
	m["format"] = a.Align
	m["indent"] = a.Indent
}

func importElement(m map[string]any, a *Attrs) {
	a.Direction = getAttrString(m, "direction")
	a.Align = getAttrString(m, "format")
	a.Indent = getAttrInt(m, "indent")
}

func exportHeading(a *Attrs, m map[string]any) {
	exportElement(a, m)
	m["tag"] = a.Tag
}

func importHeading(m map[string]any, a *Attrs) {
	importElement(m, a)
	a.Tag = HeadingTag(HeadingLevel(getAttrString(m, "tag")))
}

func exportList(a *Attrs, m map[string]any) {
	exportElement(a, m)
	m["listType"] = a.ListType
	m["start"] = max(a.Start, 1)
	if a.ListType == "number" {
		m["tag"] = "ol"
	} else {
		m["tag"] = "ul"
	}
}

func importList(m map[string]any, a *Attrs) {
	importElement(m, a)
	a.ListType = getAttrString(m, "listType")
	switch a.ListType {
	case "bullet", "number", "check":
	default:
		if getAttrString(m, "tag") == "ol" {
			a.ListType = "number"
		} else {
			a.ListType = "bullet"
		}
	}
	a.Start = getAttrInt(m, "start")
	if a.Start <= 0 {
		a.Start = 1
	}
}

func exportListItem(a *Attrs, m map[string]any) {
	exportElement(a, m)
	m["value"] = a.Value
	if a.Checked != nil {
		m["checked"] = *a.Checked
	}
}

func importListItem(m map[string]any, a *Attrs) {
	importElement(m, a)
	a.Value = getAttrInt(m, "value")
	if v, ok := m["checked"].(bool); ok {
		a.Checked = &v
	}
}

func exportText(a *Attrs, m map[string]any) {
	m["detail"] = a.Detail
	m["format"] = int(a.Format)
	m["mode"] = textMode(a.Mode)
	m["style"] = a.Style
	m["text"] = a.Text
}

func importText(m map[string]any, a *Attrs) {
	a.Detail = getAttrInt(m, "detail")
	a.Format = Format(getAttrInt(m, "format"))
	a.Mode = textMode(getAttrString(m, "mode"))
	a.Style = getAttrString(m, "style")
	a.Text = getAttrString(m, "text")
}

func exportLink(a *Attrs, m map[string]any) {
	exportElement(a, m)
	m["url"] = a.URL
	m["target"] = nullString(a.Target)
	m["rel"] = nullString(a.Rel)
	m["title"] = nullString(a.Title)
}

func importLink(m map[string]any, a *Attrs) {
	importElement(m, a)
	a.URL = getAttrString(m, "url")
	a.Target = getAttrString(m, "target")
	a.Rel = getAttrString(m, "rel")
	a.Title = getAttrString(m, "title")
}

func exportImage(a *Attrs, m map[string]any) {
	m["src"] = a.Src
	m["altText"] = a.AltText
	if a.Width > 0 {
		m["width"] = a.Width
	}
	if a.Height > 0 {
		m["height"] = a.Height
	}
	if a.MaxWidth > 0 {
		m["maxWidth"] = a.MaxWidth
	}
	if a.Href != "" {
		m["href"] = a.Href
	}
}

func importImage(m map[string]any, a *Attrs) {
	a.Src = getAttrString(m, "src")
	a.AltText = getAttrString(m, "altText")
	// "inherit" и прочие нечисловые размеры означают автоматический размер
	a.Width = getAttrInt(m, "width")
	a.Height = getAttrInt(m, "height")
	a.MaxWidth = getAttrInt(m, "maxWidth")
	a.Href = getAttrString(m, "href")
}

func exportYouTube(a *Attrs, m map[string]any) {
	m["format"] = a.Align
	m["src"] = a.Src
	m["videoID"] = a.VideoID
}

func importYouTube(m map[string]any, a *Attrs) {
	a.Align = getAttrString(m, "format")
	a.Src = getAttrString(m, "src")
	a.VideoID = getAttrString(m, "videoID")
}

func exportTableCell(a *Attrs, m map[string]any) {
	exportElement(a, m)
	m["headerState"] = a.HeaderState
	m["colSpan"] = max(a.ColSpan, 1)
	m["rowSpan"] = max(a.RowSpan, 1)
	if a.CellWidth > 0 {
		m["width"] = a.CellWidth
	}
	m["backgroundColor"] = nullString(a.BackgroundColor)
}

func importTableCell(m map[string]any, a *Attrs) {
	importElement(m, a)
	a.HeaderState = getAttrInt(m, "headerState")
	a.ColSpan = max(getAttrInt(m, "colSpan"), 1)
	a.RowSpan = max(getAttrInt(m, "rowSpan"), 1)
	a.CellWidth = getAttrInt(m, "width")
	a.BackgroundColor = getAttrString(m, "backgroundColor")
}

// HeadingLevel возвращает уровень заголовка 1..6 по тегу "h1".."h6". Некорректный тег дает 1.
func HeadingLevel(tag string) int {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 1
}

// HeadingTag возвращает тег заголовка для уровня, ограничивая уровень диапазоном 1..6.
func HeadingTag(level int) string {
	level = min(max(level, 1), 6)
	return "h" + strconv.Itoa(level)
}

func textMode(mode string) string {
	switch mode {
	case "token", "segmented":
		return mode
	}
	return "normal"
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// getAttrString безопасно извлекает строковый атрибут из map.
func getAttrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	val, ok := attrs[key]
	if !ok {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// getAttrInt безопасно извлекает целочисленный атрибут из map.
func getAttrInt(attrs map[string]any, key string) int {
	if attrs == nil {
		return 0
	}
	val, ok := attrs[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case int:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case string:
		// Размеры иногда приходят строкой "320px"
		i, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
		if err == nil {
			return i
		}
	}
	return 0
}
