package tiptap

import (
	"strconv"
	"strings"
)

// getAttrString безопасно извлекает строковый атрибут из map.
func getAttrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	str, _ := attrs[key].(string)
	return str
}

// getAttrInt безопасно извлекает целочисленный атрибут из map.
func getAttrInt(attrs map[string]any, key string) int {
	if attrs == nil {
		return 0
	}
	switch v := attrs[key].(type) {
	// Может быть float64 из JSON
	case float64:
		return int(v)
	case int:
		return v
	case string:
		i, _ := strconv.Atoi(strings.TrimSuffix(v, "px"))
		return i
	}
	return 0
}

func getAttrBool(attrs map[string]any, key string) bool {
	if attrs == nil {
		return false
	}
	b, _ := attrs[key].(bool)
	return b
}

// parseStyleAttr парсит CSS style строку в map key-value пар.
// Например: "background-color: red; color: blue;" -> {"background-color": "red", "color": "blue"}
func parseStyleAttr(style string) map[string]string {
	result := make(map[string]string)
	for part := range strings.SplitSeq(style, ";") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key != "" && value != "" {
			result[key] = value
		}
	}
	return result
}

func parseTextAlign(align string) string {
	switch align = strings.TrimSpace(strings.ToLower(align)); align {
	case "center", "right", "justify":
		return align
	default:
		return ""
	}
}
