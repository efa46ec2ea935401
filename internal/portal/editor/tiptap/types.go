// Пакет tiptap переводит документы прежнего редактора TipTap в узлы документа и обратно.
// Используется при загрузке старого содержимого, сохраненного до перехода на новый формат.
package tiptap

// TipTapDocument представляет корневой документ TipTap.
type TipTapDocument struct {
	Type    string       `json:"type"`
	Content []TipTapNode `json:"content,omitempty"`
}

// TipTapNode представляет узел в дереве документа TipTap.
// Атрибуты хранятся в map, так как набор зависит от типа узла.
type TipTapNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []TipTapNode   `json:"content,omitempty"`
	Marks   []TipTapMark   `json:"marks,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// TipTapMark представляет форматирование текста (bold, italic, link и т.д.).
type TipTapMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// IsDocument сообщает, похож ли разобранный JSON на документ TipTap: {"type": "doc", "content": [...]}.
func IsDocument(m map[string]any) bool {
	if m == nil {
		return false
	}
	if t, _ := m["type"].(string); t != "doc" {
		return false
	}
	content, present := m["content"]
	if !present {
		return true
	}
	_, ok := content.([]any)
	return ok
}
