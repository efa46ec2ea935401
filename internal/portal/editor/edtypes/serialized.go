package edtypes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrMalformedNode = errors.New("malformed node")
	ErrMissingRoot   = errors.New("editor state has no root")
)

// UnknownTypeError возвращается при импорте узла незарегистрированного типа.
type UnknownTypeError struct {
	Type NodeType
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown node type %q", e.Type)
}

// SerializedNode - отсоединенное дерево узлов в канонической JSON-форме:
// {type, version, ...атрибуты типа, children?}. Ключи узлов в нем не хранятся,
// поэтому два документа с одинаковым содержимым сериализуются одинаково.
type SerializedNode struct {
	Type    NodeType
	Version int
	Attrs
	Children []SerializedNode
}

// SerializedEditorState - корневая обертка канонического формата {"root": {...}}.
type SerializedEditorState struct {
	Root SerializedNode `json:"root"`
}

// NewNode создает узел заданного типа. У элементов слайс детей всегда не nil,
// у листовых узлов - всегда nil.
func NewNode(t NodeType, attrs Attrs, children ...SerializedNode) SerializedNode {
	n := SerializedNode{Type: t, Version: 1, Attrs: attrs}
	if spec, ok := Lookup(t); ok {
		n.Version = spec.Version
		if spec.Element {
			n.Children = make([]SerializedNode, 0, len(children))
			n.Children = append(n.Children, children...)
		}
	}
	return n
}

func NewParagraph(children ...SerializedNode) SerializedNode {
	return NewNode(ParagraphNode, Attrs{}, children...)
}

func NewText(text string, format Format) SerializedNode {
	return NewNode(TextNode, Attrs{Text: text, Format: format, Mode: "normal"})
}

func NewLineBreak() SerializedNode {
	return NewNode(LineBreakNode, Attrs{})
}

func NewHeading(level int, children ...SerializedNode) SerializedNode {
	return NewNode(HeadingNode, Attrs{Tag: HeadingTag(level)}, children...)
}

func NewLink(url string, children ...SerializedNode) SerializedNode {
	return NewNode(LinkNode, Attrs{URL: url}, children...)
}

func NewImage(src, altText string) SerializedNode {
	return NewNode(ImageNode, Attrs{Src: src, AltText: altText})
}

func NewYouTube(src, videoID string) SerializedNode {
	return NewNode(YouTubeNode, Attrs{Src: src, VideoID: videoID})
}

// EmptyState возвращает пустой документ: root с единственным пустым параграфом.
func EmptyState() SerializedEditorState {
	return SerializedEditorState{Root: NewNode(RootNode, Attrs{}, NewParagraph())}
}

// PlainTextState оборачивает произвольный текст в один параграф неформатированного текста.
// Переводы строк превращаются в linebreak.
func PlainTextState(text string) SerializedEditorState {
	p := NewParagraph()
	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if i > 0 {
			p.Children = append(p.Children, NewLineBreak())
		}
		if line != "" {
			p.Children = append(p.Children, NewText(line, 0))
		}
	}
	return SerializedEditorState{Root: NewNode(RootNode, Attrs{}, p)}
}

// ToMap переводит узел в map канонической схемы.
func (n SerializedNode) ToMap() map[string]any {
	m := map[string]any{
		"type":    string(n.Type),
		"version": max(n.Version, 1),
	}
	spec, ok := Lookup(n.Type)
	if !ok {
		return m
	}
	spec.Export(&n.Attrs, m)
	if spec.Element {
		children := make([]any, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, child.ToMap())
		}
		m["children"] = children
	}
	return m
}

func (n SerializedNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(n.ToMap()); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func (n *SerializedNode) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var m map[string]any
	if err := decoder.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		return ErrMalformedNode
	}

	node, err := FromMap(m)
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// FromMap строит узел из map канонической схемы. Отсутствующие атрибуты получают безопасные
// значения по умолчанию, неизвестные атрибуты игнорируются. Дети неизвестного типа
// отбрасываются, а их собственные дети поднимаются на уровень выше.
func FromMap(m map[string]any) (SerializedNode, error) {
	t := NodeType(getAttrString(m, "type"))
	spec, ok := Lookup(t)
	if !ok {
		return SerializedNode{}, &UnknownTypeError{Type: t}
	}

	n := SerializedNode{Type: t, Version: getAttrInt(m, "version")}
	if n.Version <= 0 {
		n.Version = spec.Version
	}
	spec.Import(m, &n.Attrs)

	if !spec.Element {
		return n, nil
	}

	n.Children = make([]SerializedNode, 0)
	raw, exists := m["children"]
	if !exists || raw == nil {
		return n, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return SerializedNode{}, fmt.Errorf("%w: %s children is %T", ErrMalformedNode, t, raw)
	}
	children, err := decodeChildren(list)
	if err != nil {
		return SerializedNode{}, err
	}
	n.Children = children
	return n, nil
}

func decodeChildren(list []any) ([]SerializedNode, error) {
	res := make([]SerializedNode, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: child is %T", ErrMalformedNode, item)
		}

		child, err := FromMap(m)
		var unknown *UnknownTypeError
		if errors.As(err, &unknown) {
			promoted, ok := m["children"].([]any)
			slog.Warn("Unknown node type dropped", "type", unknown.Type, "promoted", len(promoted))
			if !ok {
				continue
			}
			grandChildren, err := decodeChildren(promoted)
			if err != nil {
				return nil, err
			}
			res = append(res, grandChildren...)
			continue
		}
		if err != nil {
			return nil, err
		}
		res = append(res, child)
	}
	return res, nil
}

func (s *SerializedEditorState) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var m map[string]any
	if err := decoder.Decode(&m); err != nil {
		return err
	}
	state, err := StateFromMap(m)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// StateFromMap строит состояние из map вида {"root": {...}} и нормализует его.
func StateFromMap(m map[string]any) (SerializedEditorState, error) {
	raw, ok := m["root"]
	if !ok {
		return SerializedEditorState{}, ErrMissingRoot
	}
	rootMap, ok := raw.(map[string]any)
	if !ok {
		return SerializedEditorState{}, fmt.Errorf("%w: root is %T", ErrMalformedNode, raw)
	}
	// Тип корня не проверяется, корнем считается то, что лежит под ключом root
	rootMap["type"] = string(RootNode)

	root, err := FromMap(rootMap)
	if err != nil {
		return SerializedEditorState{}, err
	}
	state := SerializedEditorState{Root: root}
	state.Normalize()
	return state, nil
}

// Normalize восстанавливает инварианты корня: дети корня - блоки, список детей не пуст.
func (s *SerializedEditorState) Normalize() {
	s.Root.Type = RootNode
	s.Root.Version = max(s.Root.Version, 1)
	s.Root.Children = WrapInlineRuns(s.Root.Children)
	if len(s.Root.Children) == 0 {
		s.Root.Children = []SerializedNode{NewParagraph()}
	}
}

// WrapInlineRuns оборачивает подряд идущие inline-узлы в параграфы, блочные узлы оставляет как есть.
func WrapInlineRuns(nodes []SerializedNode) []SerializedNode {
	res := make([]SerializedNode, 0, len(nodes))
	var run []SerializedNode
	flush := func() {
		if len(run) > 0 {
			res = append(res, NewParagraph(run...))
			run = nil
		}
	}
	for _, n := range nodes {
		if spec, ok := Lookup(n.Type); ok && spec.Inline {
			run = append(run, n)
			continue
		}
		flush()
		res = append(res, n)
	}
	flush()
	return res
}

// TextContent возвращает текст поддерева. Блоки разделяются переводом строки.
func (n SerializedNode) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n SerializedNode) writeText(sb *strings.Builder) {
	switch n.Type {
	case TextNode:
		sb.WriteString(n.Text)
		return
	case LineBreakNode:
		sb.WriteString("\n")
		return
	}
	for i, child := range n.Children {
		child.writeText(sb)
		if spec, ok := Lookup(child.Type); ok && !spec.Inline && i < len(n.Children)-1 {
			sb.WriteString("\n")
		}
	}
}
