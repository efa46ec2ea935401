// Пакет edtypes описывает модель узлов документа редактора: набор типов узлов, их атрибуты
// и каноническую JSON-схему сериализации.
//
// Основные возможности:
//   - Закрытый набор типов узлов (root, paragraph, heading, list, text, link, image, youtube, table и т.д.).
//   - Битовая маска форматирования текста и разбор inline-стилей.
//   - Реестр спецификаций узлов: для каждого типа задается версия, поток (inline/block) и функции экспорта/импорта атрибутов.
//   - Отсоединенное дерево SerializedNode, которое используется при загрузке, вставке и сохранении.
package edtypes

import (
	"slices"
	"strings"
)

// NodeType - строковый дискриминатор типа узла. Значение попадает в поле "type" JSON.
type NodeType string

const (
	RootNode      NodeType = "root"
	ParagraphNode NodeType = "paragraph"
	HeadingNode   NodeType = "heading"
	ListNode      NodeType = "list"
	ListItemNode  NodeType = "listitem"
	TextNode      NodeType = "text"
	LineBreakNode NodeType = "linebreak"
	LinkNode      NodeType = "link"
	AutoLinkNode  NodeType = "autolink"
	ImageNode     NodeType = "image"
	YouTubeNode   NodeType = "youtube"
	TableNode     NodeType = "table"
	TableRowNode  NodeType = "tablerow"
	TableCellNode NodeType = "tablecell"
)

// NodeKey - процессно-локальный идентификатор узла. В сериализованную форму не попадает.
// Нулевое значение означает отсутствие узла.
type NodeKey uint64

// Format - битовая маска форматирования текстового узла.
type Format int

const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

var formatNames = map[string]Format{
	"bold":          FormatBold,
	"italic":        FormatItalic,
	"strikethrough": FormatStrikethrough,
	"underline":     FormatUnderline,
	"code":          FormatCode,
	"subscript":     FormatSubscript,
	"superscript":   FormatSuperscript,
}

// ParseFormat возвращает бит форматирования по имени ("bold", "italic", ...).
func ParseFormat(name string) (Format, bool) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

func (f Format) Has(flag Format) bool {
	return f&flag != 0
}

func (f Format) Toggle(flag Format) Format {
	return f ^ flag
}

// Flow определяет, как узел участвует в раскладке: в строке текста или отдельным блоком.
type Flow int

const (
	FlowBlock Flow = iota
	FlowInline
)

// Attrs - атрибуты всех типов узлов. Каждый тип использует только свое подмножество полей,
// остальные остаются нулевыми.
type Attrs struct {
	// Общие атрибуты элементов
	Direction string
	Align     string
	Indent    int

	// heading
	Tag string

	// list, listitem
	ListType string
	Start    int
	Value    int
	Checked  *bool

	// text
	Text   string
	Format Format
	Style  string
	Detail int
	Mode   string

	// link, autolink
	URL    string
	Target string
	Rel    string
	Title  string

	// image, youtube
	Src      string
	AltText  string
	Width    int
	Height   int
	MaxWidth int
	Href     string
	VideoID  string

	// tablecell
	HeaderState     int
	ColSpan         int
	RowSpan         int
	CellWidth       int
	BackgroundColor string
}

// Node - узел живого документа. Узлы принадлежат ровно одному родителю, порядок детей задается Children.
// Узлы в опубликованном снимке неизменяемы, изменения выполняются через клон в транзакции.
type Node struct {
	Key      NodeKey
	Type     NodeType
	Version  int
	Parent   NodeKey
	Children []NodeKey

	Attrs
}

// Clone возвращает копию узла с собственным слайсом детей.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = slices.Clone(n.Children)
	return &c
}

func (n *Node) IsElement() bool {
	spec, ok := Lookup(n.Type)
	return ok && spec.Element
}

func (n *Node) IsInline() bool {
	spec, ok := Lookup(n.Type)
	return ok && spec.Inline
}

func (n *Node) IsDecorator() bool {
	spec, ok := Lookup(n.Type)
	return ok && spec.Decorator
}

func (n *Node) IsText() bool {
	return n.Type == TextNode
}

// IsLink возвращает true для link и autolink.
func (n *Node) IsLink() bool {
	return n.Type == LinkNode || n.Type == AutoLinkNode
}

// TextLen возвращает длину текста узла в рунах.
func (n *Node) TextLen() int {
	return len([]rune(n.Text))
}
