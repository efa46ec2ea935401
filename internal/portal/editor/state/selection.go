package state

import (
	"slices"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

type PointKind string

const (
	// PointText - смещение в рунах внутри текстового узла.
	PointText PointKind = "text"
	// PointElement - индекс между детьми элемента.
	PointElement PointKind = "element"
)

type Point struct {
	Key    edtypes.NodeKey `json:"key"`
	Offset int             `json:"offset"`
	Kind   PointKind       `json:"type"`
}

func TextPoint(key edtypes.NodeKey, offset int) Point {
	return Point{Key: key, Offset: offset, Kind: PointText}
}

func ElementPoint(key edtypes.NodeKey, offset int) Point {
	return Point{Key: key, Offset: offset, Kind: PointElement}
}

// Selection - каретка, диапазон (Anchor/Focus) или выделение узлов целиком (Nodes).
// Format и Style применяются к тексту, набранному в свернутую каретку.
type Selection struct {
	Anchor Point             `json:"anchor"`
	Focus  Point             `json:"focus"`
	Nodes  []edtypes.NodeKey `json:"nodes,omitempty"`

	Format edtypes.Format `json:"format"`
	Style  string         `json:"style"`
}

// Caret создает свернутое выделение в точке.
func Caret(p Point) *Selection {
	return &Selection{Anchor: p, Focus: p}
}

// Range создает диапазонное выделение.
func Range(anchor, focus Point) *Selection {
	return &Selection{Anchor: anchor, Focus: focus}
}

// NodeSelection выделяет узлы целиком.
func NodeSelection(keys ...edtypes.NodeKey) *Selection {
	return &Selection{Nodes: slices.Clone(keys)}
}

func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	c := *s
	c.Nodes = slices.Clone(s.Nodes)
	return &c
}

func (s *Selection) IsNodeSelection() bool {
	return s != nil && len(s.Nodes) > 0
}

func (s *Selection) IsCollapsed() bool {
	return s != nil && !s.IsNodeSelection() && s.Anchor == s.Focus
}

// position - точка, приведенная к пути в дереве для сравнения порядка документа.
type position []int

func comparePositions(a, b position) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// positionOf переводит точку в позицию: для элемента путь+индекс, для текста путь узла+смещение.
func (tx *Tx) positionOf(p Point) (position, bool) {
	path, ok := pathOf(tx.Node, tx.root, p.Key)
	if !ok {
		return nil, false
	}
	return append(path, p.Offset), true
}

// ComparePoints сравнивает точки в порядке документа.
func (tx *Tx) ComparePoints(a, b Point) int {
	pa, _ := tx.positionOf(a)
	pb, _ := tx.positionOf(b)
	return comparePositions(pa, pb)
}

// orderedRange возвращает начало и конец выделения в порядке документа.
func (tx *Tx) orderedRange(sel *Selection) (start, end Point) {
	if tx.ComparePoints(sel.Anchor, sel.Focus) <= 0 {
		return sel.Anchor, sel.Focus
	}
	return sel.Focus, sel.Anchor
}

// validPoint проверяет, что точка указывает на существующий узел дерева с корректным смещением.
func (tx *Tx) validPoint(p Point) bool {
	n := tx.Node(p.Key)
	if n == nil || !tx.attached(p.Key) || p.Offset < 0 {
		return false
	}
	switch p.Kind {
	case PointText:
		return n.IsText() && p.Offset <= n.TextLen()
	case PointElement:
		return n.IsElement() && p.Offset <= len(n.Children)
	}
	return false
}

// EndPoint возвращает точку в конце документа: конец последнего текста или конец последнего блока.
func (tx *Tx) EndPoint() Point {
	key := tx.root
	for {
		n := tx.Node(key)
		if n == nil {
			return ElementPoint(tx.root, 0)
		}
		if len(n.Children) == 0 {
			return ElementPoint(key, 0)
		}
		last := tx.Node(n.Children[len(n.Children)-1])
		switch {
		case last.IsText():
			return TextPoint(last.Key, last.TextLen())
		case last.IsElement():
			key = last.Key
		default:
			return ElementPoint(key, len(n.Children))
		}
	}
}

// StartPoint возвращает точку в начале документа.
func (tx *Tx) StartPoint() Point {
	key := tx.root
	for {
		n := tx.Node(key)
		if n == nil || len(n.Children) == 0 {
			return ElementPoint(key, 0)
		}
		first := tx.Node(n.Children[0])
		switch {
		case first.IsText():
			return TextPoint(first.Key, 0)
		case first.IsElement():
			key = first.Key
		default:
			return ElementPoint(key, 0)
		}
	}
}

// normalizeSelection исправляет выделение, указывающее на удаленные узлы или неверные смещения.
func (tx *Tx) normalizeSelection() {
	sel := tx.selection
	if sel == nil {
		return
	}
	if sel.IsNodeSelection() {
		keys := sel.Nodes[:0]
		for _, k := range sel.Nodes {
			if tx.Node(k) != nil && tx.attached(k) {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sel.Nodes = keys
			return
		}
		sel.Nodes = nil
		end := tx.EndPoint()
		sel.Anchor, sel.Focus = end, end
		return
	}

	fix := func(p Point) Point {
		if tx.validPoint(p) {
			return p
		}
		n := tx.Node(p.Key)
		if n != nil && tx.attached(p.Key) {
			if n.IsText() {
				return TextPoint(p.Key, min(max(p.Offset, 0), n.TextLen()))
			}
			if n.IsElement() {
				return ElementPoint(p.Key, min(max(p.Offset, 0), len(n.Children)))
			}
		}
		return tx.EndPoint()
	}
	sel.Anchor = fix(sel.Anchor)
	sel.Focus = fix(sel.Focus)
}
