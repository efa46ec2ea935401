package state

import (
	"slices"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// normalize восстанавливает инварианты дерева перед коммитом: допустимая вложенность узлов,
// корень и ячейки таблиц не пусты, соседние одинаковые текстовые узлы слиты.
func (tx *Tx) normalize() {
	tx.fixStructure()
	if len(tx.Children(tx.root)) == 0 {
		p := tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{})
		_ = tx.Append(tx.root, p.Key)
	}

	for _, key := range tx.Dirty() {
		n := tx.Node(key)
		if n == nil || n.Type != edtypes.TableCellNode || !tx.attached(key) {
			continue
		}
		if len(tx.Children(key)) == 0 {
			p := tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{})
			_ = tx.Append(key, p.Key)
		}
	}

	tx.mergeTextRuns()
}

func mergeable(a, b *edtypes.Node) bool {
	if !a.IsText() || !b.IsText() {
		return false
	}
	normal := func(n *edtypes.Node) bool { return n.Mode == "" || n.Mode == "normal" }
	return normal(a) && normal(b) &&
		a.Format == b.Format && a.Style == b.Style && a.Detail == b.Detail
}

// mergeTextRuns удаляет пустые и сливает соседние одинаковые текстовые узлы.
// Затрагиваются только узлы, измененные в транзакции, чтобы не менять соседний нетронутый текст.
func (tx *Tx) mergeTextRuns() {
	parents := make(map[edtypes.NodeKey]struct{})
	for _, key := range tx.Dirty() {
		n := tx.Node(key)
		switch {
		case n == nil:
		case n.IsText() && n.Parent != 0:
			parents[n.Parent] = struct{}{}
		case n.IsElement():
			parents[key] = struct{}{}
		}
	}

	for parent := range parents {
		if !tx.attached(parent) {
			continue
		}
		tx.dropEmptyText(parent)

		i := 0
		for {
			children := tx.Children(parent)
			if i+1 >= len(children) {
				break
			}
			a, b := tx.Node(children[i]), tx.Node(children[i+1])
			if !mergeable(a, b) || (!tx.IsDirty(a.Key) && !tx.IsDirty(b.Key)) {
				i++
				continue
			}
			tx.mergeInto(a.Key, b.Key, i+1)
		}
	}
}

func (tx *Tx) dropEmptyText(parent edtypes.NodeKey) {
	for _, key := range slices.Clone(tx.Children(parent)) {
		n := tx.Node(key)
		if !n.IsText() || n.Text != "" || !tx.IsDirty(key) || tx.selectionRefers(key) {
			continue
		}
		idx := tx.IndexOf(key)
		_ = tx.Detach(key)
		tx.shiftElementPoints(parent, idx)
	}
}

// mergeInto дописывает текст right в left и удаляет right.
func (tx *Tx) mergeInto(left, right edtypes.NodeKey, rightIdx int) {
	l := tx.Writable(left)
	base := l.TextLen()
	l.Text += tx.Node(right).Text

	if sel := tx.selection; sel != nil {
		remap := func(p Point) Point {
			if p.Key == right && p.Kind == PointText {
				return TextPoint(left, base+p.Offset)
			}
			return p
		}
		sel.Anchor = remap(sel.Anchor)
		sel.Focus = remap(sel.Focus)
	}
	parent := l.Parent
	_ = tx.Detach(right)
	tx.shiftElementPoints(parent, rightIdx)
}

// shiftElementPoints сдвигает точки элемента parent после удаления ребенка с индексом idx.
func (tx *Tx) shiftElementPoints(parent edtypes.NodeKey, idx int) {
	sel := tx.selection
	if sel == nil {
		return
	}
	shift := func(p Point) Point {
		if p.Key == parent && p.Kind == PointElement && p.Offset > idx {
			p.Offset--
		}
		return p
	}
	sel.Anchor = shift(sel.Anchor)
	sel.Focus = shift(sel.Focus)
}

func (tx *Tx) selectionRefers(key edtypes.NodeKey) bool {
	sel := tx.selection
	if sel == nil {
		return false
	}
	return sel.Anchor.Key == key || sel.Focus.Key == key || slices.Contains(sel.Nodes, key)
}
