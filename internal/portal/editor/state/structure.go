package state

import (
	"log/slog"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

type fixKind int

const (
	fixKeep fixKind = iota
	// fixWrap оборачивает ребенка (или серию соседних) в узел wrapper
	fixWrap
	// fixUnwrap заменяет ребенка его детьми
	fixUnwrap
	// fixLift выносит ребенка к ближайшему блочному контейнеру, разрезая промежуточных родителей
	fixLift
)

type structureFix struct {
	kind    fixKind
	wrapper edtypes.NodeType
}

var fixNone = structureFix{}

func wrapIn(t edtypes.NodeType) structureFix {
	return structureFix{kind: fixWrap, wrapper: t}
}

func isInlineType(t edtypes.NodeType) bool {
	spec, ok := edtypes.Lookup(t)
	return ok && spec.Inline
}

// isBlockContainer - узлы, детьми которых могут быть блоки: корень и ячейка таблицы.
func isBlockContainer(t edtypes.NodeType) bool {
	return t == edtypes.RootNode || t == edtypes.TableCellNode
}

// childFix возвращает исправление для ребенка child в родителе parent.
func childFix(parent, child edtypes.NodeType) structureFix {
	inline := isInlineType(child)
	textBlock := child == edtypes.ParagraphNode || child == edtypes.HeadingNode

	switch parent {
	case edtypes.RootNode, edtypes.TableCellNode:
		switch {
		case inline:
			return wrapIn(edtypes.ParagraphNode)
		case child == edtypes.ListItemNode:
			return wrapIn(edtypes.ListNode)
		case child == edtypes.TableRowNode:
			return wrapIn(edtypes.TableNode)
		case child == edtypes.TableCellNode:
			return wrapIn(edtypes.TableRowNode)
		}
		return fixNone

	case edtypes.ParagraphNode, edtypes.HeadingNode:
		switch {
		case inline:
			return fixNone
		case textBlock:
			return structureFix{kind: fixUnwrap}
		}
		return structureFix{kind: fixLift}

	case edtypes.LinkNode, edtypes.AutoLinkNode:
		switch child {
		case edtypes.TextNode, edtypes.LineBreakNode, edtypes.ImageNode:
			return fixNone
		case edtypes.LinkNode, edtypes.AutoLinkNode, edtypes.ParagraphNode, edtypes.HeadingNode:
			return structureFix{kind: fixUnwrap}
		}
		return structureFix{kind: fixLift}

	case edtypes.ListNode:
		if child == edtypes.ListItemNode {
			return fixNone
		}
		return wrapIn(edtypes.ListItemNode)

	case edtypes.ListItemNode:
		switch {
		case inline, child == edtypes.ListNode:
			return fixNone
		case textBlock:
			return structureFix{kind: fixUnwrap}
		case child == edtypes.ListItemNode:
			return wrapIn(edtypes.ListNode)
		}
		return structureFix{kind: fixLift}

	case edtypes.TableNode:
		switch child {
		case edtypes.TableRowNode:
			return fixNone
		case edtypes.TableCellNode:
			return wrapIn(edtypes.TableRowNode)
		}
		return structureFix{kind: fixLift}

	case edtypes.TableRowNode:
		if child == edtypes.TableCellNode {
			return fixNone
		}
		return wrapIn(edtypes.TableCellNode)
	}
	return fixNone
}

// sameRun сообщает, попадают ли соседние дети в одну обертку: inline-узлы собираются в один
// блок, одинаковые структурные узлы (пункты, строки, ячейки) - в один список, таблицу или строку.
func sameRun(a, b edtypes.NodeType) bool {
	if isInlineType(a) {
		return isInlineType(b)
	}
	switch a {
	case edtypes.ListItemNode, edtypes.TableRowNode, edtypes.TableCellNode:
		return a == b
	}
	return false
}

// fixStructure приводит пары родитель-ребенок к допустимым по таблице childFix.
// Проверяются корень и измененные в транзакции элементы.
func (tx *Tx) fixStructure() {
	queue := []edtypes.NodeKey{tx.root}
	for _, key := range tx.Dirty() {
		if n := tx.Node(key); n != nil && n.IsElement() && key != tx.root {
			queue = append(queue, key)
		}
	}

	budget := 4*(len(tx.base.nodes)+len(tx.writes)) + 64
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if !tx.attached(key) {
			continue
		}
		for {
			if budget == 0 {
				slog.Warn("Editor structure normalization stopped", "node", key)
				return
			}
			touched, changed := tx.fixChildren(key)
			if !changed {
				break
			}
			budget--
			queue = append(queue, touched...)
		}
	}
}

// fixChildren исправляет первого недопустимого ребенка key. Возвращает узлы, которые нужно проверить заново.
func (tx *Tx) fixChildren(key edtypes.NodeKey) ([]edtypes.NodeKey, bool) {
	parent := tx.Node(key)
	if parent == nil {
		return nil, false
	}
	children := parent.Children
	for i, childKey := range children {
		child := tx.Node(childKey)
		if child == nil {
			continue
		}
		fix := childFix(parent.Type, child.Type)
		switch fix.kind {
		case fixKeep:
			continue

		case fixWrap:
			run := []edtypes.NodeKey{childKey}
			for _, next := range children[i+1:] {
				n := tx.Node(next)
				if n == nil || !sameRun(child.Type, n.Type) || childFix(parent.Type, n.Type) != fix {
					break
				}
				run = append(run, next)
			}
			w := tx.wrap(run, fix.wrapper)
			return []edtypes.NodeKey{key, w}, true

		case fixUnwrap:
			if err := tx.Unwrap(childKey); err != nil {
				slog.Warn("Unwrap misplaced node", "type", child.Type, "err", err)
				_ = tx.Detach(childKey)
			}
			return []edtypes.NodeKey{key}, true

		case fixLift:
			return tx.liftToContainer(childKey), true
		}
	}
	return nil, false
}

// wrap вставляет новый узел типа t на место первого из run и переносит в него run.
func (tx *Tx) wrap(run []edtypes.NodeKey, t edtypes.NodeType) edtypes.NodeKey {
	w := tx.CreateNode(t, edtypes.Attrs{})
	_ = tx.InsertBefore(run[0], w.Key)
	for _, k := range run {
		_ = tx.Detach(k)
		_ = tx.Append(w.Key, k)
	}
	return w.Key
}

// liftToContainer поднимает узел до ближайшего блочного контейнера. Каждый промежуточный родитель
// разрезается на две части: до узла и после него, пустые части удаляются.
func (tx *Tx) liftToContainer(key edtypes.NodeKey) []edtypes.NodeKey {
	var touched []edtypes.NodeKey
	for {
		n := tx.Node(key)
		parentKey := n.Parent
		parent := tx.Node(parentKey)
		if parent == nil || isBlockContainer(parent.Type) {
			return append(touched, parentKey)
		}

		idx := tx.IndexOf(key)
		tail := tx.CreateNode(parent.Type, parent.Attrs)
		_ = tx.InsertAfter(parentKey, tail.Key)
		_ = tx.MoveChildren(parentKey, idx+1, tail.Key)
		_ = tx.Detach(key)
		_ = tx.InsertAfter(parentKey, key)

		for _, part := range []edtypes.NodeKey{parentKey, tail.Key} {
			if len(tx.Children(part)) == 0 {
				_ = tx.Detach(part)
				continue
			}
			touched = append(touched, part)
		}
	}
}
