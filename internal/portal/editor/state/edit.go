package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// boundary - позиция между детьми parent перед узлом before. before == 0 означает конец parent.
type boundary struct {
	parent edtypes.NodeKey
	before edtypes.NodeKey
}

func (tx *Tx) boundaryIndex(b boundary) int {
	if b.before == 0 {
		return len(tx.Children(b.parent))
	}
	if idx := slices.Index(tx.Children(b.parent), b.before); idx >= 0 {
		return idx
	}
	return len(tx.Children(b.parent))
}

func (tx *Tx) boundaryAt(parent edtypes.NodeKey, idx int) boundary {
	children := tx.Children(parent)
	if idx >= len(children) {
		return boundary{parent: parent}
	}
	return boundary{parent: parent, before: children[max(idx, 0)]}
}

func (tx *Tx) boundaryPos(b boundary) position {
	path, _ := pathOf(tx.Node, tx.root, b.parent)
	return append(path, tx.boundaryIndex(b))
}

// SplitText разделяет текстовый узел по смещению в рунах. Правая часть становится новым узлом
// с тем же форматированием. Возвращает ключ правой части или 0, если смещение на краю узла.
func (tx *Tx) SplitText(key edtypes.NodeKey, offset int) (edtypes.NodeKey, error) {
	n := tx.Node(key)
	if n == nil || !n.IsText() {
		return 0, fmt.Errorf("%w: text %d", ErrNodeNotFound, key)
	}
	runes := []rune(n.Text)
	if offset <= 0 || offset >= len(runes) {
		return 0, nil
	}

	right := tx.CreateNode(edtypes.TextNode, n.Attrs)
	right.Text = string(runes[offset:])
	tx.Writable(key).Text = string(runes[:offset])
	if n.Parent != 0 {
		if err := tx.InsertAfter(key, right.Key); err != nil {
			return 0, err
		}
	}

	if sel := tx.selection; sel != nil {
		remap := func(p Point) Point {
			if p.Key == key && p.Kind == PointText && p.Offset > offset {
				return TextPoint(right.Key, p.Offset-offset)
			}
			return p
		}
		sel.Anchor = remap(sel.Anchor)
		sel.Focus = remap(sel.Focus)
	}
	return right.Key, nil
}

// toBoundary переводит точку в границу между узлами, разрезая текст при необходимости.
func (tx *Tx) toBoundary(p Point) (boundary, error) {
	n := tx.Node(p.Key)
	if n == nil {
		return boundary{}, fmt.Errorf("%w: point %d", ErrNodeNotFound, p.Key)
	}
	if p.Kind == PointElement || !n.IsText() {
		return tx.boundaryAt(p.Key, p.Offset), nil
	}

	switch {
	case p.Offset <= 0:
		return boundary{parent: n.Parent, before: p.Key}, nil
	case p.Offset >= n.TextLen():
		return tx.boundaryAt(n.Parent, tx.IndexOf(p.Key)+1), nil
	}
	right, err := tx.SplitText(p.Key, p.Offset)
	if err != nil {
		return boundary{}, err
	}
	return boundary{parent: n.Parent, before: right}, nil
}

// ensureSelection ставит каретку в конец документа, если выделения нет.
func (tx *Tx) ensureSelection() *Selection {
	if tx.selection == nil {
		end := tx.EndPoint()
		tx.selection = Caret(end)
		tx.selectionChanged = true
	}
	return tx.selection
}

// splitRange разрезает текст на краях выделения и возвращает границы диапазона.
func (tx *Tx) splitRange() (start, end boundary, err error) {
	sel := tx.ensureSelection()
	s, e := tx.orderedRange(sel)
	// Конец режется первым: разрез начала не меняет точку конца в том же узле
	if end, err = tx.toBoundary(e); err != nil {
		return
	}
	s, _ = tx.orderedRange(sel)
	start, err = tx.toBoundary(s)
	return
}

// leavesBetween возвращает листовые узлы между границами в порядке документа.
func (tx *Tx) leavesBetween(start, end boundary) []edtypes.NodeKey {
	sp, ep := tx.boundaryPos(start), tx.boundaryPos(end)
	var res []edtypes.NodeKey
	var visit func(key edtypes.NodeKey, path position)
	visit = func(key edtypes.NodeKey, path position) {
		n := tx.Node(key)
		if n == nil {
			return
		}
		if !n.IsElement() {
			if comparePositions(path, sp) >= 0 && comparePositions(path, ep) < 0 {
				res = append(res, key)
			}
			return
		}
		for i, child := range n.Children {
			visit(child, append(slices.Clone(path), i))
		}
	}
	visit(tx.root, position{})
	return res
}

// SelectedLeaves возвращает листовые узлы выделения. Текст на краях диапазона разрезается,
// поэтому возвращаются только целиком выделенные узлы. Для выделения узлов возвращаются сами узлы.
func (tx *Tx) SelectedLeaves() ([]edtypes.NodeKey, error) {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() {
		return slices.Clone(sel.Nodes), nil
	}
	if sel.IsCollapsed() {
		return nil, nil
	}
	start, end, err := tx.splitRange()
	if err != nil {
		return nil, err
	}
	return tx.leavesBetween(start, end), nil
}

// SelectedText возвращает целиком выделенные текстовые узлы.
func (tx *Tx) SelectedText() ([]edtypes.NodeKey, error) {
	leaves, err := tx.SelectedLeaves()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(leaves, func(k edtypes.NodeKey) bool {
		n := tx.Node(k)
		return n == nil || !n.IsText()
	}), nil
}

// selectLeaves выделяет диапазон от начала first до конца last.
func (tx *Tx) selectLeaves(first, last edtypes.NodeKey) {
	startOf := func(k edtypes.NodeKey) Point {
		if n := tx.Node(k); n.IsText() {
			return TextPoint(k, 0)
		}
		return ElementPoint(tx.Node(k).Parent, tx.IndexOf(k))
	}
	endOf := func(k edtypes.NodeKey) Point {
		if n := tx.Node(k); n.IsText() {
			return TextPoint(k, n.TextLen())
		}
		return ElementPoint(tx.Node(k).Parent, tx.IndexOf(k)+1)
	}
	prev := tx.ensureSelection()
	sel := Range(startOf(first), endOf(last))
	sel.Format, sel.Style = prev.Format, prev.Style
	tx.selection = sel
	tx.selectionChanged = true
}

// FormatText переключает бит форматирования. Если весь выделенный текст уже имеет бит,
// он снимается, иначе устанавливается. На свернутой каретке меняется формат набираемого текста.
func (tx *Tx) FormatText(flag edtypes.Format) error {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() {
		return nil
	}
	if sel.IsCollapsed() {
		sel.Format = sel.Format.Toggle(flag)
		tx.selectionChanged = true
		return nil
	}

	texts, err := tx.SelectedText()
	if err != nil || len(texts) == 0 {
		return err
	}
	all := true
	for _, k := range texts {
		if !tx.Node(k).Format.Has(flag) {
			all = false
			break
		}
	}
	for _, k := range texts {
		w := tx.Writable(k)
		if all {
			w.Format &^= flag
		} else {
			w.Format |= flag
		}
	}
	tx.selectLeaves(texts[0], texts[len(texts)-1])
	tx.selection.Format = tx.Node(texts[0]).Format
	return nil
}

// PatchTextStyle применяет patch к стилю выделенного текста или к стилю набираемого текста.
func (tx *Tx) PatchTextStyle(patch func(style string) string) error {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() {
		return nil
	}
	if sel.IsCollapsed() {
		sel.Style = patch(sel.Style)
		tx.selectionChanged = true
		return nil
	}

	texts, err := tx.SelectedText()
	if err != nil || len(texts) == 0 {
		return err
	}
	for _, k := range texts {
		w := tx.Writable(k)
		w.Style = patch(w.Style)
	}
	tx.selectLeaves(texts[0], texts[len(texts)-1])
	tx.selection.Style = tx.Node(texts[0]).Style
	return nil
}

// isContainer сообщает, содержит ли узел блоки (а не inline-узлы).
func (tx *Tx) isContainer(key edtypes.NodeKey) bool {
	n := tx.Node(key)
	return n != nil && (n.Type == edtypes.RootNode || n.Type == edtypes.TableCellNode)
}

// BlockOf возвращает ближайший блочный предок узла (включая сам узел).
func (tx *Tx) BlockOf(key edtypes.NodeKey) edtypes.NodeKey {
	for key != 0 {
		n := tx.Node(key)
		if n == nil {
			return 0
		}
		if n.IsElement() && !n.IsInline() {
			return key
		}
		key = n.Parent
	}
	return 0
}

// LinkOf возвращает ближайший предок-ссылку (link или autolink) или 0.
func (tx *Tx) LinkOf(key edtypes.NodeKey) edtypes.NodeKey {
	for key != 0 {
		n := tx.Node(key)
		if n == nil || (n.IsElement() && !n.IsInline()) {
			return 0
		}
		if n.IsLink() {
			return key
		}
		key = n.Parent
	}
	return 0
}

func (tx *Tx) containerOf(key edtypes.NodeKey) edtypes.NodeKey {
	for key != 0 && !tx.isContainer(key) {
		key = tx.Node(key).Parent
	}
	return key
}

// splitUpTo разрезает предков границы вплоть до stop (не включая) и возвращает индекс в stop.
func (tx *Tx) splitUpTo(b boundary, stop edtypes.NodeKey) (int, error) {
	parent, idx := b.parent, tx.boundaryIndex(b)
	for parent != stop {
		p := tx.Node(parent)
		if p == nil || p.Parent == 0 {
			return 0, fmt.Errorf("%w: %d is not under %d", ErrNodeNotFound, b.parent, stop)
		}
		gp, pIdx := p.Parent, tx.IndexOf(parent)
		switch {
		case idx == 0:
			parent, idx = gp, pIdx
		case idx >= len(p.Children):
			parent, idx = gp, pIdx+1
		default:
			clone := tx.CreateNode(p.Type, p.Attrs)
			if err := tx.MoveChildren(parent, idx, clone.Key); err != nil {
				return 0, err
			}
			if err := tx.InsertAt(gp, pIdx+1, clone.Key); err != nil {
				return 0, err
			}
			parent, idx = gp, pIdx+1
		}
	}
	return idx, nil
}

// StartPointOf возвращает первую позицию каретки внутри узла.
func (tx *Tx) StartPointOf(key edtypes.NodeKey) Point {
	for {
		n := tx.Node(key)
		if n.IsText() {
			return TextPoint(key, 0)
		}
		if !n.IsElement() {
			return ElementPoint(n.Parent, tx.IndexOf(key))
		}
		if len(n.Children) == 0 {
			return ElementPoint(key, 0)
		}
		first := tx.Node(n.Children[0])
		if !first.IsElement() && !first.IsText() {
			return ElementPoint(key, 0)
		}
		key = first.Key
	}
}

// prepareInsert удаляет выделенное содержимое и возвращает границу каретки.
func (tx *Tx) prepareInsert() (boundary, error) {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() || !sel.IsCollapsed() {
		if err := tx.DeleteSelection(); err != nil {
			return boundary{}, err
		}
	}
	return tx.toBoundary(tx.selection.Anchor)
}

// insertInline вставляет inline-узел по границе. В контейнере блоков узел оборачивается в параграф.
// Возвращает границу сразу после вставленного узла.
func (tx *Tx) insertInline(b boundary, key edtypes.NodeKey) (boundary, error) {
	if tx.isContainer(b.parent) {
		p := tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{})
		if err := tx.InsertAt(b.parent, tx.boundaryIndex(b), p.Key); err != nil {
			return boundary{}, err
		}
		b = boundary{parent: p.Key}
	}
	if err := tx.InsertAt(b.parent, tx.boundaryIndex(b), key); err != nil {
		return boundary{}, err
	}
	return tx.boundaryAt(b.parent, tx.IndexOf(key)+1), nil
}

// InsertText вставляет текст в позицию каретки, заменяя выделенное. Переводы строк становятся linebreak.
func (tx *Tx) InsertText(text string) error {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() || !sel.IsCollapsed() {
		if err := tx.DeleteSelection(); err != nil {
			return err
		}
	}
	format, style := tx.selection.Format, tx.selection.Style
	caret := tx.selection.Anchor

	insert := func(key edtypes.NodeKey) (boundary, error) {
		b, err := tx.toBoundary(caret)
		if err != nil {
			return boundary{}, err
		}
		return tx.insertInline(b, key)
	}

	for i, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if i > 0 {
			br := tx.CreateNode(edtypes.LineBreakNode, edtypes.Attrs{})
			b, err := insert(br.Key)
			if err != nil {
				return err
			}
			caret = ElementPoint(b.parent, tx.boundaryIndex(b))
		}
		if line == "" {
			continue
		}

		// Дописываем в текущий текстовый узел, если формат совпадает
		if n := tx.Node(caret.Key); caret.Kind == PointText && n != nil && n.IsText() &&
			n.Format == format && n.Style == style {
			runes := []rune(n.Text)
			offset := min(caret.Offset, len(runes))
			tx.Writable(caret.Key).Text = string(runes[:offset]) + line + string(runes[offset:])
			caret = TextPoint(caret.Key, offset+len([]rune(line)))
			continue
		}

		t := tx.CreateNode(edtypes.TextNode, edtypes.Attrs{Text: line, Format: format, Style: style, Mode: "normal"})
		if _, err := insert(t.Key); err != nil {
			return err
		}
		caret = TextPoint(t.Key, t.TextLen())
	}

	tx.selection = &Selection{Anchor: caret, Focus: caret, Format: format, Style: style}
	tx.selectionChanged = true
	return nil
}

// InsertNodes вставляет сериализованные узлы в позицию каретки, заменяя выделенное.
// Inline-узлы вставляются в текущий блок, блоки - в ближайший контейнер с разрезанием текущего блока.
// Каретка ставится сразу после вставленного содержимого.
func (tx *Tx) InsertNodes(nodes []edtypes.SerializedNode) error {
	if len(nodes) == 0 {
		return nil
	}
	b, err := tx.prepareInsert()
	if err != nil {
		return err
	}
	prev := tx.selection

	allInline := true
	for _, n := range nodes {
		if spec, ok := edtypes.Lookup(n.Type); !ok || !spec.Inline {
			allInline = false
			break
		}
	}

	if allInline {
		for _, sn := range nodes {
			n, err := tx.Import(sn)
			if err != nil {
				return err
			}
			if b, err = tx.insertInline(b, n.Key); err != nil {
				return err
			}
		}
		caret := ElementPoint(b.parent, tx.boundaryIndex(b))
		tx.selection = &Selection{Anchor: caret, Focus: caret, Format: prev.Format, Style: prev.Style}
		tx.selectionChanged = true
		return nil
	}

	container := tx.containerOf(b.parent)
	idx, err := tx.splitUpTo(b, container)
	if err != nil {
		return err
	}
	for _, sn := range edtypes.WrapInlineRuns(nodes) {
		n, err := tx.Import(sn)
		if err != nil {
			return err
		}
		if err := tx.InsertAt(container, idx, n.Key); err != nil {
			return err
		}
		idx++
	}

	children := tx.Children(container)
	var next edtypes.NodeKey
	if idx < len(children) {
		next = children[idx]
	}
	if n := tx.Node(next); n == nil || !n.IsElement() {
		p := tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{})
		if err := tx.InsertAt(container, idx, p.Key); err != nil {
			return err
		}
		next = p.Key
	}
	caret := tx.StartPointOf(next)
	tx.selection = &Selection{Anchor: caret, Focus: caret}
	tx.selectionChanged = true
	return nil
}

// InsertParagraph разрезает текущий блок в позиции каретки. Каретка переходит в начало нового блока.
func (tx *Tx) InsertParagraph() error {
	b, err := tx.prepareInsert()
	if err != nil {
		return err
	}
	block := tx.BlockOf(b.parent)
	if tx.isContainer(block) {
		p := tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{})
		if err := tx.InsertAt(block, tx.boundaryIndex(b), p.Key); err != nil {
			return err
		}
		tx.selection = Caret(ElementPoint(p.Key, 0))
		tx.selectionChanged = true
		return nil
	}

	idx, err := tx.splitUpTo(b, block)
	if err != nil {
		return err
	}
	bn := tx.Node(block)
	var next *edtypes.Node
	switch {
	case bn.Type == edtypes.ListItemNode:
		next = tx.CreateNode(edtypes.ListItemNode, edtypes.Attrs{Direction: bn.Direction, Align: bn.Align, Indent: bn.Indent})
	case bn.Type == edtypes.HeadingNode && idx < len(bn.Children):
		next = tx.CreateNode(edtypes.HeadingNode, bn.Attrs)
	default:
		next = tx.CreateNode(edtypes.ParagraphNode, edtypes.Attrs{Direction: bn.Direction, Align: bn.Align, Indent: bn.Indent})
	}
	if err := tx.MoveChildren(block, idx, next.Key); err != nil {
		return err
	}
	if err := tx.InsertAfter(block, next.Key); err != nil {
		return err
	}

	caret := tx.StartPointOf(next.Key)
	tx.selection = &Selection{Anchor: caret, Focus: caret, Format: tx.selection.Format, Style: tx.selection.Style}
	tx.selectionChanged = true
	return nil
}

// DeleteSelection удаляет выделенное содержимое. Блоки на краях диапазона сливаются,
// полностью выделенные промежуточные элементы удаляются. Каретка ставится в начало диапазона.
func (tx *Tx) DeleteSelection() error {
	sel := tx.ensureSelection()
	if sel.IsNodeSelection() {
		return tx.removeSelectedNodes()
	}
	if sel.IsCollapsed() {
		return nil
	}

	start, end, err := tx.splitRange()
	if err != nil {
		return err
	}
	sp, ep := tx.boundaryPos(start), tx.boundaryPos(end)
	startIdx := tx.boundaryIndex(start)

	protected := make(map[edtypes.NodeKey]bool)
	for _, k := range []edtypes.NodeKey{start.parent, end.parent} {
		for k != 0 {
			protected[k] = true
			k = tx.Node(k).Parent
		}
	}

	var targets []edtypes.NodeKey
	var visit func(key edtypes.NodeKey, path position)
	visit = func(key edtypes.NodeKey, path position) {
		n := tx.Node(key)
		if n == nil {
			return
		}
		if !n.IsElement() || !protected[key] {
			endPath := append(slices.Clone(path), len(n.Children))
			if key != tx.root && comparePositions(path, sp) >= 0 && comparePositions(endPath, ep) <= 0 &&
				comparePositions(path, ep) < 0 {
				targets = append(targets, key)
				return
			}
		}
		for i, child := range n.Children {
			visit(child, append(slices.Clone(path), i))
		}
	}
	visit(tx.root, position{})

	for _, k := range targets {
		if err := tx.Detach(k); err != nil {
			return err
		}
	}

	caret := ElementPoint(start.parent, min(startIdx, len(tx.Children(start.parent))))
	// Опустевшая ссылка на краю диапазона удаляется целиком
	if n := tx.Node(start.parent); n.IsInline() && len(n.Children) == 0 {
		parent, idx := n.Parent, tx.IndexOf(start.parent)
		if err := tx.Detach(start.parent); err != nil {
			return err
		}
		caret = ElementPoint(parent, idx)
		start = boundary{parent: parent}
	}
	if caret.Offset > 0 {
		if prev := tx.Node(tx.Children(start.parent)[caret.Offset-1]); prev.IsText() {
			caret = TextPoint(prev.Key, prev.TextLen())
		}
	}

	startBlock, endBlock := tx.BlockOf(start.parent), tx.BlockOf(end.parent)
	if startBlock != endBlock && !tx.isContainer(startBlock) && !tx.isContainer(endBlock) &&
		tx.containerOf(startBlock) == tx.containerOf(endBlock) {
		oldParent := tx.Node(endBlock).Parent
		if err := tx.MoveChildren(endBlock, 0, startBlock); err != nil {
			return err
		}
		if err := tx.Detach(endBlock); err != nil {
			return err
		}
		tx.removeEmptyAncestors(oldParent)
	}

	tx.selection = &Selection{Anchor: caret, Focus: caret, Format: sel.Format, Style: sel.Style}
	tx.selectionChanged = true
	return nil
}

// removeEmptyAncestors удаляет опустевшие элементы, поднимаясь до ближайшего контейнера.
func (tx *Tx) removeEmptyAncestors(key edtypes.NodeKey) {
	for key != 0 && !tx.isContainer(key) {
		n := tx.Node(key)
		if n == nil || len(n.Children) > 0 {
			return
		}
		parent := n.Parent
		_ = tx.Detach(key)
		key = parent
	}
}

func (tx *Tx) removeSelectedNodes() error {
	keys := tx.selection.Nodes
	if len(keys) == 0 {
		return nil
	}
	first := tx.Node(keys[0])
	if first == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, keys[0])
	}
	parent, idx := first.Parent, tx.IndexOf(keys[0])
	for _, k := range keys {
		if err := tx.RemoveNode(k); err != nil {
			return err
		}
	}
	if tx.Node(parent) == nil || !tx.attached(parent) {
		end := tx.EndPoint()
		tx.selection = Caret(end)
	} else {
		tx.selection = Caret(ElementPoint(parent, min(max(idx, 0), len(tx.Children(parent)))))
	}
	tx.selectionChanged = true
	return nil
}

// RemoveNode удаляет узел как единое целое. Окружающий текст не изменяется.
func (tx *Tx) RemoveNode(key edtypes.NodeKey) error {
	n := tx.Node(key)
	if n == nil || !tx.attached(key) {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	parent, idx := n.Parent, tx.IndexOf(key)
	if err := tx.Detach(key); err != nil {
		return err
	}
	tx.shiftElementPoints(parent, idx)
	return nil
}

// SelectBeside ставит каретку непосредственно перед узлом или после него.
func (tx *Tx) SelectBeside(key edtypes.NodeKey, after bool) error {
	n := tx.Node(key)
	if n == nil || !tx.attached(key) || key == tx.root {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	idx := tx.IndexOf(key)
	if after {
		idx++
	}
	tx.selection = Caret(ElementPoint(n.Parent, idx))
	tx.selectionChanged = true
	return nil
}

// SetLink оборачивает выделенные inline-узлы в ссылку. Существующие ссылки в выделении
// снимаются, а если все выделенное уже внутри одной ссылки, у нее меняется адрес.
// На свернутой каретке внутри ссылки меняется адрес этой ссылки.
func (tx *Tx) SetLink(attrs edtypes.Attrs) error {
	sel := tx.ensureSelection()
	if sel.IsCollapsed() {
		if link := tx.LinkOf(sel.Anchor.Key); link != 0 {
			tx.updateLink(link, attrs)
		}
		return nil
	}

	leaves, err := tx.inlineLeaves()
	if err != nil || len(leaves) == 0 {
		return err
	}

	links := tx.linksOf(leaves)
	if len(links) == 1 {
		inside := true
		for _, k := range leaves {
			if tx.LinkOf(k) != links[0] {
				inside = false
				break
			}
		}
		if inside {
			tx.updateLink(links[0], attrs)
			return nil
		}
	}
	for _, link := range links {
		if err := tx.Unwrap(link); err != nil {
			return err
		}
	}

	// Подряд идущие узлы одного родителя оборачиваются одной ссылкой
	var group []edtypes.NodeKey
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		link := tx.CreateNode(edtypes.LinkNode, attrs)
		if err := tx.InsertBefore(group[0], link.Key); err != nil {
			return err
		}
		for _, k := range group {
			if err := tx.Detach(k); err != nil {
				return err
			}
			if err := tx.Append(link.Key, k); err != nil {
				return err
			}
		}
		group = nil
		return nil
	}
	for _, k := range leaves {
		if len(group) > 0 {
			last := group[len(group)-1]
			if tx.Node(last).Parent != tx.Node(k).Parent || tx.IndexOf(last)+1 != tx.IndexOf(k) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		group = append(group, k)
	}
	if err := flush(); err != nil {
		return err
	}
	tx.selectLeaves(leaves[0], leaves[len(leaves)-1])
	return nil
}

// RemoveLinks снимает ссылки с выделения (или со ссылки под кареткой), сохраняя их содержимое.
func (tx *Tx) RemoveLinks() error {
	sel := tx.ensureSelection()
	if sel.IsCollapsed() {
		if link := tx.LinkOf(sel.Anchor.Key); link != 0 {
			return tx.Unwrap(link)
		}
		return nil
	}
	leaves, err := tx.inlineLeaves()
	if err != nil {
		return err
	}
	for _, link := range tx.linksOf(leaves) {
		if err := tx.Unwrap(link); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Tx) updateLink(link edtypes.NodeKey, attrs edtypes.Attrs) {
	w := tx.Writable(link)
	w.Type = edtypes.LinkNode
	w.URL, w.Target, w.Rel, w.Title = attrs.URL, attrs.Target, attrs.Rel, attrs.Title
}

func (tx *Tx) inlineLeaves() ([]edtypes.NodeKey, error) {
	leaves, err := tx.SelectedLeaves()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(leaves, func(k edtypes.NodeKey) bool {
		n := tx.Node(k)
		return n == nil || !n.IsInline()
	}), nil
}

func (tx *Tx) linksOf(keys []edtypes.NodeKey) []edtypes.NodeKey {
	var links []edtypes.NodeKey
	for _, k := range keys {
		if link := tx.LinkOf(k); link != 0 && !slices.Contains(links, link) {
			links = append(links, link)
		}
	}
	return links
}
