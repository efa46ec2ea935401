package state

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// Tx - транзакция над снимком. Изменяемые узлы клонируются в оверлей при первом обращении
// через Writable, исходный снимок не меняется.
type Tx struct {
	store *Store
	base  *Snapshot

	root   edtypes.NodeKey
	writes map[edtypes.NodeKey]*edtypes.Node

	selection        *Selection
	selectionChanged bool
}

func newTx(store *Store, base *Snapshot) *Tx {
	return &Tx{
		store:     store,
		base:      base,
		root:      base.root,
		writes:    make(map[edtypes.NodeKey]*edtypes.Node),
		selection: base.selection.Clone(),
	}
}

func (tx *Tx) contentChanged() bool {
	return len(tx.writes) > 0
}

// Node возвращает узел с учетом изменений транзакции или nil.
// Возвращенный узел нельзя изменять, для изменения используется Writable.
func (tx *Tx) Node(key edtypes.NodeKey) *edtypes.Node {
	if n, ok := tx.writes[key]; ok {
		return n
	}
	return tx.base.nodes[key]
}

// Writable возвращает изменяемую копию узла в рамках транзакции.
func (tx *Tx) Writable(key edtypes.NodeKey) *edtypes.Node {
	if n, ok := tx.writes[key]; ok {
		return n
	}
	n, ok := tx.base.nodes[key]
	if !ok {
		return nil
	}
	c := n.Clone()
	tx.writes[key] = c
	return c
}

func (tx *Tx) Root() *edtypes.Node {
	return tx.Node(tx.root)
}

func (tx *Tx) RootKey() edtypes.NodeKey {
	return tx.root
}

// Dirty возвращает ключи узлов, созданных или измененных в транзакции.
func (tx *Tx) Dirty() []edtypes.NodeKey {
	return slices.Sorted(maps.Keys(tx.writes))
}

// IsDirty сообщает, изменен ли узел в транзакции.
func (tx *Tx) IsDirty(key edtypes.NodeKey) bool {
	_, ok := tx.writes[key]
	return ok
}

func (tx *Tx) Selection() *Selection {
	return tx.selection
}

// SetSelection заменяет выделение. Если формат набираемого текста не задан, он берется
// у текстового узла под anchor.
func (tx *Tx) SetSelection(sel *Selection) {
	tx.selection = sel.Clone()
	if s := tx.selection; s != nil && !s.IsNodeSelection() && s.Format == 0 && s.Style == "" {
		if n := tx.Node(s.Anchor.Key); n != nil && n.IsText() {
			s.Format, s.Style = n.Format, n.Style
		}
	}
	tx.selectionChanged = true
}

// CreateNode создает новый отсоединенный узел.
func (tx *Tx) CreateNode(t edtypes.NodeType, attrs edtypes.Attrs) *edtypes.Node {
	n := &edtypes.Node{
		Key:     tx.store.newKey(),
		Type:    t,
		Version: 1,
		Attrs:   attrs,
	}
	if spec, ok := edtypes.Lookup(t); ok {
		n.Version = spec.Version
		if spec.Element {
			n.Children = []edtypes.NodeKey{}
		}
	}
	tx.writes[n.Key] = n
	return n
}

// Children возвращает ключи детей узла.
func (tx *Tx) Children(key edtypes.NodeKey) []edtypes.NodeKey {
	n := tx.Node(key)
	if n == nil {
		return nil
	}
	return n.Children
}

// IndexOf возвращает индекс узла среди детей его родителя или -1.
func (tx *Tx) IndexOf(key edtypes.NodeKey) int {
	n := tx.Node(key)
	if n == nil || n.Parent == 0 {
		return -1
	}
	parent := tx.Node(n.Parent)
	if parent == nil {
		return -1
	}
	return slices.Index(parent.Children, key)
}

// attached сообщает, достижим ли узел из корня.
func (tx *Tx) attached(key edtypes.NodeKey) bool {
	for key != tx.root {
		n := tx.Node(key)
		if n == nil || n.Parent == 0 {
			return false
		}
		key = n.Parent
	}
	return true
}

// InsertAt вставляет отсоединенный узел child в parent по индексу.
func (tx *Tx) InsertAt(parent edtypes.NodeKey, index int, child edtypes.NodeKey) error {
	p := tx.Node(parent)
	if p == nil {
		return fmt.Errorf("%w: parent %d", ErrNodeNotFound, parent)
	}
	if !p.IsElement() {
		return fmt.Errorf("%w: %s", ErrNotElement, p.Type)
	}
	c := tx.Node(child)
	if c == nil {
		return fmt.Errorf("%w: child %d", ErrNodeNotFound, child)
	}
	if c.Parent != 0 || child == tx.root {
		return ErrAlreadyAttached
	}
	if tx.isAncestor(child, parent) {
		return fmt.Errorf("%w: cycle", ErrAlreadyAttached)
	}

	p = tx.Writable(parent)
	index = min(max(index, 0), len(p.Children))
	p.Children = slices.Insert(p.Children, index, child)
	tx.Writable(child).Parent = parent
	return nil
}

func (tx *Tx) isAncestor(ancestor, key edtypes.NodeKey) bool {
	for key != 0 {
		if key == ancestor {
			return true
		}
		n := tx.Node(key)
		if n == nil {
			return false
		}
		key = n.Parent
	}
	return false
}

func (tx *Tx) Append(parent, child edtypes.NodeKey) error {
	return tx.InsertAt(parent, len(tx.Children(parent)), child)
}

func (tx *Tx) InsertBefore(ref, child edtypes.NodeKey) error {
	idx := tx.IndexOf(ref)
	if idx < 0 {
		return fmt.Errorf("%w: ref %d", ErrNodeNotFound, ref)
	}
	return tx.InsertAt(tx.Node(ref).Parent, idx, child)
}

func (tx *Tx) InsertAfter(ref, child edtypes.NodeKey) error {
	idx := tx.IndexOf(ref)
	if idx < 0 {
		return fmt.Errorf("%w: ref %d", ErrNodeNotFound, ref)
	}
	return tx.InsertAt(tx.Node(ref).Parent, idx+1, child)
}

// Detach отсоединяет узел от родителя, поддерево узла сохраняется для повторной вставки.
// Узел, не вставленный обратно до коммита, удаляется вместе с поддеревом.
func (tx *Tx) Detach(key edtypes.NodeKey) error {
	if key == tx.root {
		return ErrRootRemoval
	}
	n := tx.Node(key)
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	if n.Parent == 0 {
		return nil
	}
	parent := tx.Writable(n.Parent)
	if idx := slices.Index(parent.Children, key); idx >= 0 {
		parent.Children = slices.Delete(parent.Children, idx, idx+1)
	}
	tx.Writable(key).Parent = 0
	return nil
}

// Remove удаляет узел вместе с поддеревом.
func (tx *Tx) Remove(key edtypes.NodeKey) error {
	return tx.Detach(key)
}

// Replace ставит отсоединенный узел newKey на место old.
func (tx *Tx) Replace(old, newKey edtypes.NodeKey) error {
	if err := tx.InsertBefore(old, newKey); err != nil {
		return err
	}
	return tx.Detach(old)
}

// MoveChildren переносит детей from, начиная с индекса start, в конец to.
func (tx *Tx) MoveChildren(from edtypes.NodeKey, start int, to edtypes.NodeKey) error {
	children := slices.Clone(tx.Children(from))
	if start < 0 || start > len(children) {
		return fmt.Errorf("%w: index %d", ErrNodeNotFound, start)
	}
	for _, child := range children[start:] {
		if err := tx.Detach(child); err != nil {
			return err
		}
		if err := tx.Append(to, child); err != nil {
			return err
		}
	}
	return nil
}

// Unwrap заменяет элемент его детьми.
func (tx *Tx) Unwrap(key edtypes.NodeKey) error {
	n := tx.Node(key)
	if n == nil {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, key)
	}
	idx := tx.IndexOf(key)
	if idx < 0 {
		return fmt.Errorf("%w: %d is detached", ErrNodeNotFound, key)
	}
	parent := n.Parent
	children := slices.Clone(n.Children)
	if err := tx.Detach(key); err != nil {
		return err
	}
	for i, child := range children {
		if err := tx.Detach(child); err != nil {
			return err
		}
		if err := tx.InsertAt(parent, idx+i, child); err != nil {
			return err
		}
	}
	// Точки выделения внутри элемента переносятся на родителя
	if tx.selection != nil {
		remap := func(p Point) Point {
			if p.Key == key && p.Kind == PointElement {
				return ElementPoint(parent, idx+p.Offset)
			}
			return p
		}
		tx.selection.Anchor = remap(tx.selection.Anchor)
		tx.selection.Focus = remap(tx.selection.Focus)
	}
	return nil
}

// Import создает отсоединенное поддерево из сериализованного узла и возвращает его корень.
func (tx *Tx) Import(sn edtypes.SerializedNode) (*edtypes.Node, error) {
	if !edtypes.IsKnown(sn.Type) {
		return nil, &edtypes.UnknownTypeError{Type: sn.Type}
	}
	n := tx.CreateNode(sn.Type, sn.Attrs)
	if sn.Version > 0 {
		n.Version = sn.Version
	}
	if !n.IsElement() {
		return n, nil
	}
	for _, child := range sn.Children {
		c, err := tx.Import(child)
		if err != nil {
			return nil, err
		}
		if err := tx.Append(n.Key, c.Key); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Export строит отсоединенное сериализованное поддерево узла.
func (tx *Tx) Export(key edtypes.NodeKey) edtypes.SerializedNode {
	return exportNode(tx.Node, key)
}

// ReplaceRoot заменяет содержимое документа. Выделение сбрасывается.
func (tx *Tx) ReplaceRoot(state edtypes.SerializedEditorState) error {
	state.Normalize()
	for _, child := range slices.Clone(tx.Children(tx.root)) {
		if err := tx.Detach(child); err != nil {
			return err
		}
	}
	root := tx.Writable(tx.root)
	root.Attrs = state.Root.Attrs
	for _, child := range state.Root.Children {
		n, err := tx.Import(child)
		if err != nil {
			return err
		}
		if err := tx.Append(tx.root, n.Key); err != nil {
			return err
		}
	}
	tx.selection = nil
	tx.selectionChanged = true
	return nil
}

// commit нормализует дерево и собирает новый снимок из достижимых из корня узлов.
func (tx *Tx) commit(tag string) *Snapshot {
	contentChanged := tx.contentChanged()
	if contentChanged {
		tx.normalize()
	}
	tx.normalizeSelection()

	snap := &Snapshot{
		root:           tx.root,
		selection:      tx.selection.Clone(),
		generation:     tx.base.generation + 1,
		contentVersion: tx.base.contentVersion,
		tag:            tag,
	}
	if !contentChanged {
		snap.nodes = tx.base.nodes
		return snap
	}

	snap.contentVersion++
	snap.nodes = make(map[edtypes.NodeKey]*edtypes.Node, len(tx.base.nodes)+len(tx.writes))
	var collect func(key edtypes.NodeKey)
	collect = func(key edtypes.NodeKey) {
		n := tx.Node(key)
		if n == nil {
			return
		}
		snap.nodes[key] = n
		for _, child := range n.Children {
			collect(child)
		}
	}
	collect(tx.root)
	return snap
}
