package state

import (
	"slices"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// Snapshot - неизменяемое состояние документа после коммита транзакции.
// Узлы снимка разделяются между соседними поколениями и не должны изменяться вызывающим кодом.
type Snapshot struct {
	nodes     map[edtypes.NodeKey]*edtypes.Node
	root      edtypes.NodeKey
	selection *Selection

	generation     uint64
	contentVersion uint64
	tag            string
}

// Generation растет с каждым коммитом, включая коммиты, которые меняют только выделение.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// ContentVersion растет только при изменении содержимого документа.
func (s *Snapshot) ContentVersion() uint64 {
	return s.contentVersion
}

// Tag - метка транзакции, создавшей снимок (TagHydrate, TagSelection или метка команды).
func (s *Snapshot) Tag() string {
	return s.tag
}

func (s *Snapshot) Node(key edtypes.NodeKey) (*edtypes.Node, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

func (s *Snapshot) Root() *edtypes.Node {
	return s.nodes[s.root]
}

func (s *Snapshot) RootKey() edtypes.NodeKey {
	return s.root
}

func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Selection возвращает копию текущего выделения или nil.
func (s *Snapshot) Selection() *Selection {
	return s.selection.Clone()
}

// Walk обходит дерево в порядке документа. Если fn возвращает false, дети узла пропускаются.
func (s *Snapshot) Walk(fn func(n *edtypes.Node, depth int) bool) {
	walk(s.nodes, s.root, 0, fn)
}

func walk(nodes map[edtypes.NodeKey]*edtypes.Node, key edtypes.NodeKey, depth int, fn func(n *edtypes.Node, depth int) bool) {
	n, ok := nodes[key]
	if !ok {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		walk(nodes, child, depth+1, fn)
	}
}

// Export строит каноническое сериализованное состояние документа.
func (s *Snapshot) Export() edtypes.SerializedEditorState {
	state := edtypes.SerializedEditorState{Root: s.ExportNode(s.root)}
	state.Normalize()
	return state
}

// ExportNode строит отсоединенное поддерево для узла.
func (s *Snapshot) ExportNode(key edtypes.NodeKey) edtypes.SerializedNode {
	return exportNode(func(k edtypes.NodeKey) *edtypes.Node { return s.nodes[k] }, key)
}

func exportNode(get func(edtypes.NodeKey) *edtypes.Node, key edtypes.NodeKey) edtypes.SerializedNode {
	n := get(key)
	if n == nil {
		return edtypes.SerializedNode{}
	}
	res := edtypes.SerializedNode{Type: n.Type, Version: n.Version, Attrs: n.Attrs}
	if n.IsElement() {
		res.Children = make([]edtypes.SerializedNode, 0, len(n.Children))
		for _, child := range n.Children {
			res.Children = append(res.Children, exportNode(get, child))
		}
	}
	return res
}

// TextContent возвращает текст документа без форматирования.
func (s *Snapshot) TextContent() string {
	return s.ExportNode(s.root).TextContent()
}

// PathOf возвращает путь из индексов детей от корня до узла.
func (s *Snapshot) PathOf(key edtypes.NodeKey) ([]int, bool) {
	return pathOf(func(k edtypes.NodeKey) *edtypes.Node { return s.nodes[k] }, s.root, key)
}

// KeyAt возвращает ключ узла по пути из индексов детей.
func (s *Snapshot) KeyAt(path []int) (edtypes.NodeKey, bool) {
	key := s.root
	for _, idx := range path {
		n := s.nodes[key]
		if n == nil || idx < 0 || idx >= len(n.Children) {
			return 0, false
		}
		key = n.Children[idx]
	}
	return key, true
}

func pathOf(get func(edtypes.NodeKey) *edtypes.Node, root, key edtypes.NodeKey) ([]int, bool) {
	var rev []int
	for key != root {
		n := get(key)
		if n == nil || n.Parent == 0 {
			return nil, false
		}
		parent := get(n.Parent)
		if parent == nil {
			return nil, false
		}
		idx := slices.Index(parent.Children, key)
		if idx < 0 {
			return nil, false
		}
		rev = append(rev, idx)
		key = n.Parent
	}
	path := make([]int, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idx
	}
	return path, true
}

