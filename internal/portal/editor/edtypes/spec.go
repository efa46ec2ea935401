package edtypes

import "sync"

// Spec описывает контракт типа узла: дискриминатор, версию схемы, поток раскладки и
// функции переноса атрибутов в JSON и обратно.
type Spec struct {
	Type      NodeType
	Version   int
	Element   bool
	Inline    bool
	Decorator bool

	Export func(a *Attrs, m map[string]any)
	Import func(m map[string]any, a *Attrs)
}

func (s *Spec) Flow() Flow {
	if s.Inline {
		return FlowInline
	}
	return FlowBlock
}

var (
	specsMu sync.RWMutex
	specs   = make(map[NodeType]*Spec)
)

// Register добавляет спецификацию типа узла. Повторная регистрация заменяет предыдущую.
func Register(spec Spec) {
	if spec.Version == 0 {
		spec.Version = 1
	}
	specsMu.Lock()
	defer specsMu.Unlock()
	specs[spec.Type] = &spec
}

// Lookup возвращает спецификацию зарегистрированного типа.
func Lookup(t NodeType) (*Spec, bool) {
	specsMu.RLock()
	defer specsMu.RUnlock()
	s, ok := specs[t]
	return s, ok
}

// IsKnown сообщает, зарегистрирован ли тип узла.
func IsKnown(t NodeType) bool {
	_, ok := Lookup(t)
	return ok
}

func init() {
	Register(Spec{Type: RootNode, Element: true, Export: exportElement, Import: importElement})
	Register(Spec{Type: ParagraphNode, Element: true, Export: exportElement, Import: importElement})
	Register(Spec{Type: HeadingNode, Element: true, Export: exportHeading, Import: importHeading})
	Register(Spec{Type: ListNode, Element: true, Export: exportList, Import: importList})
	Register(Spec{Type: ListItemNode, Element: true, Export: exportListItem, Import: importListItem})
	Register(Spec{Type: TextNode, Inline: true, Export: exportText, Import: importText})
	Register(Spec{Type: LineBreakNode, Inline: true, Export: func(*Attrs, map[string]any) {}, Import: func(map[string]any, *Attrs) {}})
	Register(Spec{Type: LinkNode, Element: true, Inline: true, Export: exportLink, Import: importLink})
	Register(Spec{Type: AutoLinkNode, Element: true, Inline: true, Export: exportLink, Import: importLink})
	Register(Spec{Type: ImageNode, Inline: true, Decorator: true, Export: exportImage, Import: importImage})
	Register(Spec{Type: YouTubeNode, Decorator: true, Export: exportYouTube, Import: importYouTube})
	Register(Spec{Type: TableNode, Element: true, Export: exportElement, Import: importElement})
	Register(Spec{Type: TableRowNode, Element: true, Export: exportElement, Import: importElement})
	Register(Spec{Type: TableCellNode, Element: true, Export: exportTableCell, Import: importTableCell})
}
