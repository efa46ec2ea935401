// Пакет decorator содержит реестр узлов-декораторов, внешний вид которых строит хост
// (изображения, встроенные видео), а не общий рендер текста, и HTML-рендер документа.
//
// Основные возможности:
//   - Регистрация функции отрисовки для типа узла с указанием потока (inline/block).
//   - Обход документа с передачей узлов-декораторов зарегистрированным функциям.
//   - Очистка результата политикой redactor-policy и минификация.
//   - Размещение каретки перед изображением или после него по месту клика.
package decorator

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"golang.org/x/net/html"
)

// HostView - представление узла-декоратора, построенное хостом.
type HostView = *html.Node

// RenderFunc строит представление узла по его атрибутам. Функция не должна иметь побочных эффектов.
type RenderFunc func(node edtypes.SerializedNode) HostView

type Entry struct {
	Render RenderFunc
	Flow   edtypes.Flow
	// Clickable включает размещение каретки по клику на половину узла
	Clickable bool
}

type Registry struct {
	mu      sync.RWMutex
	entries map[edtypes.NodeType]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[edtypes.NodeType]Entry)}
}

// Default возвращает реестр со стандартными декораторами image и youtube.
func Default() *Registry {
	r := NewRegistry()
	r.Register(edtypes.ImageNode, Entry{Render: RenderImage, Flow: edtypes.FlowInline, Clickable: true})
	r.Register(edtypes.YouTubeNode, Entry{Render: RenderYouTube, Flow: edtypes.FlowBlock})
	return r
}

func (r *Registry) Register(t edtypes.NodeType, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[t] = e
}

func (r *Registry) Lookup(t edtypes.NodeType) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	return e, ok
}

func (r *Registry) IsDecorator(t edtypes.NodeType) bool {
	_, ok := r.Lookup(t)
	return ok
}

// Side - сторона узла, рядом с которой ставится каретка.
type Side int

const (
	Before Side = iota
	After
)

func (s Side) String() string {
	if s == After {
		return "after"
	}
	return "before"
}

// ClickSide определяет сторону по координате клика x относительно ширины отрисованного узла.
// Клик по левой половине дает Before, по правой - After.
func ClickSide(width, x float64) Side {
	if width <= 0 || x < width/2 {
		return Before
	}
	return After
}

// HandleClick ставит каретку перед узлом-декоратором или после него.
func (r *Registry) HandleClick(tx *state.Tx, key edtypes.NodeKey, width, x float64) error {
	n := tx.Node(key)
	if n == nil {
		return fmt.Errorf("%w: %d", state.ErrNodeNotFound, key)
	}
	e, ok := r.Lookup(n.Type)
	if !ok || !e.Clickable {
		return fmt.Errorf("%w: %s is not a clickable decorator", state.ErrNodeNotFound, n.Type)
	}
	return tx.SelectBeside(key, ClickSide(width, x) == After)
}

func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func itoa(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// RenderImage строит <img>, обернутый в <a>, если у изображения задана ссылка.
func RenderImage(node edtypes.SerializedNode) HostView {
	a := node.Attrs
	var style string
	if a.MaxWidth > 0 {
		style = "max-width: " + strconv.Itoa(a.MaxWidth) + "px;"
	}
	img := element("img",
		"src", a.Src,
		"alt", a.AltText,
		"width", itoa(a.Width),
		"height", itoa(a.Height),
		"style", style,
	)
	if a.Href == "" {
		return img
	}
	link := element("a", "href", a.Href, "target", "_blank", "rel", "noopener noreferrer")
	link.AppendChild(img)
	return link
}

// RenderYouTube строит <iframe> встроенного плеера.
func RenderYouTube(node edtypes.SerializedNode) HostView {
	a := node.Attrs
	return element("iframe",
		"src", a.Src,
		"width", "560",
		"height", "315",
		"frameborder", "0",
		"allowfullscreen", "true",
		"data-video-id", a.VideoID,
	)
}
