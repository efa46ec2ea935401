package commands

import (
	"encoding/json"
	"fmt"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
)

// Command - встроенная команда редактора.
type Command int

const (
	FormatText Command = iota + 1
	ToggleLink
	InsertImage
	InsertYouTube
	InsertTable
	Paste
	FontSizeIncrease
	FontSizeDecrease
	SetFontSize
	InsertText
	DeleteSelection
	RemoveNode
	InsertParagraph
	SelectAroundDecorator
)

var commandNames = map[Command]string{
	FormatText:            "format-text",
	ToggleLink:            "toggle-link",
	InsertImage:           "insert-image",
	InsertYouTube:         "insert-youtube",
	InsertTable:           "insert-table",
	Paste:                 "paste",
	FontSizeIncrease:      "font-size-increase",
	FontSizeDecrease:      "font-size-decrease",
	SetFontSize:           "set-font-size",
	InsertText:            "insert-text",
	DeleteSelection:       "delete-selection",
	RemoveNode:            "remove-node",
	InsertParagraph:       "insert-paragraph",
	SelectAroundDecorator: "select-around-decorator",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// Builtins возвращает встроенные команды в порядке объявления.
func Builtins() []Command {
	res := make([]Command, 0, len(commandNames))
	for c := FormatText; c <= SelectAroundDecorator; c++ {
		res = append(res, c)
	}
	return res
}

// ParseCommand возвращает встроенную команду по имени.
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// LinkPayload - параметры ссылки для toggle-link. Пустой URL снимает ссылку.
type LinkPayload struct {
	URL    string `json:"url"`
	Target string `json:"target,omitempty"`
	Rel    string `json:"rel,omitempty"`
	Title  string `json:"title,omitempty"`
}

type ImagePayload struct {
	Src      string `json:"src"`
	AltText  string `json:"altText"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	MaxWidth int    `json:"maxWidth,omitempty"`
	Href     string `json:"href,omitempty"`
}

// ClickPayload - клик по отрисованному узлу-декоратору: ширина узла и координата клика от его левого края.
type ClickPayload struct {
	Key   edtypes.NodeKey `json:"key"`
	Width float64         `json:"width"`
	X     float64         `json:"x"`
}

// PayloadDecoder разбирает JSON параметров команды.
type PayloadDecoder func(raw json.RawMessage) (any, error)

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var builtinDecoders = map[Command]PayloadDecoder{
	FormatText: decodeAs[string],
	ToggleLink: func(raw json.RawMessage) (any, error) {
		// Принимается строка, null или объект LinkPayload
		var s *string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		return decodeAs[LinkPayload](raw)
	},
	InsertImage:           decodeAs[ImagePayload],
	InsertYouTube:         decodeAs[string],
	SetFontSize:           decodeAs[int],
	InsertText:            decodeAs[string],
	RemoveNode:            decodeAs[edtypes.NodeKey],
	SelectAroundDecorator: decodeAs[ClickPayload],
}

// RegisterDecoder задает разбор параметров команды плагина или встроенной команды, которую
// обрабатывает другой пакет (paste, insert-table).
func (d *Dispatcher) RegisterDecoder(name string, dec PayloadDecoder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decoders[name] = dec
}

// DecodePayload разбирает JSON параметров команды name. Команды без параметров получают nil.
func (d *Dispatcher) DecodePayload(name string, raw json.RawMessage) (any, error) {
	d.mu.RLock()
	dec, ok := d.decoders[name]
	d.mu.RUnlock()
	if !ok {
		if cmd, found := ParseCommand(name); found {
			dec, ok = builtinDecoders[cmd]
		}
	}
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	v, err := dec(raw)
	if err != nil {
		return nil, apierrors.ErrInvalidPayload.WithFormattedMessage(err.Error())
	}
	return v, nil
}

func invalidPayload(cmd Command, payload any) error {
	return apierrors.ErrInvalidPayload.WithFormattedMessage(fmt.Sprintf("%s got %T", cmd, payload))
}
