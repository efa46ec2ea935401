package edtypes

import (
	"encoding/hex"
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	MinFontSize     = 5
	MaxFontSize     = 50
	DefaultFontSize = 15
	FontSizeStep    = 1
)

var (
	rgbReg      = regexp.MustCompile(`^rgba?\(([^)]*)\)$`)
	fontSizeReg = regexp.MustCompile(`^(\d+(?:\.\d+)?)px$`)

	ErrUnsupportedColor = errors.New("unsupported color format")
)

// ParseStyle разбирает inline-стиль вида "font-size: 15px; color: red" в map.
// Пустые и некорректные объявления пропускаются.
func ParseStyle(style string) map[string]string {
	result := make(map[string]string)
	if style == "" {
		return result
	}

	for _, part := range strings.Split(style, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		if key != "" && value != "" {
			result[key] = value
		}
	}

	return result
}

// FormatStyle собирает стиль обратно в строку. Ключи сортируются, чтобы результат был стабильным.
func FormatStyle(style map[string]string) string {
	keys := make([]string, 0, len(style))
	for k, v := range style {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s: %s;", k, style[k])
	}
	return sb.String()
}

// PatchStyle применяет patch к стилю. Пустое значение в patch удаляет свойство.
func PatchStyle(style string, patch map[string]string) string {
	parsed := ParseStyle(style)
	for k, v := range patch {
		k = strings.ToLower(strings.TrimSpace(k))
		if v == "" {
			delete(parsed, k)
			continue
		}
		parsed[k] = v
	}
	return FormatStyle(parsed)
}

// FontSize возвращает размер шрифта из стиля в пикселях либо DefaultFontSize.
func FontSize(style string) int {
	raw, ok := ParseStyle(style)["font-size"]
	if !ok {
		return DefaultFontSize
	}
	m := fontSizeReg.FindStringSubmatch(raw)
	if m == nil {
		return DefaultFontSize
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultFontSize
	}
	return int(f + 0.5)
}

// ClampFontSize ограничивает размер диапазоном MinFontSize..MaxFontSize.
func ClampFontSize(size int) int {
	return min(max(size, MinFontSize), MaxFontSize)
}

// WithFontSize возвращает стиль с замененным font-size.
func WithFontSize(style string, size int) string {
	return PatchStyle(style, map[string]string{"font-size": strconv.Itoa(ClampFontSize(size)) + "px"})
}

type Color color.RGBA

// ParseColor разбирает цвет в форматах rgb(r, g, b), rgba(r, g, b, a) и #rrggbb[aa].
func ParseColor(raw string) (Color, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(strings.ToLower(raw), `"`)

	switch {
	case rgbReg.MatchString(raw):
		c := Color{A: 255}
		parts := strings.Split(rgbReg.FindStringSubmatch(raw)[1], ",")
		if len(parts) < 3 || len(parts) > 4 {
			return Color{}, ErrUnsupportedColor
		}
		for i, n := range parts {
			n = strings.TrimSpace(n)
			if i == 3 {
				// Альфа в rgba задается долей единицы
				f, err := strconv.ParseFloat(n, 64)
				if err != nil {
					return Color{}, err
				}
				c.A = uint8(min(max(f, 0), 1)*255 + 0.5)
				continue
			}
			nn, err := strconv.ParseUint(n, 10, 8)
			if err != nil {
				return Color{}, err
			}
			switch i {
			case 0:
				c.R = uint8(nn)
			case 1:
				c.G = uint8(nn)
			case 2:
				c.B = uint8(nn)
			}
		}
		return c, nil
	case strings.HasPrefix(raw, "#"):
		b, err := hex.DecodeString(raw[1:])
		if err != nil {
			return Color{}, err
		}
		if len(b) < 3 {
			return Color{}, ErrUnsupportedColor
		}
		c := Color{R: b[0], G: b[1], B: b[2], A: 255}
		if len(b) > 3 {
			c.A = b[3]
		}
		return c, nil
	}
	return Color{}, ErrUnsupportedColor
}

// String возвращает цвет в виде #rrggbb, непрозрачность добавляется только если она неполная.
func (c Color) String() string {
	if c.A == 255 {
		return "#" + hex.EncodeToString([]byte{c.R, c.G, c.B})
	}
	return "#" + hex.EncodeToString([]byte{c.R, c.G, c.B, c.A})
}

// NormalizeColor приводит цвет к виду #rrggbb. Нераспознанное значение возвращается пустым.
func NormalizeColor(raw string) string {
	c, err := ParseColor(raw)
	if err != nil {
		return ""
	}
	return c.String()
}
