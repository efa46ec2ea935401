// Пакет autolink превращает набранные адреса сайтов и почты в автоссылки.
// Трансформация выполняется перед коммитом каждой транзакции и смотрит только на измененные узлы.
package autolink

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
	"golang.org/x/net/publicsuffix"
)

var (
	linkReg = regexp.MustCompile(`(?i)` +
		// почта
		`([a-z0-9._%+-]+@[a-z0-9](?:[a-z0-9-]*[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)+)` +
		// адрес со схемой
		`|(https?://[^\s<>"']+)` +
		// домен без схемы
		`|((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,63}(?::\d{1,5})?(?:[/?#][^\s<>"']*)?)`)

	trailingPunct = ".,;:!?'\""
)

// Match - найденный адрес. Start и End - смещения в рунах.
type Match struct {
	Start int
	End   int
	Text  string
	URL   string
}

// Find ищет в тексте адреса. Домены без схемы принимаются только с публичным суффиксом из списка ICANN.
func Find(text string) []Match {
	var res []Match
	for _, loc := range linkReg.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		// Адрес должен начинаться с границы слова
		if start > 0 {
			if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) || r == '@' || r == '.' || r == '/' {
				continue
			}
		}
		raw := trimPunct(text[start:end])
		if raw == "" {
			continue
		}

		var url string
		switch {
		case loc[2] >= 0:
			if !validHost(raw[strings.LastIndexByte(raw, '@')+1:]) {
				continue
			}
			url = "mailto:" + raw
		case loc[4] >= 0:
			if len(raw) <= len("https://") || strings.HasSuffix(raw, "://") {
				continue
			}
			url = raw
		default:
			if !validHost(hostOf(raw)) {
				continue
			}
			url = "https://" + raw
		}

		runeStart := utf8.RuneCountInString(text[:start])
		res = append(res, Match{
			Start: runeStart,
			End:   runeStart + utf8.RuneCountInString(raw),
			Text:  raw,
			URL:   url,
		})
	}
	return res
}

// Register подключает трансформацию к хранилищу.
func Register(s *state.Store) {
	s.RegisterTransform(Apply)
}

// Apply снимает автоссылки, текст которых перестал быть адресом, и оборачивает новые адреса
// в измененных текстовых узлах. Явные ссылки и текст с форматом code не трогаются.
func Apply(tx *state.Tx) error {
	dirty := tx.Dirty()

	checked := make(map[edtypes.NodeKey]struct{})
	for _, key := range dirty {
		n := tx.Node(key)
		if n == nil {
			continue
		}
		link := edtypes.NodeKey(0)
		switch {
		case n.Type == edtypes.AutoLinkNode:
			link = key
		case n.Parent != 0:
			if p := tx.Node(n.Parent); p != nil && p.Type == edtypes.AutoLinkNode {
				link = n.Parent
			}
		}
		if link == 0 || tx.IndexOf(link) < 0 {
			continue
		}
		if _, ok := checked[link]; ok {
			continue
		}
		checked[link] = struct{}{}

		if url, ok := linkURL(tx, link); ok {
			if tx.Node(link).URL != url {
				tx.Writable(link).URL = url
			}
			continue
		}
		if err := tx.Unwrap(link); err != nil {
			return err
		}
	}

	for _, key := range dirty {
		n := tx.Node(key)
		if n == nil || !n.IsText() || n.Format.Has(edtypes.FormatCode) || tx.IndexOf(key) < 0 {
			continue
		}
		if p := tx.Node(n.Parent); p == nil || p.IsLink() {
			continue
		}
		if err := wrapMatches(tx, key); err != nil {
			return err
		}
	}
	return nil
}

// linkURL проверяет, что текст автоссылки целиком является одним адресом.
func linkURL(tx *state.Tx, link edtypes.NodeKey) (string, bool) {
	var sb strings.Builder
	for _, c := range tx.Children(link) {
		n := tx.Node(c)
		if n == nil || !n.IsText() {
			return "", false
		}
		sb.WriteString(n.Text)
	}
	text := sb.String()
	matches := Find(text)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != utf8.RuneCountInString(text) {
		return "", false
	}
	return matches[0].URL, true
}

func wrapMatches(tx *state.Tx, key edtypes.NodeKey) error {
	matches := Find(tx.Node(key).Text)
	// С конца, чтобы смещения предыдущих совпадений оставались верными
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if _, err := tx.SplitText(key, m.End); err != nil {
			return err
		}
		mid := key
		if m.Start > 0 {
			right, err := tx.SplitText(key, m.Start)
			if err != nil {
				return err
			}
			mid = right
		}

		link := tx.CreateNode(edtypes.AutoLinkNode, edtypes.Attrs{URL: m.URL})
		if err := tx.InsertBefore(mid, link.Key); err != nil {
			return err
		}
		if err := tx.Detach(mid); err != nil {
			return err
		}
		if err := tx.Append(link.Key, mid); err != nil {
			return err
		}
	}
	return nil
}

func validHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	suffix, icann := publicsuffix.PublicSuffix(host)
	return icann && host != suffix && strings.HasSuffix(host, "."+suffix)
}

func hostOf(raw string) string {
	host := raw
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// trimPunct убирает знаки препинания в конце адреса. Закрывающая скобка остается, если она парная.
func trimPunct(s string) string {
	for s != "" {
		last := s[len(s)-1]
		switch {
		case strings.IndexByte(trailingPunct, last) >= 0:
			s = s[:len(s)-1]
		case last == ')' && strings.Count(s, "(") < strings.Count(s, ")"):
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

func isWordRune(r rune) bool {
	return r == '_' || r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
