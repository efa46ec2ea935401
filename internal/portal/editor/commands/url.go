package commands

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"golang.org/x/net/html"
)

var (
	allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}
	schemeReg      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
	videoIDReg     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

const youTubeEmbedPrefix = "https://www.youtube.com/embed/"

// NormalizeURL проверяет адрес ссылки. Адрес без схемы считается https.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
	}
	if needsScheme(s) {
		s = "https://" + strings.TrimPrefix(s, "//")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !allowedSchemes[u.Scheme] {
		return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Hostname() == "" {
			return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
		}
	default:
		if u.Opaque == "" {
			return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
		}
	}
	return u.String(), nil
}

// needsScheme сообщает, что адрес записан без схемы. "example.com:8080/path" тоже считается адресом без схемы.
func needsScheme(s string) bool {
	m := schemeReg.FindString(s)
	if m == "" {
		return true
	}
	if allowedSchemes[strings.ToLower(strings.TrimSuffix(m, ":"))] {
		return false
	}
	rest := s[len(m):]
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}

// normalizeImageSource допускает абсолютные http(s) адреса и пути от корня сайта (загруженные файлы).
func normalizeImageSource(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", apierrors.ErrImageSourceRequired
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		if _, err := url.Parse(s); err != nil {
			return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
		}
		return s, nil
	}
	u, err := NormalizeURL(s)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(u, "http") {
		return "", apierrors.ErrInvalidURL.WithFormattedMessage(raw)
	}
	return u, nil
}

// NormalizeYouTube приводит ссылку на видео к адресу встроенного плеера
// https://www.youtube.com/embed/<id>. Принимаются адрес плеера, HTML <iframe src="...">,
// ссылки youtu.be, youtube.com/watch?v=, /shorts/ и /live/.
func NormalizeYouTube(input string) (src, videoID string, err error) {
	raw := strings.TrimSpace(input)
	if strings.Contains(strings.ToLower(raw), "<iframe") {
		raw = iframeSource(raw)
	}
	if raw == "" {
		return "", "", apierrors.ErrUnsupportedYouTube.WithFormattedMessage(input)
	}
	if needsScheme(raw) {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, perr := url.Parse(raw)
	if perr != nil {
		return "", "", apierrors.ErrUnsupportedYouTube.WithFormattedMessage(input)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		videoID = segments[0]
	case "youtube.com", "youtube-nocookie.com", "music.youtube.com":
		switch {
		case segments[0] == "watch":
			videoID = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live" || segments[0] == "v"):
			videoID = segments[1]
		}
	}
	if !videoIDReg.MatchString(videoID) {
		return "", "", apierrors.ErrUnsupportedYouTube.WithFormattedMessage(input)
	}
	return youTubeEmbedPrefix + videoID, videoID, nil
}

func iframeSource(fragment string) string {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), nil)
	if err != nil {
		return ""
	}
	var src string
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if src != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "iframe" {
			for _, a := range n.Attr {
				if a.Key == "src" {
					src = strings.TrimSpace(a.Val)
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return src
}
