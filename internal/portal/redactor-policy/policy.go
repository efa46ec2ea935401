// Определяет политики безопасности для HTML редактора документов: что допускается во вставляемом из буфера обмена HTML и в HTML, который строится из документа для отображения.
//
// Основные возможности:
//   - Разрешение/запрет определенных атрибутов для конкретных элементов.
//   - Ограничение допустимых значений атрибутов и стилей с помощью регулярных выражений.
//   - Встраивание видео YouTube только с доменов youtube.com и youtube-nocookie.com.
//   - Предобработка HTML из внешних редакторов (Google Docs, Word) перед разбором в узлы документа.
package policy

import (
	"container/list"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/microcosm-cc/bluemonday"
)

var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()
var UgcPolicy *bluemonday.Policy = bluemonday.UGCPolicy()

var (
	colorRegexp   = regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*(,\s*[\d.]+\s*)?\)|inherit)$`)
	sizeRegexp    = regexp.MustCompile(`^(\d+(\.\d+)?(px|em|rem|pt|%)?|auto|inherit|initial)$`)
	YouTubeRegexp = regexp.MustCompile(`^https://(www\.)?(youtube\.com|youtube-nocookie\.com)/embed/[A-Za-z0-9_-]+`)
)

func init() {
	alignRegexp := regexp.MustCompile(`^(left|right|center|justify|start|end)$`)
	directionRegexp := regexp.MustCompile(`^(ltr|rtl)$`)
	numberRegexp := regexp.MustCompile(`^\d+$`)

	UgcPolicy.AllowAttrs("style").OnElements("span", "p", "td", "th", "img", "h1", "h2", "h3", "h4", "h5", "h6", "li")
	UgcPolicy.AllowAttrs("dir").Matching(directionRegexp).Globally()

	UgcPolicy.AllowAttrs("data-checked").Matching(regexp.MustCompile("^(true|false)$")).OnElements("li")
	UgcPolicy.AllowAttrs("data-type").Matching(regexp.MustCompile("^check$")).OnElements("ul")
	UgcPolicy.AllowAttrs("start").Matching(numberRegexp).OnElements("ol")
	UgcPolicy.AllowAttrs("value").Matching(numberRegexp).OnElements("li")

	UgcPolicy.AllowAttrs("colspan", "rowspan").Matching(numberRegexp).OnElements("td", "th")
	UgcPolicy.AllowAttrs("width", "height").Matching(numberRegexp).OnElements("img", "iframe", "td", "th")

	UgcPolicy.AllowAttrs("src").Matching(YouTubeRegexp).OnElements("iframe")
	UgcPolicy.AllowAttrs("allowfullscreen", "frameborder").OnElements("iframe")
	UgcPolicy.AllowAttrs("target").Matching(regexp.MustCompile(`^(_blank|_self)$`)).OnElements("a")
	UgcPolicy.AllowAttrs("rel", "title").OnElements("a")
	UgcPolicy.AllowAttrs("data-video-id").Matching(regexp.MustCompile(`^[A-Za-z0-9_-]+$`)).OnElements("iframe")

	UgcPolicy.AllowStyles("color", "background-color").Matching(colorRegexp).Globally()
	UgcPolicy.AllowStyles("width", "height", "max-width", "font-size").Matching(sizeRegexp).Globally()
	UgcPolicy.AllowStyles("text-align").Matching(alignRegexp).Globally()
	UgcPolicy.AllowStyles("padding-inline-start").Matching(sizeRegexp).Globally()
	UgcPolicy.AllowStyles("font-weight").Matching(regexp.MustCompile(`^(normal|bold|[1-9]00)$`)).OnElements("span", "b")
	UgcPolicy.AllowStyles("font-style").Matching(regexp.MustCompile(`^(normal|italic)$`)).OnElements("span")
	UgcPolicy.AllowStyles("text-decoration").Matching(regexp.MustCompile(`^(none|underline|line-through)( (underline|line-through))?$`)).OnElements("span")
	UgcPolicy.AllowStyles("vertical-align").Matching(regexp.MustCompile(`^(baseline|sub|super)$`)).OnElements("span")

	UgcPolicy.AllowElements("iframe")
	UgcPolicy.RequireNoFollowOnLinks(false)
}

// ProcessPastedHTML приводит HTML из внешних редакторов к виду, который понимает разбор в узлы документа:
// снимает обертку Google Docs и заменяет span с жирным, курсивным, подчеркнутым и зачеркнутым
// начертанием на соответствующие теги.
func ProcessPastedHTML(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	queue := list.New()
	queue.PushBack(doc)

	for queue.Len() > 0 {
		element := queue.Front()
		queue.Remove(element)
		node := element.Value.(*html.Node)

		var next *html.Node

		for child := node.FirstChild; child != nil; child = next {
			next = child.NextSibling
			if child.Type != html.ElementNode {
				continue
			}
			switch {
			case isGoogleDocsWrapper(child):
				next = unwrapNode(child)
				continue
			case child.Data == "span":
				child = processStyledSpan(child)
			}
			if child.FirstChild != nil {
				queue.PushBack(child)
			}
		}
	}

	var result strings.Builder
	html.Render(&result, doc)

	return result.String()
}

// Google Docs оборачивает весь фрагмент в <b style="font-weight:normal" id="docs-internal-guid-...">
func isGoogleDocsWrapper(node *html.Node) bool {
	if node.Data != "b" {
		return false
	}
	for _, attr := range node.Attr {
		if attr.Key == "id" && strings.HasPrefix(attr.Val, "docs-internal-guid") {
			return true
		}
	}
	return false
}

// unwrapNode заменяет узел его детьми и возвращает первого из них для продолжения обхода.
func unwrapNode(node *html.Node) *html.Node {
	first := node.FirstChild
	next := node.NextSibling
	for c := node.FirstChild; c != nil; {
		n := c.NextSibling
		node.RemoveChild(c)
		node.Parent.InsertBefore(c, node)
		c = n
	}
	node.Parent.RemoveChild(node)
	if first == nil {
		return next
	}
	return first
}

func processStyledSpan(node *html.Node) *html.Node {
	var style string
	for _, attr := range node.Attr {
		if attr.Key == "style" {
			style = strings.ToLower(attr.Val)
		}
	}
	if style == "" {
		return node
	}

	var tags []string
	decl := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decl[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	switch decl["font-weight"] {
	case "bold", "600", "700", "800", "900":
		tags = append(tags, "b")
	}
	if decl["font-style"] == "italic" {
		tags = append(tags, "i")
	}
	if strings.Contains(decl["text-decoration"], "underline") {
		tags = append(tags, "u")
	}
	if strings.Contains(decl["text-decoration"], "line-through") {
		tags = append(tags, "s")
	}
	switch decl["vertical-align"] {
	case "sub":
		tags = append(tags, "sub")
	case "super":
		tags = append(tags, "sup")
	}

	// Содержимое span переносится во вложенные теги, сам span с остальными стилями остается снаружи
	inner := node
	for _, tag := range tags {
		wrapper := &html.Node{Type: html.ElementNode, Data: tag}
		for c := inner.FirstChild; c != nil; {
			n := c.NextSibling
			inner.RemoveChild(c)
			wrapper.AppendChild(c)
			c = n
		}
		inner.AppendChild(wrapper)
		inner = wrapper
	}
	return node
}
