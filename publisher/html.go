package publisher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts generated Markdown into HTML.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderWeChatHTML renders Markdown and rewrites the parts 公众号 handles badly.
func RenderWeChatHTML(source string) (string, error) {
	html, err := RenderHTML(source)
	if err != nil {
		return "", err
	}
	return normalizeForWeChat(html), nil
}

var (
	olPattern      = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	ulPattern      = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	liPattern      = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	headingPattern = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

var headingSizes = map[string]string{
	"1": "24px",
	"2": "22px",
	"3": "20px",
	"4": "18px",
	"5": "16px",
	"6": "15px",
}

// WeChat 会弱化部分列表和标题标签，导致有序列表合并、标题样式丢失。
// 这里把列表展开、把标题转成带字号的段落，让排版更稳定。
func flattenLists(html string) string {
	html = olPattern.ReplaceAllStringFunc(html, func(block string) string {
		items := liPattern.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>", i+1, strings.TrimSpace(item[1]))
		}
		return b.String()
	})
	return ulPattern.ReplaceAllStringFunc(html, func(block string) string {
		items := liPattern.FindAllStringSubmatch(block, -1)
		if len(items) == 0 {
			return block
		}
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "<p>• %s</p>", strings.TrimSpace(item[1]))
		}
		return b.String()
	})
}

func convertHeadings(html string) string {
	return headingPattern.ReplaceAllStringFunc(html, func(block string) string {
		parts := headingPattern.FindStringSubmatch(block)
		if len(parts) != 3 {
			return block
		}
		size := headingSizes[parts[1]]
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:700;margin:1em 0 0.6em;">%s</p>`, size, strings.TrimSpace(parts[2]))
	})
}

func normalizeForWeChat(html string) string {
	return flattenLists(convertHeadings(html))
}

var titlePattern = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// TitleFromMarkdown picks the first level-one heading, falling back to the
// first non-empty line, truncated to limit runes.
func TitleFromMarkdown(source string, limit int) string {
	title := ""
	if m := titlePattern.FindStringSubmatch(source); len(m) == 2 {
		title = strings.TrimSpace(m[1])
	} else {
		for _, line := range strings.Split(source, "\n") {
			if line = strings.TrimSpace(strings.TrimLeft(line, "#")); line != "" {
				title = line
				break
			}
		}
	}
	return truncateRunes(title, limit)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
