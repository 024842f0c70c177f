package browser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// IndexAttr — атрибут с номером интерактивного элемента.
const IndexAttr = "data-replay-index"

// maxTextLen — сколько символов текста элемента попадает в снимок.
const maxTextLen = 80

// markInteractiveJS нумерует видимые интерактивные элементы и возвращает их число.
const markInteractiveJS = `() => {
  const attr = '` + IndexAttr + `';
  const selector = [
    'a[href]', 'button', 'input', 'select', 'textarea', 'summary',
    '[role=button]', '[role=link]', '[role=checkbox]', '[role=radio]',
    '[role=menuitem]', '[role=option]', '[role=tab]', '[role=combobox]',
    '[onclick]', '[contenteditable=true]'
  ].join(',');
  document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));
  let i = 0;
  for (const el of document.querySelectorAll(selector)) {
    if (el.type === 'hidden' || el.disabled) continue;
    const rect = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    if (rect.width === 0 || rect.height === 0) continue;
    if (style.visibility === 'hidden' || style.display === 'none') continue;
    el.setAttribute(attr, String(i++));
  }
  return i;
}`

// shownAttrs — атрибуты, которые помогают модели понять назначение элемента.
var shownAttrs = []string{"type", "name", "role", "aria-label", "placeholder", "title", "href", "alt", "value"}

// BuildAxtree строит по HTML пронумерованный список интерактивных элементов:
//
//	[0] <a href="/login"> Log in
//	[1] <input type="email" name="email" placeholder="Email">
//	[2] <select name="country"> options: Germany | France
func BuildAxtree(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	type line struct {
		index int
		text  string
	}
	var lines []line

	doc.Find("[" + IndexAttr + "]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr(IndexAttr)
		index, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		lines = append(lines, line{index: index, text: describe(s)})
	})

	sort.Slice(lines, func(i, j int) bool { return lines[i].index < lines[j].index })

	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "[%d] %s\n", l.index, l.text)
	}
	return b.String(), nil
}

func describe(s *goquery.Selection) string {
	tag := goquery.NodeName(s)

	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	for _, name := range shownAttrs {
		if v, ok := s.Attr(name); ok && v != "" {
			if name == "value" && tag == "input" && isSecret(s) {
				continue
			}
			fmt.Fprintf(&b, " %s=%q", name, truncate(v))
		}
	}
	b.WriteString(">")

	if tag == "select" {
		var opts []string
		s.Find("option").Each(func(_ int, o *goquery.Selection) {
			if t := collapse(o.Text()); t != "" {
				opts = append(opts, t)
			}
		})
		if len(opts) > 0 {
			b.WriteString(" options: ")
			b.WriteString(truncate(strings.Join(opts, " | ")))
		}
		return b.String()
	}

	if text := collapse(s.Text()); text != "" {
		b.WriteString(" ")
		b.WriteString(truncate(text))
	}
	return b.String()
}

func isSecret(s *goquery.Selection) bool {
	t, _ := s.Attr("type")
	return strings.EqualFold(t, "password")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextLen {
		return s
	}
	return string(r[:maxTextLen]) + "…"
}

// indexSelector возвращает селектор элемента по номеру.
func indexSelector(index int) string {
	return fmt.Sprintf("[%s=\"%d\"]", IndexAttr, index)
}
