package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

// AppName is the product name shown in page titles and the header.
const AppName = "キャリア診断"

const htmxScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// Page wraps body in the shared document shell.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := newMarkup(w)
		m.raw(`<!DOCTYPE html><html lang="ja"><head><meta charset="utf-8">`)
		m.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		m.raw(`<title>`)
		m.text(pageTitle(title))
		m.raw(`</title><link rel="stylesheet"`)
		m.attr("href", routepath.Static("diagnosis.css"))
		m.raw(`><script defer`)
		m.attr("src", htmxScriptURL)
		m.raw(`></script></head><body><header class="app-header"><a`)
		m.attr("href", routepath.Root)
		m.raw(`>`)
		m.text(AppName)
		m.raw(`</a></header><main>`)
		m.render(ctx, body)
		m.raw(`</main></body></html>`)
		return m.err
	})
}

func pageTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return AppName
	}
	return title + " | " + AppName
}

// NotFound renders the unknown-path page.
func NotFound() templ.Component {
	return Page("ページが見つかりません", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := newMarkup(w)
		m.raw(`<section class="not-found"><h1>ページが見つかりません</h1>`)
		m.raw(`<p>お探しのページは移動または削除された可能性があります。</p><a class="primary"`)
		m.attr("href", routepath.Root)
		m.raw(`>トップに戻る</a></section>`)
		return m.err
	}))
}

// advisorBubble writes one advisor chat bubble whose content is trusted markup.
func advisorBubble(m *markup, html string) {
	m.raw(`<div class="bubble question">`)
	m.raw(html)
	m.raw(`</div>`)
}

func userBubble(m *markup, text string) {
	m.raw(`<div class="bubble answer">`)
	m.text(text)
	m.raw(`</div>`)
}
