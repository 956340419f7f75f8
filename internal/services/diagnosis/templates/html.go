// Package templates renders the diagnosis pages and htmx fragments.
//
// Components are plain templ.Component values so handlers can render whole
// pages or swap the wizard panel alone.
package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// markup writes HTML and keeps the first write error.
type markup struct {
	w   io.Writer
	err error
}

func newMarkup(w io.Writer) *markup {
	return &markup{w: w}
}

func (m *markup) raw(s string) {
	if m.err != nil {
		return
	}
	_, m.err = io.WriteString(m.w, s)
}

func (m *markup) text(s string) {
	m.raw(templ.EscapeString(s))
}

func (m *markup) attr(name string, value string) {
	m.raw(" " + name + `="`)
	m.text(value)
	m.raw(`"`)
}

func (m *markup) intAttr(name string, value int) {
	m.attr(name, strconv.Itoa(value))
}

func (m *markup) boolAttr(name string, on bool) {
	if on {
		m.raw(" " + name)
	}
}

func (m *markup) render(ctx context.Context, c templ.Component) {
	if m.err != nil || c == nil {
		return
	}
	m.err = c.Render(ctx, m.w)
}
