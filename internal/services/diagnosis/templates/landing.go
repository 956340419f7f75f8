package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

// LandingView holds the landing page inputs.
type LandingView struct {
	Prompt        string
	Options       []catalog.Option
	QuestionCount int
}

// NewLandingView reads the landing copy from the catalog.
func NewLandingView() LandingView {
	return LandingView{
		Prompt:        catalog.QuestionAt(1).Prompt,
		Options:       catalog.FirstQuestionOptions(),
		QuestionCount: catalog.Count(),
	}
}

// Landing renders the landing page with the first question's options.
func Landing(view LandingView) templ.Component {
	return Page("", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := newMarkup(w)
		m.raw(`<section class="hero"><div class="chat">`)
		advisorBubble(m, `こんにちは！👋<br>キャリアアドバイザーです。`)
		advisorBubble(m, `簡単な質問に答えるだけで、あなたに最適な<strong>キャリアプラン</strong>を診断します。`)
		advisorBubble(m, `所要時間：<strong>約2分</strong><br><strong>完全無料</strong>・登録不要<br>全<strong>`+
			strconv.Itoa(view.QuestionCount)+`問</strong>の質問に回答`)
		m.raw(`</div><h1>`)
		m.text(view.Prompt)
		m.raw(`</h1><form class="options" method="post"`)
		m.attr("action", routepath.Start)
		m.raw(`>`)
		for _, opt := range view.Options {
			m.raw(`<button type="submit" class="option" name="option_id"`)
			m.attr("value", opt.ID)
			m.raw(`>`)
			m.text(opt.Label)
			m.raw(`</button>`)
		}
		m.raw(`</form></section>`)
		return m.err
	}))
}
