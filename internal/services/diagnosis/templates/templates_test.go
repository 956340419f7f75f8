package templates

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/result"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
	"golang.org/x/net/html"
)

func renderDoc(t *testing.T, c templ.Component) *html.Node {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := range n.Descendants() {
		if c.Type == html.ElementNode && match(c) {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func tagWith(tag string, key string, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Data != tag {
			return false
		}
		got, ok := attr(n, key)
		return ok && got == value
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := range n.Descendants() {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func TestLandingListsFirstQuestionOptions(t *testing.T) {
	t.Parallel()

	doc := renderDoc(t, Landing(NewLandingView()))
	forms := findAll(doc, tagWith("form", "action", "/start"))
	if len(forms) != 1 {
		t.Fatalf("start forms = %d, want 1", len(forms))
	}
	buttons := findAll(forms[0], tagWith("button", "name", "option_id"))
	opts := catalog.FirstQuestionOptions()
	if len(buttons) != len(opts) {
		t.Fatalf("buttons = %d, want %d", len(buttons), len(opts))
	}
	for i, b := range buttons {
		if v, _ := attr(b, "value"); v != opts[i].ID {
			t.Fatalf("button %d value = %q, want %q", i, v, opts[i].ID)
		}
		if textOf(b) != opts[i].Label {
			t.Fatalf("button %d label = %q, want %q", i, textOf(b), opts[i].Label)
		}
	}
	if !strings.Contains(textOf(doc), catalog.QuestionAt(1).Prompt) {
		t.Fatal("landing is missing the first prompt")
	}
}

func TestWizardPanelAskingChoiceQuestion(t *testing.T) {
	t.Parallel()

	w := wizard.New(wizard.WithPacing(0))
	w.ApplyHandoff(catalog.Q1CareerUp)
	view := NewWizardView(w, false, 180*time.Millisecond)
	doc := renderDoc(t, WizardPanel(view))

	if len(findAll(doc, tagWith("section", "id", PanelID))) != 1 {
		t.Fatal("panel root missing")
	}
	if got := textOf(doc); !strings.Contains(got, "質問 2 / 6") || !strings.Contains(got, "33%") {
		t.Fatalf("progress text missing in %q", got)
	}
	answers := findAll(doc, tagWith("form", "action", "/diagnosis/answer"))
	if len(answers) != 1 {
		t.Fatalf("answer forms = %d, want 1", len(answers))
	}
	if swap, _ := attr(answers[0], "hx-swap"); swap != "outerHTML swap:180ms" {
		t.Fatalf("hx-swap = %q", swap)
	}
	steps := findAll(answers[0], tagWith("input", "name", "step"))
	if len(steps) != 1 {
		t.Fatal("step input missing")
	}
	if v, _ := attr(steps[0], "value"); v != "2" {
		t.Fatalf("step = %q, want 2", v)
	}
	if n := len(findAll(answers[0], tagWith("button", "name", "option_id"))); n != len(catalog.QuestionAt(2).Options) {
		t.Fatalf("option buttons = %d", n)
	}
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/back"))) != 1 {
		t.Fatal("back form missing at step 2")
	}
	transcript := findAll(doc, tagWith("div", "class", "bubble answer"))
	if len(transcript) != 1 || textOf(transcript[0]) != "キャリアアップを目指したい" {
		t.Fatalf("transcript = %d bubbles", len(transcript))
	}
}

func TestWizardPanelStepOneHasNoBack(t *testing.T) {
	t.Parallel()

	doc := renderDoc(t, WizardPanel(NewWizardView(wizard.New(), false, 0)))
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/back"))) != 0 {
		t.Fatal("back form rendered at step 1")
	}
	answers := findAll(doc, tagWith("form", "action", "/diagnosis/answer"))
	if swap, _ := attr(answers[0], "hx-swap"); swap != "outerHTML" {
		t.Fatalf("hx-swap without pacing = %q", swap)
	}
}

func TestWizardPanelPreselectsRecordedAnswer(t *testing.T) {
	t.Parallel()

	w := wizard.New(wizard.WithPacing(0))
	if err := w.Answer(1, catalog.Q1BetterEnv); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	w.Back()
	doc := renderDoc(t, WizardPanel(NewWizardView(w, false, 0)))
	pressed := findAll(doc, tagWith("button", "aria-pressed", "true"))
	if len(pressed) != 1 {
		t.Fatalf("pressed buttons = %d, want 1", len(pressed))
	}
	if v, _ := attr(pressed[0], "value"); v != catalog.Q1BetterEnv {
		t.Fatalf("pressed = %q", v)
	}
}

func regionWizard(t *testing.T) *wizard.Wizard {
	t.Helper()
	w := wizard.New(wizard.WithPacing(0))
	for step := 1; step <= 4; step++ {
		if err := w.Answer(step, catalog.QuestionAt(step).Options[0].ID); err != nil {
			t.Fatalf("Answer(%d) error = %v", step, err)
		}
	}
	return w
}

func TestWizardPanelRegionPicker(t *testing.T) {
	t.Parallel()

	w := regionWizard(t)
	if err := w.AnswerRegion(5, "大阪府"); err != nil {
		t.Fatalf("AnswerRegion() error = %v", err)
	}
	w.Back()

	doc := renderDoc(t, WizardPanel(NewWizardView(w, false, 0)))
	selects := findAll(doc, tagWith("select", "name", "region"))
	if len(selects) != 1 {
		t.Fatalf("region selects = %d, want 1", len(selects))
	}
	options := findAll(selects[0], func(n *html.Node) bool { return n.Data == "option" })
	if len(options) != len(catalog.Regions())+1 {
		t.Fatalf("region options = %d", len(options))
	}
	selected := findAll(selects[0], func(n *html.Node) bool {
		_, ok := attr(n, "selected")
		return n.Data == "option" && ok
	})
	if len(selected) != 1 || textOf(selected[0]) != "大阪府" {
		t.Fatalf("selected region = %v", selected)
	}
	noPref := findAll(doc, tagWith("button", "value", catalog.Q5NoPreference))
	if len(noPref) != 1 {
		t.Fatal("no-preference button missing")
	}
	if p, _ := attr(noPref[0], "aria-pressed"); p != "false" {
		t.Fatalf("no-preference pressed = %q", p)
	}
}

func TestWizardPanelRegionPickerNoPreferenceSelectsNothing(t *testing.T) {
	t.Parallel()

	w := regionWizard(t)
	if err := w.Answer(5, catalog.Q5NoPreference); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	w.Back()

	doc := renderDoc(t, WizardPanel(NewWizardView(w, false, 0)))
	selected := findAll(doc, func(n *html.Node) bool {
		_, ok := attr(n, "selected")
		return n.Data == "option" && ok
	})
	if len(selected) != 0 {
		t.Fatalf("selected regions = %d, want 0", len(selected))
	}
	if len(findAll(doc, tagWith("button", "aria-pressed", "true"))) != 1 {
		t.Fatal("no-preference button should be pressed")
	}
}

func TestWizardPanelResultAndContactErrors(t *testing.T) {
	t.Parallel()

	w := wizard.New(wizard.WithPacing(0))
	for step := 1; step <= catalog.Count(); step++ {
		id := catalog.QuestionAt(step).Options[0].ID
		if step == 2 {
			id = catalog.Q2Compensation
		}
		if err := w.Answer(step, id); err != nil {
			t.Fatalf("Answer(%d) error = %v", step, err)
		}
	}
	view := NewWizardView(w, false, 0)
	view.Form = contact.Form{Name: "<b>山田</b>", Email: "bad"}
	view.Errors = contact.Validate(view.Form)
	view.SubmitError = "送信に失敗しました。もう一度お試しください。"

	var buf bytes.Buffer
	if err := WizardPanel(view).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(buf.String(), "<b>山田</b>") {
		t.Fatal("form value rendered unescaped")
	}
	doc, err := html.Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	res := findAll(doc, tagWith("div", "data-result", string(result.Income)))
	if len(res) != 1 {
		t.Fatal("income result card missing")
	}
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/answer"))) != 0 {
		t.Fatal("answer form rendered on result")
	}
	errorKey := func(key string) func(*html.Node) bool {
		return func(n *html.Node) bool {
			v, ok := attr(n, "data-error-key")
			return ok && v == key
		}
	}
	for _, key := range []string{"age", "email", "phone", SubmitErrorKey} {
		if n := len(findAll(doc, errorKey(key))); n != 1 {
			t.Fatalf("error %q rendered %d times, want 1", key, n)
		}
	}
	if len(findAll(doc, errorKey("name"))) != 0 {
		t.Fatal("name has a value and should carry no error")
	}
	textarea := findAll(doc, tagWith("textarea", "name", "message"))
	if len(textarea) != 1 {
		t.Fatal("message textarea missing")
	}
	if ml, _ := attr(textarea[0], "maxlength"); ml != "500" {
		t.Fatalf("maxlength = %q", ml)
	}
	names := findAll(doc, tagWith("input", "name", "name"))
	if v, _ := attr(names[0], "value"); v != "<b>山田</b>" {
		t.Fatalf("name value = %q", v)
	}
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/restart"))) != 1 {
		t.Fatal("restart form missing")
	}
}

func TestWizardPanelSubmitted(t *testing.T) {
	t.Parallel()

	w := wizard.New(wizard.WithPacing(0))
	for step := 1; step <= catalog.Count(); step++ {
		if err := w.Answer(step, catalog.QuestionAt(step).Options[0].ID); err != nil {
			t.Fatalf("Answer(%d) error = %v", step, err)
		}
	}
	doc := renderDoc(t, WizardPanel(NewWizardView(w, true, 0)))
	if !strings.Contains(textOf(doc), "情報を送信しました！") {
		t.Fatal("confirmation missing")
	}
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/submit"))) != 0 {
		t.Fatal("contact form still rendered after submit")
	}
	if len(findAll(doc, tagWith("form", "action", "/diagnosis/restart"))) != 1 {
		t.Fatal("restart form missing")
	}
}

func TestPageShell(t *testing.T) {
	t.Parallel()

	doc := renderDoc(t, NotFound())
	titles := findAll(doc, func(n *html.Node) bool { return n.Data == "title" })
	if len(titles) != 1 || textOf(titles[0]) != "ページが見つかりません | "+AppName {
		t.Fatalf("title = %v", titles)
	}
	if len(findAll(doc, tagWith("link", "href", "/static/diagnosis.css"))) != 1 {
		t.Fatal("stylesheet link missing")
	}
	if len(findAll(doc, tagWith("html", "lang", "ja"))) != 1 {
		t.Fatal("html lang missing")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRenderReportsWriteErrors(t *testing.T) {
	t.Parallel()

	if err := Landing(NewLandingView()).Render(context.Background(), failingWriter{}); err == nil {
		t.Fatal("Render() error = nil, want write error")
	}
}
