package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/contact"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/result"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/wizard"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/routepath"
)

// PanelID is the element id htmx swaps on every wizard response.
const PanelID = "wizard"

// SubmitErrorKey is the error slot for submission failures.
const SubmitErrorKey = "submit"

// WizardView is everything the wizard panel renders.
type WizardView struct {
	Asking     bool
	Step       int
	Total      int
	Percent    int
	Question   catalog.Question
	Selected   string
	Transcript []wizard.Message
	CanGoBack  bool

	Result      result.Category
	Form        contact.Form
	Errors      contact.Errors
	SubmitError string
	Submitted   bool

	// Pacing delays the htmx swap after an answer.
	Pacing time.Duration
}

// NewWizardView projects w into a view.
func NewWizardView(w *wizard.Wizard, submitted bool, pacing time.Duration) WizardView {
	view := WizardView{
		Asking:     w.Phase() == wizard.PhaseAsking,
		Transcript: w.Transcript(w.Step()),
		Submitted:  submitted,
		Pacing:     pacing,
	}
	view.Step, view.Total, view.Percent = w.Progress()
	if q, ok := w.Current(); ok {
		view.Question = q
		view.CanGoBack = w.Step() > 1
		if a, ok := w.AnswerFor(w.Step()); ok {
			view.Selected = a.OptionID
		}
	} else {
		view.Result = w.Result()
	}
	return view
}

// WizardPage renders the full wizard document.
func WizardPage(view WizardView) templ.Component {
	title := "診断"
	if !view.Asking {
		title = "診断結果"
	}
	return Page(title, WizardPanel(view))
}

// WizardPanel renders the swappable wizard panel.
func WizardPanel(view WizardView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		m := newMarkup(w)
		m.raw(`<section class="wizard"`)
		m.attr("id", PanelID)
		m.raw(` aria-live="polite">`)
		switch {
		case view.Submitted:
			writeSubmitted(m)
		case view.Asking:
			writeProgress(m, view)
			writeTranscript(m, view.Transcript)
			writeQuestion(m, view)
		default:
			writeTranscript(m, view.Transcript)
			writeResult(m, view.Result)
			writeContactForm(m, view)
			writeRestart(m, "最初に戻る")
		}
		m.raw(`</section>`)
		return m.err
	})
}

func writeProgress(m *markup, view WizardView) {
	m.raw(`<div class="progress"><div class="progress-label"><span>`)
	m.text(fmt.Sprintf("質問 %d / %d", view.Step, view.Total))
	m.raw(`</span><span>`)
	m.text(strconv.Itoa(view.Percent) + "%")
	m.raw(`</span></div><div class="progress-track" role="progressbar" aria-valuemin="0" aria-valuemax="100"`)
	m.intAttr("aria-valuenow", view.Percent)
	m.raw(`><div class="progress-bar"`)
	m.attr("style", "width: "+strconv.Itoa(view.Percent)+"%")
	m.raw(`></div></div></div>`)
}

func writeTranscript(m *markup, transcript []wizard.Message) {
	if len(transcript) == 0 {
		return
	}
	m.raw(`<div class="chat transcript">`)
	for _, msg := range transcript {
		m.raw(`<div class="bubble question">`)
		m.text(msg.Question)
		m.raw(`</div>`)
		userBubble(m, msg.Answer)
	}
	m.raw(`</div>`)
}

func writeQuestion(m *markup, view WizardView) {
	q := view.Question
	m.raw(`<div class="chat"><div class="bubble question current-question">`)
	m.text(q.Prompt)
	m.raw(`</div></div>`)

	switch q.InputMode {
	case catalog.InputRegionPicker:
		writeRegionPicker(m, view)
	default:
		openForm(m, routepath.DiagnosisAnswer, "options", view.Pacing)
		stepInput(m, q.Number)
		for _, opt := range q.Options {
			optionButton(m, opt, view.Selected == opt.ID)
		}
		m.raw(`</form>`)
	}

	if view.CanGoBack {
		openForm(m, routepath.DiagnosisBack, "back", 0)
		m.raw(`<button type="submit" class="secondary" aria-label="前の質問に戻る">← 前の質問に戻る</button></form>`)
	}
}

func writeRegionPicker(m *markup, view WizardView) {
	q := view.Question
	chosen, _ := strings.CutPrefix(view.Selected, catalog.RegionOptionPrefix)
	if chosen == view.Selected {
		chosen = ""
	}

	openForm(m, routepath.DiagnosisAnswer, "region", view.Pacing)
	stepInput(m, q.Number)
	m.raw(`<select name="region" required aria-label="都道府県"><option value="">都道府県を選択</option>`)
	for _, name := range catalog.Regions() {
		m.raw(`<option`)
		m.attr("value", name)
		m.boolAttr("selected", name == chosen)
		m.raw(`>`)
		m.text(name)
		m.raw(`</option>`)
	}
	m.raw(`</select><button type="submit" class="primary">決定</button></form>`)

	openForm(m, routepath.DiagnosisAnswer, "options", view.Pacing)
	stepInput(m, q.Number)
	for _, opt := range q.Options {
		optionButton(m, opt, view.Selected == opt.ID)
	}
	m.raw(`</form>`)
}

func writeResult(m *markup, category result.Category) {
	m.raw(`<div class="chat">`)
	advisorBubble(m, `回答ありがとうございます！<br>診断結果が出ました 🎉`)
	m.raw(`</div><div class="result"`)
	m.attr("data-result", string(category.Key))
	m.raw(`><p class="result-caption">あなたの診断結果</p><p class="emoji">`)
	m.text(category.Emoji)
	m.raw(`</p><h2>「`)
	m.text(category.Title)
	m.raw(`」</h2><p>`)
	m.text(category.Description)
	m.raw(`</p></div>`)
}

type contactField struct {
	field       contact.Field
	label       string
	inputType   string
	placeholder string
	value       func(contact.Form) string
}

var contactFields = []contactField{
	{field: contact.FieldName, label: "お名前", inputType: "text", placeholder: "山田 太郎", value: func(f contact.Form) string { return f.Name }},
	{field: contact.FieldAge, label: "年齢", inputType: "text", placeholder: "28", value: func(f contact.Form) string { return f.Age }},
	{field: contact.FieldEmail, label: "メールアドレス", inputType: "email", placeholder: "example@email.com", value: func(f contact.Form) string { return f.Email }},
	{field: contact.FieldPhone, label: "電話番号", inputType: "tel", placeholder: "090-1234-5678", value: func(f contact.Form) string { return f.Phone }},
}

func writeContactForm(m *markup, view WizardView) {
	m.raw(`<div class="chat">`)
	advisorBubble(m, `あなたに合った求人情報をお届けします。<br>以下の情報を入力してください。`)
	m.raw(`</div>`)

	openForm(m, routepath.DiagnosisSubmit, "contact", 0)
	for _, f := range contactFields {
		m.raw(`<label>`)
		m.text(f.label)
		m.raw(`<input`)
		m.attr("type", f.inputType)
		m.attr("name", string(f.field))
		m.attr("placeholder", f.placeholder)
		m.attr("value", f.value(view.Form))
		if view.Errors.Has(f.field) {
			m.attr("aria-invalid", "true")
		}
		m.raw(`>`)
		writeFieldError(m, string(f.field), view.Errors[f.field])
		m.raw(`</label>`)
	}
	m.raw(`<label>ご相談内容（任意）<textarea name="message" rows="4"`)
	m.intAttr("maxlength", contact.MessageMaxLength)
	m.raw(` placeholder="ご相談内容があればご記入ください">`)
	m.text(view.Form.Message)
	m.raw(`</textarea>`)
	writeFieldError(m, string(contact.FieldMessage), view.Errors[contact.FieldMessage])
	m.raw(`</label>`)
	if view.SubmitError != "" {
		m.raw(`<p class="form-error" role="alert"`)
		m.attr("id", "error-"+SubmitErrorKey)
		m.attr("data-error-key", SubmitErrorKey)
		m.raw(`>`)
		m.text(view.SubmitError)
		m.raw(`</p>`)
	}
	m.raw(`<button type="submit" class="primary"><span class="idle">送信する</span><span class="busy">送信中...</span></button>`)
	m.raw(`<p class="note">送信いただいた情報は求人紹介のためにのみ使用し、第三者に提供することはありません。</p></form>`)
}

func writeFieldError(m *markup, key string, message string) {
	if message == "" {
		return
	}
	m.raw(`<span class="field-error"`)
	m.attr("id", "error-"+key)
	m.attr("data-error-key", key)
	m.raw(`>`)
	m.text(message)
	m.raw(`</span>`)
}

func writeSubmitted(m *markup) {
	m.raw(`<div class="chat submitted">`)
	userBubble(m, "情報を送信しました！")
	advisorBubble(m, `ありがとうございます！🎉<br><br>ご登録いただいたメールアドレス宛に詳しい求人情報をお送りいたします。<br><br>担当者より<strong>2営業日以内</strong>にご連絡させていただきます。お楽しみに！`)
	m.raw(`</div>`)
	writeRestart(m, "最初に戻る")
}

func writeRestart(m *markup, label string) {
	m.raw(`<form method="post" class="restart"`)
	m.attr("action", routepath.DiagnosisRestart)
	m.raw(`><button type="submit" class="secondary">`)
	m.text(label)
	m.raw(`</button></form>`)
}

// openForm starts an htmx form that swaps the wizard panel and falls back
// to a plain POST without JavaScript. The caller closes the form.
func openForm(m *markup, action string, class string, pacing time.Duration) {
	swap := "outerHTML"
	if pacing > 0 {
		swap += " swap:" + strconv.FormatInt(pacing.Milliseconds(), 10) + "ms"
	}
	m.raw(`<form method="post"`)
	m.attr("class", class)
	m.attr("action", action)
	m.attr("hx-post", action)
	m.attr("hx-target", "#"+PanelID)
	m.attr("hx-swap", swap)
	m.attr("hx-disabled-elt", "#"+PanelID+" button, #"+PanelID+" select")
	m.raw(`>`)
}

func stepInput(m *markup, step int) {
	m.raw(`<input type="hidden" name="step"`)
	m.intAttr("value", step)
	m.raw(`>`)
}

func optionButton(m *markup, opt catalog.Option, selected bool) {
	m.raw(`<button type="submit" class="option" name="option_id"`)
	m.attr("value", opt.ID)
	m.attr("aria-pressed", strconv.FormatBool(selected))
	m.raw(`>`)
	m.text(opt.Label)
	m.raw(`</button>`)
}
