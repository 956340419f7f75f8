// Package wizard implements the diagnosis step/answer state machine.
//
// A Wizard is owned by a single session and is not safe for concurrent use.
// Its State is plain data so the owning view can persist it between requests
// and restore it with Restore.
package wizard

import (
	"errors"
	"time"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"
	"github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/result"
)

var (
	// ErrStaleStep rejects an answer for a step other than the current one.
	ErrStaleStep = errors.New("wizard: answer does not target the current step")
	// ErrSettling rejects an answer that arrives before the previous
	// transition has settled.
	ErrSettling = errors.New("wizard: previous answer is still settling")
	// ErrUnknownOption rejects an option the question does not offer.
	ErrUnknownOption = errors.New("wizard: option is not offered by the question")
)

// Phase is the coarse wizard state.
type Phase int

const (
	PhaseAsking Phase = iota
	PhaseShowingResult
)

// Answer is a recorded choice for one question.
type Answer struct {
	QuestionNumber int    `json:"question_number"`
	OptionID       string `json:"option_id"`
	Label          string `json:"label"`
}

// State is the persisted wizard session.
type State struct {
	Step    int            `json:"step"`
	Answers map[int]Answer `json:"answers"`
	// HandoffApplied guards the landing-page handoff so it seeds at most once.
	HandoffApplied bool `json:"handoff_applied"`
	// SettlingUntil rejects further answers until the pacing delay elapses.
	SettlingUntil time.Time `json:"settling_until,omitzero"`
	// Run counts restarts. Work started against one run is discarded once
	// the run changes.
	Run uint64 `json:"run,omitempty"`
}

// Message is one question/answer pair of the running transcript.
type Message struct {
	Question string
	Answer   string
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithPacing sets the settle delay applied after each answer. Zero disables it.
func WithPacing(d time.Duration) Option {
	return func(w *Wizard) {
		if d > 0 {
			w.pacing = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}

// Wizard drives one diagnosis session.
type Wizard struct {
	state  State
	pacing time.Duration
	now    func() time.Time
}

// New returns a wizard asking question 1.
func New(opts ...Option) *Wizard {
	return Restore(State{}, opts...)
}

// Restore resumes a wizard from persisted state. Out-of-range steps are
// clamped and answers for unknown questions are dropped.
func Restore(state State, opts ...Option) *Wizard {
	w := &Wizard{now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	w.state = sanitize(state)
	return w
}

// State returns a copy of the current state.
func (w *Wizard) State() State {
	out := w.state
	out.Answers = make(map[int]Answer, len(w.state.Answers))
	for k, v := range w.state.Answers {
		out.Answers[k] = v
	}
	return out
}

// Step returns the current step in [1, catalog.Count()+1].
func (w *Wizard) Step() int {
	return w.state.Step
}

// Phase reports whether the wizard is asking or showing the result.
func (w *Wizard) Phase() Phase {
	if w.state.Step > catalog.Count() {
		return PhaseShowingResult
	}
	return PhaseAsking
}

// Current returns the question being asked. It reports false once the result
// is showing.
func (w *Wizard) Current() (catalog.Question, bool) {
	if w.Phase() != PhaseAsking {
		return catalog.Question{}, false
	}
	return catalog.QuestionAt(w.state.Step), true
}

// AnswerFor returns the answer recorded for step.
func (w *Wizard) AnswerFor(step int) (Answer, bool) {
	a, ok := w.state.Answers[step]
	return a, ok
}

// Settling reports whether answers are currently rejected by pacing.
func (w *Wizard) Settling() bool {
	return !w.state.SettlingUntil.IsZero() && w.now().Before(w.state.SettlingUntil)
}

// Answer records optionID for step and advances to step+1. The option label
// comes from the catalog. On error the state is unchanged.
func (w *Wizard) Answer(step int, optionID string) error {
	if step != w.state.Step || w.Phase() != PhaseAsking {
		return ErrStaleStep
	}
	if w.Settling() {
		return ErrSettling
	}
	opt, ok := catalog.Lookup(step, optionID)
	if !ok {
		return ErrUnknownOption
	}
	w.record(step, opt)
	return nil
}

// AnswerRegion answers a region picker question with a region name.
func (w *Wizard) AnswerRegion(step int, region string) error {
	opt, ok := catalog.RegionOption(region)
	if !ok {
		return ErrUnknownOption
	}
	return w.Answer(step, opt.ID)
}

func (w *Wizard) record(step int, opt catalog.Option) {
	if w.state.Answers == nil {
		w.state.Answers = make(map[int]Answer)
	}
	w.state.Answers[step] = Answer{QuestionNumber: step, OptionID: opt.ID, Label: opt.Label}
	w.state.Step = step + 1
	if w.pacing > 0 {
		w.state.SettlingUntil = w.now().Add(w.pacing)
	} else {
		w.state.SettlingUntil = time.Time{}
	}
}

// Back moves to the previous step while asking. The answer for the step
// being left is kept. It reports whether the step changed.
func (w *Wizard) Back() bool {
	if w.Phase() != PhaseAsking || w.state.Step <= 1 {
		return false
	}
	w.state.Step--
	w.state.SettlingUntil = time.Time{}
	return true
}

// Restart discards every answer and returns to question 1.
func (w *Wizard) Restart() {
	w.state = sanitize(State{Run: w.state.Run + 1})
}

// ApplyHandoff seeds question 1 from the landing page. It runs at most once
// per session: the first call marks the handoff consumed whether or not
// firstOptionID is recognized. It reports whether the wizard was seeded.
func (w *Wizard) ApplyHandoff(firstOptionID string) bool {
	if w.state.HandoffApplied {
		return false
	}
	w.state.HandoffApplied = true
	if w.state.Step != 1 {
		return false
	}
	opt, ok := catalog.FirstQuestionOption(firstOptionID)
	if !ok {
		return false
	}
	w.state.Answers = map[int]Answer{1: {QuestionNumber: 1, OptionID: opt.ID, Label: opt.Label}}
	w.state.Step = 2
	return true
}

// Transcript lists the recorded answers for steps before upto, in step
// order, paired with their question prompts.
func (w *Wizard) Transcript(upto int) []Message {
	limit := min(upto, catalog.Count()+1)
	messages := make([]Message, 0, max(limit, 0))
	for step := 1; step < limit; step++ {
		a, ok := w.state.Answers[step]
		if !ok {
			continue
		}
		messages = append(messages, Message{Question: catalog.QuestionAt(step).Prompt, Answer: a.Label})
	}
	return messages
}

// Result derives the category from the answers to questions 1 and 2.
func (w *Wizard) Result() result.Category {
	return result.Derive(w.state.Answers[1].OptionID, w.state.Answers[2].OptionID)
}

// Progress returns the 1-based question number and the completion
// percentage shown while asking.
func (w *Wizard) Progress() (current int, total int, percent int) {
	total = catalog.Count()
	current = min(w.state.Step, total)
	percent = (current*100 + total/2) / total
	return current, total, percent
}

func sanitize(state State) State {
	count := catalog.Count()
	if state.Step < 1 {
		state.Step = 1
	}
	if state.Step > count+1 {
		state.Step = count + 1
	}
	answers := make(map[int]Answer, len(state.Answers))
	for step, a := range state.Answers {
		if step < 1 || step > count {
			continue
		}
		opt, ok := catalog.Lookup(step, a.OptionID)
		if !ok {
			continue
		}
		answers[step] = Answer{QuestionNumber: step, OptionID: opt.ID, Label: opt.Label}
	}
	state.Answers = answers
	return state
}
