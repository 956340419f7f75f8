package catalog

import (
	"fmt"
	"strings"
)

// InputMode selects how a question collects its answer.
type InputMode int

const (
	// InputChoiceButtons renders one button per option.
	InputChoiceButtons InputMode = iota
	// InputRegionPicker renders a region dropdown plus the question's
	// no-preference option.
	InputRegionPicker
)

func (m InputMode) String() string {
	switch m {
	case InputChoiceButtons:
		return "choice_buttons"
	case InputRegionPicker:
		return "region_picker"
	default:
		return fmt.Sprintf("input_mode(%d)", int(m))
	}
}

// Option is one selectable answer.
type Option struct {
	ID    string
	Label string
}

// Question is one wizard step.
type Question struct {
	Number    int
	Prompt    string
	Options   []Option
	InputMode InputMode
}

// Option IDs referenced by the result rules and the region picker.
const (
	Q1CareerUp     = "q1_career_up"
	Q1BetterEnv    = "q1_better_env"
	Q1UnsureDir    = "q1_unsure_direction"
	Q1NotThinking  = "q1_not_thinking"
	Q2Compensation = "q2_compensation"
	Q2JobContent   = "q2_job_content"
	Q2WorkEnv      = "q2_work_env"
	Q2WorkLifeBal  = "q2_wlb"
	Q2NotClear     = "q2_not_clear"
	Q5NoPreference = "q5_no_preference"
)

// NoPreferenceText labels the "no preference" options.
const NoPreferenceText = "特に決めていない"

var firstQuestionOptions = []Option{
	{ID: Q1CareerUp, Label: "キャリアアップを目指したい"},
	{ID: Q1BetterEnv, Label: "より良い環境があれば検討したい"},
	{ID: Q1UnsureDir, Label: "方向性に少し迷っている"},
	{ID: Q1NotThinking, Label: "まだ具体的には考えていない"},
}

var questions = []Question{
	{
		Number:  1,
		Prompt:  "今後の働き方について、どのように考えていますか？",
		Options: firstQuestionOptions,
	},
	{
		Number: 2,
		Prompt: "今後の働き方で、優先したいことは何ですか？",
		Options: []Option{
			{ID: Q2Compensation, Label: "年収・待遇"},
			{ID: Q2JobContent, Label: "仕事内容"},
			{ID: Q2WorkEnv, Label: "働く環境（人間関係・社風）"},
			{ID: Q2WorkLifeBal, Label: "ワークライフバランス"},
			{ID: Q2NotClear, Label: "まだはっきりしていない"},
		},
	},
	{
		Number: 3,
		Prompt: "いつごろから働きたいですか？",
		Options: []Option{
			{ID: "q3_asap", Label: "できるだけ早く（1ヶ月以内）"},
			{ID: "q3_3months", Label: "3ヶ月以内"},
			{ID: "q3_6months", Label: "半年以内"},
			{ID: "q3_not_decided", Label: "まだ決めていない"},
		},
	},
	{
		Number: 4,
		Prompt: "現在の状況を教えてください",
		Options: []Option{
			{ID: "q4_employed_fulltime", Label: "在職中（正社員）"},
			{ID: "q4_employed_contract", Label: "在職中（契約・アルバイトなど）"},
			{ID: "q4_unemployed", Label: "離職中"},
			{ID: "q4_student", Label: "学生"},
			{ID: "q4_other", Label: "その他"},
		},
	},
	{
		Number:    5,
		Prompt:    "希望している勤務地はありますか？",
		Options:   []Option{{ID: Q5NoPreference, Label: NoPreferenceText}},
		InputMode: InputRegionPicker,
	},
	{
		Number: 6,
		Prompt: "理想の年収イメージはありますか？",
		Options: []Option{
			{ID: "q6_lt_300", Label: "300万未満"},
			{ID: "q6_300_400", Label: "300–400万"},
			{ID: "q6_400_500", Label: "400–500万"},
			{ID: "q6_ge_500", Label: "500万以上"},
			{ID: "q6_no_preference", Label: NoPreferenceText},
		},
	},
}

func init() {
	if err := validate(questions); err != nil {
		panic(err)
	}
}

// Count returns the number of questions.
func Count() int {
	return len(questions)
}

// QuestionAt returns question n (1-based). It panics when n is out of range:
// callers derive n from wizard state, so a bad index is a programming error.
func QuestionAt(n int) Question {
	if n < 1 || n > len(questions) {
		panic(fmt.Sprintf("catalog: question %d out of range [1, %d]", n, len(questions)))
	}
	return cloneQuestion(questions[n-1])
}

// FirstQuestionOptions returns the options of question 1.
func FirstQuestionOptions() []Option {
	return cloneOptions(firstQuestionOptions)
}

// FirstQuestionOption looks up a question 1 option by ID.
func FirstQuestionOption(id string) (Option, bool) {
	return findOption(firstQuestionOptions, id)
}

// Lookup resolves optionID against question n. Region IDs are accepted for
// region picker questions. Out-of-range n reports false.
func Lookup(n int, optionID string) (Option, bool) {
	if n < 1 || n > len(questions) || optionID == "" {
		return Option{}, false
	}
	q := questions[n-1]
	if opt, ok := findOption(q.Options, optionID); ok {
		return opt, true
	}
	if q.InputMode != InputRegionPicker {
		return Option{}, false
	}
	if region, ok := strings.CutPrefix(optionID, RegionOptionPrefix); ok {
		return RegionOption(region)
	}
	return Option{}, false
}

func findOption(options []Option, id string) (Option, bool) {
	if id == "" {
		return Option{}, false
	}
	for _, opt := range options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

func validate(qs []Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("catalog: no questions")
	}
	for i, q := range qs {
		if q.Number != i+1 {
			return fmt.Errorf("catalog: question at position %d has number %d", i+1, q.Number)
		}
		if q.Prompt == "" {
			return fmt.Errorf("catalog: question %d has no prompt", q.Number)
		}
		if q.InputMode == InputChoiceButtons && len(q.Options) == 0 {
			return fmt.Errorf("catalog: question %d has no options", q.Number)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if opt.ID == "" || opt.Label == "" {
				return fmt.Errorf("catalog: question %d has an option without id or label", q.Number)
			}
			if _, dup := seen[opt.ID]; dup {
				return fmt.Errorf("catalog: question %d repeats option %q", q.Number, opt.ID)
			}
			seen[opt.ID] = struct{}{}
		}
	}
	return nil
}

func cloneQuestion(q Question) Question {
	q.Options = cloneOptions(q.Options)
	return q
}

func cloneOptions(options []Option) []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}
