// Package result derives the diagnosis category from recorded answers.
package result

import "github.com/louisbranch/diagnosis/internal/services/diagnosis/domain/catalog"

// Key identifies a result category.
type Key string

const (
	Growth    Key = "growth"
	Stability Key = "stability"
	Income    Key = "income"
	Balance   Key = "balance"
)

// Category is the rendered diagnosis outcome.
type Category struct {
	Key         Key
	Title       string
	Description string
	Emoji       string
}

var categories = map[Key]Category{
	Growth: {
		Key:         Growth,
		Title:       "将来性重視・成長志向タイプ",
		Description: "キャリアアップや仕事内容を重視するあなた。成長機会のある環境を選ぶことで、将来の選択肢を広げやすくなります。",
		Emoji:       "🚀",
	},
	Stability: {
		Key:         Stability,
		Title:       "安定志向・長期キャリアタイプ",
		Description: "働く環境やワークライフバランスを重視するあなた。長く安心して働ける職場との相性が高いタイプです。",
		Emoji:       "🛡️",
	},
	Income: {
		Key:         Income,
		Title:       "収入重視・実力派タイプ",
		Description: "年収・待遇を優先するあなた。市場価値に見合う評価を受けられる職場を選ぶことで、収入アップが期待できます。",
		Emoji:       "💰",
	},
	Balance: {
		Key:         Balance,
		Title:       "将来性を重視しつつ、安定も欲しいタイプ",
		Description: "まだ優先順位を整理中のあなた。条件を比較しながら、成長と安定のバランスが取れた選択が向いています。",
		Emoji:       "⚖️",
	},
}

// rule matches answer option IDs; an empty field matches anything.
type rule struct {
	q1  []string
	q2  []string
	key Key
}

// rules are evaluated in order and the first match wins. Question 2 takes
// precedence over question 1.
var rules = []rule{
	{q2: []string{catalog.Q2Compensation}, key: Income},
	{q2: []string{catalog.Q2WorkEnv, catalog.Q2WorkLifeBal}, key: Stability},
	{q2: []string{catalog.Q2JobContent}, key: Growth},
	{q1: []string{catalog.Q1CareerUp}, key: Growth},
	{q1: []string{catalog.Q1BetterEnv}, key: Stability},
}

// Derive maps the option IDs answered for questions 1 and 2 to a category.
// An empty ID means the question is unanswered. Derive is total: anything
// that matches no rule is Balance.
func Derive(q1ID string, q2ID string) Category {
	for _, r := range rules {
		if r.matches(q1ID, q2ID) {
			return categories[r.key]
		}
	}
	return categories[Balance]
}

func (r rule) matches(q1ID string, q2ID string) bool {
	return matchesAny(r.q1, q1ID) && matchesAny(r.q2, q2ID)
}

func matchesAny(want []string, got string) bool {
	if len(want) == 0 {
		return true
	}
	if got == "" {
		return false
	}
	for _, id := range want {
		if id == got {
			return true
		}
	}
	return false
}
