// Package quiz implements the interactive intake questionnaire as a
// terminal wizard. It collects raw answers only; compilation into a
// profile happens in internal/profile, so this wizard and the HTTP quiz
// endpoint stay behaviorally identical.
package quiz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bobaba99/truepick/internal/types"
)

// step indexes the wizard screens in order.
type step int

const (
	stepBudget step = iota
	stepIncome
	stepRisk
	stepAgreement
	stepValues
	stepDone
)

// statements are the five bias probes. Index order must match
// types.AllSusceptibilities: scarcity, social proof, anchoring, loss
// aversion, Diderot.
var statements = []string{
	`When something is marked "limited time" or "only 3 left", I feel pressure to buy before it is gone.`,
	`Thousands of positive reviews or a bestseller badge make me much more likely to buy.`,
	`A steep discount from the original price makes an item feel worth buying on its own.`,
	`I sometimes buy things mainly to avoid the regret of having missed a deal.`,
	`After buying something new, my other things suddenly feel due for an upgrade too.`,
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	questionStyle = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

// Model is the wizard state. Update returns a mutated copy in the usual
// bubbletea style; the final copy carries the collected answers.
type Model struct {
	step     step
	agreeIdx int
	input    textinput.Model
	answers  types.QuizSubmission
	errMsg   string
	aborted  bool
}

// New builds the wizard positioned on the first question.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "e.g. 500"
	ti.Prompt = "│ "
	ti.CharLimit = 280
	ti.Width = 60
	ti.Focus()

	return Model{
		step:  stepBudget,
		input: ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case tea.WindowSizeMsg:
		if msg.Width > 8 {
			m.input.Width = msg.Width - 8
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit validates the current answer and advances the wizard. Invalid
// input keeps the wizard on the same question with an error line.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	switch m.step {
	case stepBudget:
		budget, err := strconv.ParseFloat(value, 64)
		if err != nil || budget < 0 {
			m.errMsg = "Enter a non-negative number."
			return m, nil
		}
		m.answers.MonthlyBudget = budget
		m.advance(stepIncome, "1-4")

	case stepIncome:
		band, ok := parseIncome(value)
		if !ok {
			m.errMsg = "Enter a number from 1 to 4."
			return m, nil
		}
		m.answers.IncomeBand = band
		m.advance(stepRisk, "low, medium, or high")

	case stepRisk:
		risk, ok := parseRisk(value)
		if !ok {
			m.errMsg = "Enter low, medium, or high (or 1-3)."
			return m, nil
		}
		m.answers.RiskAnswer = risk
		m.advance(stepAgreement, "1-5")

	case stepAgreement:
		score, err := strconv.Atoi(value)
		if err != nil || score < 1 || score > 5 {
			m.errMsg = "Enter a score from 1 (disagree) to 5 (agree)."
			return m, nil
		}
		m.answers.Agreement = append(m.answers.Agreement, score)
		m.agreeIdx++
		if m.agreeIdx < len(statements) {
			m.errMsg = ""
			m.input.Reset()
			return m, nil
		}
		m.advance(stepValues, "what matters to you when you spend")

	case stepValues:
		m.answers.Values = value
		m.step = stepDone
		return m, tea.Quit
	}

	return m, nil
}

// advance moves to the next screen with a fresh input line.
func (m *Model) advance(next step, placeholder string) {
	m.step = next
	m.errMsg = ""
	m.input.Reset()
	m.input.Placeholder = placeholder
}

func (m Model) question() string {
	switch m.step {
	case stepBudget:
		return "What is your monthly discretionary budget?"
	case stepIncome:
		return "Which income band are you in?"
	case stepRisk:
		return "How much financial risk are you comfortable with?"
	case stepAgreement:
		return statements[m.agreeIdx]
	case stepValues:
		return "In a sentence or two: what do you actually value spending money on?"
	}
	return ""
}

func (m Model) hint() string {
	switch m.step {
	case stepBudget:
		return "Money you could spend freely each month after essentials."
	case stepIncome:
		return "1. under 25k   2. 25k-50k   3. 50k-100k   4. over 100k"
	case stepRisk:
		return "1. low   2. medium   3. high"
	case stepAgreement:
		return "1 = strongly disagree ... 5 = strongly agree"
	case stepValues:
		return "Every purchase gets checked against this. Honest beats polished."
	}
	return ""
}

// questionNumber is the 1-based position for the progress line.
func (m Model) questionNumber() int {
	switch m.step {
	case stepBudget:
		return 1
	case stepIncome:
		return 2
	case stepRisk:
		return 3
	case stepAgreement:
		return 4 + m.agreeIdx
	default:
		return 4 + len(statements)
	}
}

func totalQuestions() int {
	return 4 + len(statements)
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("TruePick intake quiz"))
	sb.WriteString("\n\n")

	if m.step == stepDone {
		sb.WriteString(doneStyle.Render("All answers collected."))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(questionStyle.Render(m.question()))
	sb.WriteString("\n")
	if hint := m.hint(); hint != "" {
		sb.WriteString(hintStyle.Render(hint))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	if m.errMsg != "" {
		sb.WriteString(errorStyle.Render(m.errMsg))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render(fmt.Sprintf("question %d of %d · enter to continue · esc to abort",
		m.questionNumber(), totalQuestions())))
	sb.WriteString("\n")

	return sb.String()
}

// Run drives the wizard to completion. A nil submission with a nil error
// means the user aborted.
func Run() (*types.QuizSubmission, error) {
	p := tea.NewProgram(New())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok || m.aborted || m.step != stepDone {
		return nil, nil
	}
	answers := m.answers
	return &answers, nil
}

func parseIncome(v string) (types.IncomeBand, bool) {
	switch strings.ToLower(v) {
	case "1":
		return types.IncomeUnder25k, true
	case "2":
		return types.Income25to50k, true
	case "3":
		return types.Income50to100k, true
	case "4":
		return types.IncomeOver100k, true
	}
	band := types.IncomeBand(strings.ToLower(v))
	if types.ValidIncomeBand(band) {
		return band, true
	}
	return "", false
}

func parseRisk(v string) (string, bool) {
	switch strings.ToLower(v) {
	case "1", "low":
		return "low", true
	case "2", "medium":
		return "medium", true
	case "3", "high":
		return "high", true
	}
	return "", false
}
