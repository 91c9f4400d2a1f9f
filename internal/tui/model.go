// Package tui is the terminal client: it plays one session in-process and
// renders it with bubbletea.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/livetemplate/newyear/internal/progress"
	"github.com/livetemplate/newyear/internal/session"
	"github.com/livetemplate/newyear/internal/steps"
)

// changedMsg reports a session change that happened outside a key press:
// a delayed step advance, a spin settling, or saved wishes arriving.
type changedMsg struct{}

// Model is the bubbletea model of the game.
type Model struct {
	sess    *session.Session
	styles  *StyleSet
	changes chan struct{}
	stop    func()

	input   textinput.Model
	step    progress.Step // step the cursor belongs to
	cursor  int
	badLuck []string // every shredder item, in slot order
	err     string
	width   int
}

// New creates a model playing sess.
func New(sess *session.Session, theme TermTheme) Model {
	styles := NewStyleSet(theme)

	ti := textinput.New()
	ti.Placeholder = "你的名字"
	ti.CharLimit = 64
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(theme.Accent)
	ti.Focus()

	changes := make(chan struct{}, 1)
	stop := sess.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	return Model{
		sess:    sess,
		styles:  styles,
		changes: changes,
		stop:    stop,
		input:   ti,
		badLuck: sess.Gate().View().BadLuck,
		step:    sess.Gate().Current(),
		width:   80,
	}
}

// Init starts the cursor blink and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return changedMsg{}
	}
}

// Close stops listening to the session
func (m Model) Close() {
	m.stop()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cur := m.sess.Gate().Current(); cur != m.step {
		m.step = cur
		m.cursor = 0
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case changedMsg:
		return m, m.waitForChange()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.sess.LoggedIn() {
			return m.updateLogin(msg)
		}
		if m.sess.Gate().Current() == progress.StepWishWall {
			return m.updateWishWall(msg)
		}
		return m.updateGame(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if _, err := m.dispatch(session.ActionLogin, session.Params{Name: m.input.Value()}); err != nil {
			m.err = "请输入名字"
			return m, nil
		}
		m.err = ""
		m.input.Reset()
		m.input.Placeholder = "写下一个新年愿望"
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = ""
	return m, cmd
}

func (m Model) updateWishWall(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if ok, _ := m.dispatch(session.ActionAddWish, session.Params{Text: m.input.Value()}); ok {
			m.input.Reset()
		}
		return m, nil
	case tea.KeyTab:
		m.proceed()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateGame(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "up", "left", "k", "h":
		m.moveCursor(-1)
		return m, nil
	case "down", "right", "j", "l":
		m.moveCursor(1)
		return m, nil
	case "n", "tab":
		m.proceed()
		return m, nil
	case "enter", " ":
		m.act()
		return m, nil
	}

	if n, err := strconv.Atoi(key); err == nil {
		if _, err := m.dispatch(session.ActionJump, session.Params{Step: n}); err == nil {
			m.cursor = 0
		}
	}
	return m, nil
}

// act performs the main action of the current step on the cursor.
func (m *Model) act() {
	view := m.sess.Gate().View()
	switch m.sess.Gate().Current() {
	case progress.StepShredder:
		if m.cursor < len(view.BadLuck) {
			slot := slices.Index(m.badLuck, view.BadLuck[m.cursor])
			m.dispatch(session.ActionShred, session.Params{Index: slot})
			m.clampCursor(len(view.BadLuck) - 1)
		}
	case progress.StepLetters:
		if ok, _ := m.dispatch(session.ActionLightLetter, session.Params{Index: m.cursor}); ok {
			m.moveCursor(1)
		}
	case progress.StepWheel:
		m.dispatch(session.ActionSpin, session.Params{})
	case progress.StepTree:
		if m.cursor < len(view.Tree) {
			if ok, _ := m.dispatch(session.ActionLight, session.Params{Target: view.Tree[m.cursor]}); ok {
				m.moveCursor(1)
			}
		}
	}
}

func (m *Model) proceed() {
	if ok, _ := m.dispatch(session.ActionProceed, session.Params{}); ok {
		m.cursor = 0
	}
}

func (m *Model) moveCursor(delta int) {
	view := m.sess.Gate().View()
	n := 0
	switch m.sess.Gate().Current() {
	case progress.StepShredder:
		n = len(view.BadLuck)
	case progress.StepLetters:
		n = len(view.Letters)
	case progress.StepTree:
		n = len(view.Tree)
	}
	if n == 0 {
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

// clampCursor keeps the cursor inside a list of n items
func (m *Model) clampCursor(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) dispatch(name string, p session.Params) (bool, error) {
	ok, err := m.sess.Dispatch(session.Action{Name: name, Data: p})
	var unknown *session.UnknownActionError
	if errors.As(err, &unknown) {
		m.err = err.Error()
	}
	return ok, err
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	s := m.styles

	b.WriteString("\n  " + s.Title.Render("🧧 新年快乐") + "\n\n")

	if !m.sess.LoggedIn() {
		b.WriteString("  " + s.PrimaryTxt.Render("你好！请输入你的名字开始") + "\n\n")
		b.WriteString("  " + s.Box.Render(m.input.View()) + "\n")
		if m.err != "" {
			b.WriteString("  " + s.ErrorTxt.Render("✗ "+m.err) + "\n")
		}
		b.WriteString("\n" + s.hints([]KeyBinding{{"⏎", "开始"}, {"ctrl+c", "退出"}}) + "\n")
		return b.String()
	}

	view := m.sess.View()
	b.WriteString(m.renderProgress(view.Snapshot) + "\n\n")

	cur := view.CurrentStep
	b.WriteString("  " + s.GoldTxt.Render(fmt.Sprintf("%d. %s", cur, steps.Titles[cur])) + "\n\n")

	switch cur {
	case progress.StepShredder:
		b.WriteString(m.renderList(view.Steps.BadLuck, nil))
		if len(view.Steps.BadLuck) == 0 {
			b.WriteString("  " + s.SuccessTxt.Render("霉运已清空！") + "\n")
		}
	case progress.StepLetters:
		b.WriteString(m.renderLetters(view.Steps))
	case progress.StepWishWall:
		b.WriteString(m.renderWishWall(view))
	case progress.StepWheel:
		b.WriteString(m.renderWheel(view))
	case progress.StepTree:
		b.WriteString(m.renderList(view.Steps.Tree, view.Steps.TreeLit))
		if view.Steps.Celebrating {
			b.WriteString("\n  " + s.Banner.Render(fmt.Sprintf("%s，新年快乐！", view.UserName)) + "\n")
		}
	}

	if view.Steps.CanProceed {
		b.WriteString("\n  " + s.SuccessTxt.Render("下一步已解锁") + "\n")
	}
	b.WriteString("\n" + m.renderHints(cur) + "\n")
	return b.String()
}

func (m Model) renderProgress(snap progress.Snapshot) string {
	s := m.styles
	badges := make([]string, 0, int(progress.LastStep))
	for n := progress.FirstStep; n <= progress.LastStep; n++ {
		label := fmt.Sprintf(" %d ", n)
		switch {
		case n == snap.CurrentStep:
			badges = append(badges, s.StepActive.Render(label+steps.Titles[n]))
		case n < snap.CurrentStep && snap.IsUnlocked(n):
			badges = append(badges, s.StepDone.Render(" ✓ "))
		case snap.IsUnlocked(n):
			badges = append(badges, s.StepOpen.Render(label))
		default:
			badges = append(badges, s.StepPending.Render(label))
		}
	}
	return "  " + strings.Join(badges, " ")
}

// renderList draws a cursor list; lit marks items already done.
func (m Model) renderList(items []string, lit []bool) string {
	s := m.styles
	var b strings.Builder
	for i, it := range items {
		pointer := "  "
		style := s.PrimaryTxt
		if i == m.cursor {
			pointer = s.Cursor.Render("▸ ")
			style = s.Selected
		}
		mark := ""
		if lit != nil && lit[i] {
			mark = s.GoldTxt.Render(" ✦")
		}
		b.WriteString("  " + pointer + style.Render(it) + mark + "\n")
	}
	return b.String()
}

func (m Model) renderLetters(v steps.View) string {
	s := m.styles
	cells := make([]string, len(v.Letters))
	for i, l := range v.Letters {
		style := s.DimTxt
		if v.LettersLit[i] {
			style = s.GoldTxt
		}
		cell := style.Render(l)
		if i == m.cursor {
			cell = s.Cursor.Render("[") + cell + s.Cursor.Render("]")
		} else {
			cell = " " + cell + " "
		}
		cells[i] = cell
	}
	return "  " + strings.Join(cells, " ") + "\n"
}

func (m Model) renderWishWall(v session.View) string {
	s := m.styles
	var b strings.Builder
	if len(v.Wishes) == 0 {
		b.WriteString("  " + s.DimTxt.Render("还没有愿望") + "\n")
	}
	for _, w := range v.Wishes {
		b.WriteString("  " + s.GoldTxt.Render("★ ") + s.PrimaryTxt.Render(w) + "\n")
	}
	b.WriteString("\n  " + s.Box.Render(m.input.View()) + "\n")
	return b.String()
}

func (m Model) renderWheel(v session.View) string {
	s := m.styles
	var b strings.Builder
	for _, p := range v.Prizes {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render("●")
		label := s.PrimaryTxt.Render(p.Label)
		if p.IsGrand() {
			label = s.GoldTxt.Render(p.Label)
		}
		b.WriteString("  " + swatch + " " + label + "\n")
	}
	switch {
	case v.Spinning:
		b.WriteString("\n  " + s.Subtitle.Render("转盘转动中…") + "\n")
	case v.Result != nil:
		b.WriteString("\n  " + s.Banner.Render(v.Result.Prize.Label) + "\n")
		b.WriteString("  " + s.PrimaryTxt.Width(m.width-4).Render(v.Result.Text) + "\n")
	}
	return b.String()
}

func (m Model) renderHints(step progress.Step) string {
	switch step {
	case progress.StepWishWall:
		return m.styles.hints([]KeyBinding{{"⏎", "许愿"}, {"tab", "下一步"}, {"ctrl+c", "退出"}})
	case progress.StepWheel:
		return m.styles.hints([]KeyBinding{{"⏎", "转动"}, {"n", "下一步"}, {"1-5", "跳转"}, {"q", "退出"}})
	default:
		return m.styles.hints([]KeyBinding{{"↑↓", "选择"}, {"⏎", "确定"}, {"n", "下一步"}, {"1-5", "跳转"}, {"q", "退出"}})
	}
}

// Run plays sess in the terminal until the player quits.
func Run(sess *session.Session, theme TermTheme) error {
	m := New(sess, theme)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
