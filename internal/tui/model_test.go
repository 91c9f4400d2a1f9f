package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/newyear/internal/config"
	"github.com/livetemplate/newyear/internal/progress"
	"github.com/livetemplate/newyear/internal/session"
	"github.com/livetemplate/newyear/internal/steps"
	"github.com/livetemplate/newyear/internal/wheel"
)

func newTestModel(t *testing.T) (Model, *session.Session, *steps.ManualScheduler) {
	t.Helper()
	cfg := config.DefaultConfig()
	catalog, err := wheel.CatalogFromConfig(cfg.Wheel)
	require.NoError(t, err)

	sched := steps.NewManualScheduler()
	sess := session.New("tui", func() *wheel.Catalog { return catalog }, session.Options{
		Gate:         steps.OptionsFromConfig(cfg),
		SpinDuration: 4 * time.Second,
		Scheduler:    sched,
	})
	t.Cleanup(sess.Close)

	m := New(sess, DarkTheme)
	t.Cleanup(m.Close)
	return m, sess, sched
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msgs to m in order
func press(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func repeat(msg tea.Msg, n int) []tea.Msg {
	out := make([]tea.Msg, n)
	for i := range out {
		out[i] = msg
	}
	return out
}

func TestLoginRefusesBlankName(t *testing.T) {
	m, sess, _ := newTestModel(t)

	m = press(m, runes("   "), key(tea.KeyEnter))
	assert.False(t, sess.LoggedIn())
	assert.Contains(t, m.View(), "请输入名字")

	m = press(m, runes("Alice"), key(tea.KeyEnter))
	assert.True(t, sess.LoggedIn())
	assert.Equal(t, "Alice", sess.State().UserName())
}

func TestStepKeysIgnoredBeforeLogin(t *testing.T) {
	m, sess, _ := newTestModel(t)
	press(m, key(tea.KeyEnter), key(tea.KeyTab), key(tea.KeyDown))
	assert.False(t, sess.LoggedIn())
	assert.Equal(t, progress.StepShredder, sess.Gate().Current())
	assert.Equal(t, 15, len(sess.Gate().View().BadLuck))
}

func TestPlaythrough(t *testing.T) {
	m, sess, sched := newTestModel(t)
	m = press(m, runes("Alice"), key(tea.KeyEnter))

	// Step 1: shred every item from the top of the list
	m = press(m, repeat(key(tea.KeyEnter), 15)...)
	assert.Empty(t, sess.Gate().View().BadLuck)
	assert.True(t, sess.State().IsUnlocked(progress.StepLetters))
	sched.Advance(1500 * time.Millisecond)
	require.Equal(t, progress.StepLetters, sess.Gate().Current())

	// Step 2: the cursor walks along the word
	m = press(m, repeat(key(tea.KeyEnter), 4)...)
	sched.Advance(4 * time.Second)
	require.Equal(t, progress.StepWishWall, sess.Gate().Current())

	// Step 3: typed wishes, tab moves on once three are in
	m = press(m, runes("travel"), key(tea.KeyEnter), key(tea.KeyTab))
	assert.Equal(t, progress.StepWishWall, sess.Gate().Current())
	m = press(m, runes("health"), key(tea.KeyEnter), runes("a cat"), key(tea.KeyEnter))
	assert.Equal(t, []string{"travel", "health", "a cat"}, sess.State().Wishes())
	assert.Contains(t, m.View(), "a cat")
	m = press(m, key(tea.KeyTab))
	require.Equal(t, progress.StepWheel, sess.Gate().Current())

	// Step 4: spin lands on the grand prize
	m = press(m, key(tea.KeyEnter))
	assert.Contains(t, m.View(), "转盘转动中")
	sched.Advance(4 * time.Second)
	res, ok := sess.Result()
	require.True(t, ok)
	assert.True(t, res.Prize.IsGrand())
	assert.Contains(t, m.View(), "志在必得")
	m = press(m, runes("n"))
	require.Equal(t, progress.StepTree, sess.Gate().Current())

	// Step 5
	m = press(m, repeat(key(tea.KeyEnter), len(steps.TreeTargets))...)
	assert.True(t, sess.Gate().Celebrating())
	assert.Contains(t, m.View(), "Alice，新年快乐！")
}

func TestNumberKeysJumpToUnlockedSteps(t *testing.T) {
	m, sess, sched := newTestModel(t)
	m = press(m, runes("Alice"), key(tea.KeyEnter))

	m = press(m, runes("3"))
	assert.Equal(t, progress.StepShredder, sess.Gate().Current())

	m = press(m, repeat(key(tea.KeyEnter), 15)...)
	sched.Advance(1500 * time.Millisecond)
	m = press(m, runes("1"))
	assert.Equal(t, progress.StepShredder, sess.Gate().Current())
	press(m, runes("2"))
	assert.Equal(t, progress.StepLetters, sess.Gate().Current())
}

func TestCursorWraps(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(m, runes("Alice"), key(tea.KeyEnter))

	m = press(m, key(tea.KeyUp))
	assert.Equal(t, 14, m.cursor)
	m = press(m, key(tea.KeyDown))
	assert.Equal(t, 0, m.cursor)
}

func TestQuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDetectTheme(t *testing.T) {
	t.Setenv("NEWYEAR_THEME", "")
	t.Setenv("COLORFGBG", "")
	assert.Equal(t, "light", DetectTheme("light").Name)
	assert.Equal(t, "dark", DetectTheme("").Name)

	t.Setenv("COLORFGBG", "0;15")
	assert.Equal(t, "light", DetectTheme("").Name)

	t.Setenv("NEWYEAR_THEME", "dark")
	assert.Equal(t, "dark", DetectTheme("").Name)
}
