// Package steps runs the five mini-games and decides which step is shown.
package steps

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/livetemplate/newyear/internal/config"
	"github.com/livetemplate/newyear/internal/progress"
)

// Options tunes the gate
type Options struct {
	ShredDelay    time.Duration // Auto-advance delay after the shredder is cleared
	LettersDelay  time.Duration // Auto-advance delay after the word is lit
	Word          string
	WishThreshold int
	BadLuck       []string
	Debug         bool // Allows DebugJump
}

// OptionsFromConfig reads gate options from the steps and server sections
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ShredDelay:    cfg.Steps.GetShredDelay(),
		LettersDelay:  cfg.Steps.GetLettersDelay(),
		Word:          cfg.Steps.Word,
		WishThreshold: cfg.Steps.WishThreshold,
		Debug:         cfg.Server.Debug,
	}
}

// View is what a renderer needs about the mini-games besides the progress
// snapshot.
type View struct {
	BadLuck     []string `json:"badLuck"`
	Letters     []string `json:"letters"`
	LettersLit  []bool   `json:"lettersLit"`
	Tree        []string `json:"tree"`
	TreeLit     []bool   `json:"treeLit"`
	CanProceed  bool     `json:"canProceed"`
	Celebrating bool     `json:"celebrating"`
}

// Gate owns the step mini-games of one session. Game actions only apply to
// the step currently shown; actions on any other step are ignored and
// reported as false.
type Gate struct {
	state *progress.State
	sched Scheduler
	opts  Options

	mu          sync.Mutex
	shredder    *Shredder
	letters     *Lights
	tree        *Lights
	cancels     []func()
	unsubscribe func()
}

// NewGate creates the gate for state. Delayed advances run on sched.
func NewGate(state *progress.State, sched Scheduler, opts Options) *Gate {
	if opts.Word == "" {
		opts.Word = "LUCK"
	}
	if opts.WishThreshold < 1 {
		opts.WishThreshold = 3
	}
	if len(opts.BadLuck) == 0 {
		opts.BadLuck = DefaultBadLuck
	}
	if sched == nil {
		sched = RealScheduler{}
	}

	g := &Gate{
		state:    state,
		sched:    sched,
		opts:     opts,
		shredder: newShredder(opts.BadLuck),
		letters:  newLights(letters(opts.Word)),
		tree:     newLights(TreeTargets),
	}
	g.unsubscribe = state.Subscribe(g.checkWishThreshold)
	g.checkWishThreshold(state.Snapshot())
	return g
}

// Current returns the step being shown
func (g *Gate) Current() progress.Step {
	return g.state.CurrentStep()
}

// Jump shows step n if it is unlocked.
func (g *Gate) Jump(n progress.Step) bool {
	if !n.Valid() || !g.state.IsUnlocked(n) {
		return false
	}
	g.state.SetStep(n)
	return true
}

// DebugJump shows any valid step, unlocking it first. Only available when
// the gate runs with Debug.
func (g *Gate) DebugJump(n progress.Step) bool {
	if !g.opts.Debug || !n.Valid() {
		return false
	}
	log.Printf("[Gate] Debug jump to step %d", n)
	g.state.UnlockStep(n)
	g.state.SetStep(n)
	return true
}

// Proceed moves to the next step once it is unlocked.
func (g *Gate) Proceed() bool {
	cur := g.state.CurrentStep()
	if cur >= progress.LastStep {
		return false
	}
	return g.Jump(cur.Next())
}

// Shred removes bad-luck item i. Clearing the last item unlocks step 2 and
// schedules the advance to it.
func (g *Gate) Shred(i int) bool {
	g.mu.Lock()
	if g.Current() != progress.StepShredder || !g.shredder.remove(i) {
		g.mu.Unlock()
		return false
	}
	done := g.shredder.Done()
	g.mu.Unlock()

	if done {
		g.complete(progress.StepShredder, g.opts.ShredDelay)
	}
	return true
}

// LightLetter lights letter i of the word. Lighting the whole word unlocks
// step 3 and schedules the advance to it.
func (g *Gate) LightLetter(i int) bool {
	g.mu.Lock()
	if g.Current() != progress.StepLetters || !g.letters.light(i) {
		g.mu.Unlock()
		return false
	}
	done := g.letters.Done()
	g.mu.Unlock()

	if done {
		g.complete(progress.StepLetters, g.opts.LettersDelay)
	}
	return true
}

// AddWish trims text and appends it to the wish list. Blank wishes are
// rejected. It returns the stored text.
func (g *Gate) AddWish(text string) (string, bool) {
	if g.Current() != progress.StepWishWall {
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	g.state.AddWish(text)
	return text, true
}

// SpinSettled records a finished spin on the wheel step and unlocks step 5.
func (g *Gate) SpinSettled() bool {
	if g.Current() != progress.StepWheel {
		return false
	}
	g.state.UnlockStep(progress.StepTree)
	return true
}

// Light lights a tree target by name. It reports false for unknown or
// already lit targets.
func (g *Gate) Light(target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Current() != progress.StepTree {
		return false
	}
	return g.tree.light(g.tree.Index(target))
}

// Celebrating reports whether the whole tree is lit
func (g *Gate) Celebrating() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tree.Done()
}

// View returns the mini-game state
func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur := g.state.CurrentStep()
	return View{
		BadLuck:     g.shredder.Remaining(),
		Letters:     g.letters.Names(),
		LettersLit:  g.letters.Lit(),
		Tree:        g.tree.Names(),
		TreeLit:     g.tree.Lit(),
		CanProceed:  cur < progress.LastStep && g.state.IsUnlocked(cur.Next()),
		Celebrating: g.tree.Done(),
	}
}

// Close cancels pending advances and stops watching the state.
func (g *Gate) Close() {
	g.mu.Lock()
	cancels := g.cancels
	g.cancels = nil
	g.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	g.unsubscribe()
}

// complete unlocks the step after from and shows it once delay has passed,
// unless the player has left from by then.
func (g *Gate) complete(from progress.Step, delay time.Duration) {
	next := from.Next()
	g.state.UnlockStep(next)

	cancel := g.sched.After(delay, func() {
		if g.state.CurrentStep() != from {
			return
		}
		g.state.SetStep(next)
	})
	g.mu.Lock()
	g.cancels = append(g.cancels, cancel)
	g.mu.Unlock()
}

// checkWishThreshold unlocks the wheel step once the wish wall is reachable
// and holds enough wishes. It runs after every state change, so the unlock
// happens inside the AddWish or merge that crossed the threshold.
func (g *Gate) checkWishThreshold(snap progress.Snapshot) {
	if snap.IsUnlocked(progress.StepWheel) {
		return
	}
	wallReached := snap.CurrentStep == progress.StepWishWall || snap.IsUnlocked(progress.StepWishWall)
	if wallReached && len(snap.Wishes) >= g.opts.WishThreshold {
		g.state.UnlockStep(progress.StepWheel)
	}
}
