// Package progress holds the per-session progress state: which step is shown,
// which steps are unlocked, who is playing and which wishes were collected.
package progress

import (
	"slices"
	"sync"
)

// Step identifies one of the five steps of the experience.
type Step int

const (
	StepShredder Step = iota + 1 // Declutter bad luck
	StepLetters                  // Inject good luck
	StepWishWall                 // Collect wishes
	StepWheel                    // Spin the prize wheel
	StepTree                     // Light the tree

	FirstStep = StepShredder
	LastStep  = StepTree
)

// Valid reports whether s is one of the five steps.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Next returns the step after s. LastStep has no successor and returns itself.
func (s Step) Next() Step {
	if s >= LastStep {
		return LastStep
	}
	return s + 1
}

// Snapshot is an immutable copy of the state, safe to hand to renderers.
type Snapshot struct {
	CurrentStep   Step     `json:"currentStep"`
	UnlockedSteps []Step   `json:"unlockedSteps"`
	UserName      string   `json:"userName,omitempty"`
	Wishes        []string `json:"wishes"`
}

// IsUnlocked reports whether step n is in the snapshot's unlocked set.
func (s Snapshot) IsUnlocked(n Step) bool {
	return slices.Contains(s.UnlockedSteps, n)
}

// State is the progress of one application session.
//
// Every mutation is a single atomic transition: readers observe either the
// state before or after it, never a partial update. Subscribers are notified
// after the lock is released, in subscription order.
type State struct {
	mu       sync.RWMutex
	current  Step
	unlocked []Step
	userName string
	wishes   []string

	subMu       sync.Mutex
	subscribers []func(Snapshot)
}

// New creates a state at its initial values: step 1 shown, only step 1
// unlocked, no user and no wishes.
func New() *State {
	return &State{
		current:  FirstStep,
		unlocked: []Step{FirstStep},
		wishes:   []string{},
	}
}

// SetStep shows step n. It does not consult the unlocked set; navigation
// that must respect unlocking goes through the step gate.
func (s *State) SetStep(n Step) {
	s.mu.Lock()
	s.current = n
	s.mu.Unlock()
	s.notify()
}

// UnlockStep adds n to the unlocked set. Unlocking an unlocked step is a no-op.
func (s *State) UnlockStep(n Step) {
	s.mu.Lock()
	if slices.Contains(s.unlocked, n) {
		s.mu.Unlock()
		return
	}
	s.unlocked = append(s.unlocked, n)
	s.mu.Unlock()
	s.notify()
}

// AddWish appends text verbatim to the wish list.
func (s *State) AddWish(text string) {
	s.mu.Lock()
	s.wishes = append(s.wishes, text)
	s.mu.Unlock()
	s.notify()
}

// SetWishes replaces the wish list.
func (s *State) SetWishes(list []string) {
	s.mu.Lock()
	s.wishes = slices.Clone(list)
	if s.wishes == nil {
		s.wishes = []string{}
	}
	s.mu.Unlock()
	s.notify()
}

// UpdateWishes replaces the wish list with fn(current) in one transition,
// so a concurrent AddWish is never lost between the read and the write.
func (s *State) UpdateWishes(fn func(current []string) []string) {
	s.mu.Lock()
	next := fn(slices.Clone(s.wishes))
	if next == nil {
		next = []string{}
	}
	s.wishes = next
	s.mu.Unlock()
	s.notify()
}

// SetUserName records the player's name. The name is set once per session;
// later calls leave it unchanged and return false.
func (s *State) SetUserName(name string) bool {
	s.mu.Lock()
	if s.userName != "" {
		s.mu.Unlock()
		return false
	}
	s.userName = name
	s.mu.Unlock()
	s.notify()
	return true
}

// CurrentStep returns the step being shown.
func (s *State) CurrentStep() Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// IsUnlocked reports whether step n has been unlocked.
func (s *State) IsUnlocked(n Step) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.unlocked, n)
}

// UserName returns the player's name, or "" before login.
func (s *State) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userName
}

// Wishes returns a copy of the wish list.
func (s *State) Wishes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.wishes)
}

// WishCount returns the number of wishes.
func (s *State) WishCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.wishes)
}

// Snapshot returns a copy of the whole state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unlocked := slices.Clone(s.unlocked)
	slices.Sort(unlocked)
	return Snapshot{
		CurrentStep:   s.current,
		UnlockedSteps: unlocked,
		UserName:      s.userName,
		Wishes:        slices.Clone(s.wishes),
	}
}

// Subscribe registers fn to be called with a fresh snapshot after every
// change. The returned function removes the subscription.
func (s *State) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subscribers = append(s.subscribers, fn)
	idx := len(s.subscribers) - 1
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if idx < len(s.subscribers) {
			s.subscribers[idx] = nil
		}
	}
}

func (s *State) notify() {
	s.subMu.Lock()
	subs := slices.Clone(s.subscribers)
	s.subMu.Unlock()

	if len(subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range subs {
		if fn != nil {
			fn(snap)
		}
	}
}
