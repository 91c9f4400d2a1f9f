// Package session ties one player's progress, step gate, prize wheel and
// wish sync together behind a single action entry point.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/livetemplate/newyear/internal/progress"
	"github.com/livetemplate/newyear/internal/steps"
	"github.com/livetemplate/newyear/internal/wheel"
	"github.com/livetemplate/newyear/internal/wishsync"
)

var (
	// ErrBlankName is returned by Login for an empty or whitespace-only name.
	ErrBlankName = errors.New("session: name must not be blank")
	// ErrNotLoggedIn is returned for step actions sent before Login.
	ErrNotLoggedIn = errors.New("session: login required")
)

// UnknownActionError is returned by Dispatch for an unrecognized action name.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("session: unknown action %q", e.Action)
}

// CatalogFunc returns the prize catalog currently in effect. It is consulted
// on every spin so a reloaded catalog, prizes and spin options alike,
// applies to the next spin.
type CatalogFunc func() *wheel.Catalog

// Options configures a session
type Options struct {
	Gate         steps.Options
	SpinDuration time.Duration
	Scheduler    steps.Scheduler
	Remote       wishsync.Remote
	Timeout      time.Duration // Per remote call
}

// Session is one player's run through the five steps.
type Session struct {
	ID string

	state   *progress.State
	gate    *steps.Gate
	wheel   *wheel.Wheel
	syncer  *wishsync.Syncer
	catalog CatalogFunc
	sched   steps.Scheduler
	spinFor time.Duration

	mu         sync.Mutex
	result     *wheel.Result
	lastSpin   *wheel.Spin
	stopSettle func()
	listeners  map[int]func()
	nextID     int
}

// New creates a session at step 1 with no user.
func New(id string, catalog CatalogFunc, opts Options) *Session {
	sched := opts.Scheduler
	if sched == nil {
		sched = steps.RealScheduler{}
	}

	s := &Session{
		ID:        id,
		state:     progress.New(),
		catalog:   catalog,
		spinFor:   opts.SpinDuration,
		listeners: make(map[int]func()),
	}
	// Delayed transitions run outside any action, so listeners hear about them here.
	s.sched = notifyingScheduler{inner: sched, after: s.changed}
	s.gate = steps.NewGate(s.state, s.sched, opts.Gate)
	s.wheel = wheel.New(catalog().Options())
	if opts.Remote != nil {
		s.syncer = wishsync.NewSyncer(s.state, opts.Remote, opts.Timeout)
		s.syncer.OnLoad = s.changed
	}
	return s
}

// State exposes the progress state
func (s *Session) State() *progress.State { return s.state }

// Gate exposes the step gate
func (s *Session) Gate() *steps.Gate { return s.gate }

// Login records the player's name and starts loading their saved wishes.
// The name is trimmed; blank names are refused. A second login keeps the
// first name and returns false.
func (s *Session) Login(name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrBlankName
	}
	if !s.state.SetUserName(name) {
		return false, nil
	}
	if s.syncer != nil {
		s.syncer.Pull(name)
	}
	return true, nil
}

// LoggedIn reports whether Login succeeded
func (s *Session) LoggedIn() bool {
	return s.state.UserName() != ""
}

// AddWish adds a wish on the wish wall and saves it in the background.
func (s *Session) AddWish(text string) bool {
	wish, ok := s.gate.AddWish(text)
	if !ok {
		return false
	}
	if s.syncer != nil {
		s.syncer.Push(s.state.UserName(), wish)
	}
	return true
}

// Prizes returns the wheel as it stands for the current wishes
func (s *Session) Prizes() []wheel.Prize {
	return s.catalog().Prizes(s.state.Wishes())
}

// Spin starts a spin on the wheel step. The spin settles by itself after the
// configured spin duration, or earlier through Settle.
func (s *Session) Spin() (wheel.Spin, bool) {
	if s.gate.Current() != progress.StepWheel {
		return wheel.Spin{}, false
	}
	cat := s.catalog()
	spin, ok := s.wheel.StartWith(cat.Prizes(s.state.Wishes()), cat.Options())
	if !ok {
		return wheel.Spin{}, false
	}

	stop := s.sched.After(s.spinFor, func() { s.settle() })
	s.mu.Lock()
	s.lastSpin = &spin
	s.stopSettle = stop
	s.mu.Unlock()
	return spin, true
}

// Settle finishes the spin in progress now.
func (s *Session) Settle() (wheel.Result, bool) {
	return s.settle()
}

func (s *Session) settle() (wheel.Result, bool) {
	res, ok := s.wheel.Settle()
	if !ok {
		return wheel.Result{}, false
	}
	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()
	s.gate.SpinSettled()
	return res, true
}

// Result returns the latest settled spin, if any
func (s *Session) Result() (wheel.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return wheel.Result{}, false
	}
	return *s.result, true
}

// OnChange registers fn to run after changes that happen outside Dispatch:
// delayed step advances, spins settling on their own and wishes arriving
// from the store. The returned func removes it.
func (s *Session) OnChange(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) changed() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Wait blocks until background wish loads and saves have finished.
func (s *Session) Wait() {
	if s.syncer != nil {
		s.syncer.Wait()
	}
}

// Close stops pending timers. Background saves are allowed to finish.
func (s *Session) Close() {
	s.mu.Lock()
	stop := s.stopSettle
	s.stopSettle = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	s.gate.Close()
}

type notifyingScheduler struct {
	inner steps.Scheduler
	after func()
}

func (n notifyingScheduler) After(d time.Duration, fn func()) func() {
	return n.inner.After(d, func() {
		fn()
		n.after()
	})
}
