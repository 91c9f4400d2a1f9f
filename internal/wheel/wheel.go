package wheel

import (
	"math"
	"math/rand"
	"sync"
)

// Spin describes a spin that has started: where the wheel turns to and which
// prize it will stop on.
type Spin struct {
	Prizes    []Prize `json:"prizes"`
	Index     int     `json:"index"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
	Increment float64 `json:"increment"`
}

// Result is the outcome shown once a spin settles.
type Result struct {
	Prize    Prize   `json:"prize"`
	Text     string  `json:"text"`
	Rotation float64 `json:"rotation"`
}

// Wheel holds the accumulated rotation of one player's wheel. Rotation is
// cumulative across spins and never normalized. Segment 0 starts at the
// pointer (top) and segments run clockwise; the wheel also turns clockwise.
type Wheel struct {
	mu       sync.Mutex
	rotation float64
	spinning bool
	pending  Spin
	sep      string // Separator of the pending spin
	opts     Options
	rand     func() float64
}

// New creates a wheel at rotation 0.
func New(opts Options) *Wheel {
	return &Wheel{opts: opts, rand: rand.Float64}
}

// NewWithRand creates a wheel with a custom jitter source returning values in [0, 1).
func NewWithRand(opts Options, rnd func() float64) *Wheel {
	return &Wheel{opts: opts, rand: rnd}
}

// Rotation returns the accumulated rotation in degrees.
func (w *Wheel) Rotation() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rotation
}

// Spinning reports whether a spin has started but not settled.
func (w *Wheel) Spinning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spinning
}

// Start begins a spin over prizes. The outcome is always the grand prize.
// It returns false, and changes nothing, when a spin is already in progress
// or prizes has no grand prize.
func (w *Wheel) Start(prizes []Prize) (Spin, bool) {
	return w.StartWith(prizes, w.opts)
}

// StartWith is Start using opts for this spin's turns, jitter and result
// separator instead of the options the wheel was created with.
func (w *Wheel) StartWith(prizes []Prize, opts Options) (Spin, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.spinning {
		return Spin{}, false
	}
	target := GrandIndex(prizes)
	if target < 0 {
		return Spin{}, false
	}

	from := w.rotation
	inc := Increment(from, len(prizes), target, opts.MinTurns, opts.Jitter, w.rand())
	spin := Spin{
		Prizes:    prizes,
		Index:     target,
		From:      from,
		To:        from + inc,
		Increment: inc,
	}
	w.rotation = spin.To
	w.spinning = true
	w.pending = spin
	w.sep = opts.Separator
	return spin, true
}

// Settle ends the spin in progress and returns its result. It returns false
// when no spin is in progress.
func (w *Wheel) Settle() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.spinning {
		return Result{}, false
	}
	w.spinning = false
	spin := w.pending
	w.pending = Spin{}

	idx := IndexAt(spin.To, len(spin.Prizes))
	return Result{
		Prize:    spin.Prizes[idx],
		Text:     ResultText(spin.Prizes, idx, w.sep),
		Rotation: spin.To,
	}, true
}

// Increment returns how far to turn a wheel currently at rotation so that
// segment target of n stops under the pointer. It is the smallest
// non-negative alignment, plus turns full rotations, plus a jitter of at
// most jitter*segment/2 either side of the segment centre. r is a uniform
// sample in [0, 1).
func Increment(rotation float64, n, target, turns int, jitter, r float64) float64 {
	segment := 360 / float64(n)
	center := float64(target)*segment + segment/2

	// The pointer sits over wheel angle (360 - rotation) mod 360.
	want := normalize(360 - center)
	align := normalize(want - normalize(rotation))

	offset := (2*r - 1) * jitter * segment / 2
	return align + float64(turns)*360 + offset
}

// IndexAt returns the segment under the pointer at the given rotation.
func IndexAt(rotation float64, n int) int {
	if n <= 0 {
		return -1
	}
	segment := 360 / float64(n)
	angle := normalize(360 - normalize(rotation))
	idx := int(math.Floor(angle / segment))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
