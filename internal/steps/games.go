package steps

import "slices"

// DefaultBadLuck is the fixed set of items cleared in the shredder step.
var DefaultBadLuck = []string{
	"cloud", "stress", "bag", "ghost", "apple",
	"insomnia", "weight", "lag", "anxiety", "social",
	"broke", "sick", "think", "deadline", "rain",
}

// Shredder is the declutter game: every item must be removed.
type Shredder struct {
	items   []string
	removed []bool
	left    int
}

func newShredder(items []string) *Shredder {
	return &Shredder{
		items:   slices.Clone(items),
		removed: make([]bool, len(items)),
		left:    len(items),
	}
}

// remove reports whether item i was removed by this call.
func (s *Shredder) remove(i int) bool {
	if i < 0 || i >= len(s.items) || s.removed[i] {
		return false
	}
	s.removed[i] = true
	s.left--
	return true
}

// Remaining lists the items still on screen
func (s *Shredder) Remaining() []string {
	out := make([]string, 0, s.left)
	for i, it := range s.items {
		if !s.removed[i] {
			out = append(out, it)
		}
	}
	return out
}

// Done reports whether every item was removed
func (s *Shredder) Done() bool { return s.left == 0 }

// Lights is a set of named targets that are each lit once. It backs both the
// letters step and the tree step.
type Lights struct {
	names []string
	lit   []bool
	count int
}

func newLights(names []string) *Lights {
	return &Lights{names: slices.Clone(names), lit: make([]bool, len(names))}
}

// light reports whether target i changed from unlit to lit.
func (l *Lights) light(i int) bool {
	if i < 0 || i >= len(l.names) || l.lit[i] {
		return false
	}
	l.lit[i] = true
	l.count++
	return true
}

// Index returns the position of name, or -1
func (l *Lights) Index(name string) int {
	return slices.Index(l.names, name)
}

// Names returns the targets in display order
func (l *Lights) Names() []string { return slices.Clone(l.names) }

// Lit returns the lit flag of each target
func (l *Lights) Lit() []bool { return slices.Clone(l.lit) }

// Done reports whether all targets are lit
func (l *Lights) Done() bool { return l.count == len(l.names) }

// TreeTargets are the light-up targets of the tree step.
var TreeTargets = []string{"star", "top", "middle", "bottom", "gifts"}

func letters(word string) []string {
	var out []string
	for _, r := range word {
		out = append(out, string(r))
	}
	return out
}
