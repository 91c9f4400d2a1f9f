// Package wheel builds the prize wheel from built-in prizes and the player's
// wishes, and computes spins that always land on the grand prize.
package wheel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/livetemplate/newyear/internal/config"
)

// Kind tags a prize as a normal entry or the grand prize.
type Kind int

const (
	Normal Kind = iota
	Grand
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Grand:
		return "grand"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is what a wheel segment shows.
type Entry struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Text  string `json:"text"`
}

// Prize is a wheel segment. The grand prize is identified by its Kind, so a
// wish whose text equals the grand prize label is still a normal prize.
type Prize struct {
	Kind Kind `json:"kind"`
	Entry
}

// IsGrand reports whether p is the grand prize.
func (p Prize) IsGrand() bool {
	return p.Kind == Grand
}

// Options controls how wishes become prizes and how spins look.
type Options struct {
	Palette    []string // Colors cycled through for wish prizes
	LabelRunes int      // Wish labels longer than this are truncated
	WishPrefix string   // Prepended to the wish in the prize text
	Separator  string   // Joins the texts in the grand prize result
	MinTurns   int      // Full turns added to every spin (at least 5)
	Jitter     float64  // Stop offset as a fraction of half a segment, in [0, 1)
}

// ErrNoGrandPrize is returned when the built-in list has no grand prize.
var ErrNoGrandPrize = errors.New("wheel: no grand prize among built-in prizes")

// Catalog is the fixed part of the wheel: built-in prizes and the grand prize.
type Catalog struct {
	normal []Prize
	grand  Prize
	opts   Options
}

// NewCatalog builds a catalog. Exactly one prize must be of kind Grand.
func NewCatalog(builtins []Prize, opts Options) (*Catalog, error) {
	c := &Catalog{opts: opts}
	found := false
	for _, p := range builtins {
		if p.IsGrand() {
			if found {
				return nil, fmt.Errorf("wheel: more than one grand prize (%q and %q)", c.grand.Label, p.Label)
			}
			c.grand = p
			found = true
			continue
		}
		c.normal = append(c.normal, p)
	}
	if !found {
		return nil, ErrNoGrandPrize
	}
	if len(c.opts.Palette) == 0 {
		c.opts.Palette = []string{c.grand.Color}
	}
	if c.opts.LabelRunes <= 0 {
		c.opts.LabelRunes = 4
	}
	if c.opts.MinTurns < 5 {
		c.opts.MinTurns = 5
	}
	if c.opts.Jitter < 0 || c.opts.Jitter >= 1 {
		c.opts.Jitter = 0
	}
	return c, nil
}

// CatalogFromConfig builds the catalog described by the wheel section of the config.
func CatalogFromConfig(cfg config.WheelConfig) (*Catalog, error) {
	builtins := make([]Prize, 0, len(cfg.Prizes))
	for _, p := range cfg.Prizes {
		kind := Normal
		if p.Grand {
			kind = Grand
		}
		builtins = append(builtins, Prize{Kind: kind, Entry: Entry{Label: p.Label, Color: p.Color, Text: p.Text}})
	}
	return NewCatalog(builtins, Options{
		Palette:    cfg.Palette,
		LabelRunes: cfg.LabelRunes,
		WishPrefix: cfg.WishPrefix,
		Separator:  cfg.Separator,
		MinTurns:   cfg.MinTurns,
		Jitter:     cfg.Jitter,
	})
}

// Options returns the normalized options of the catalog.
func (c *Catalog) Options() Options {
	return c.opts
}

// Prizes assembles the wheel for the given wishes: normal built-ins first,
// then one prize per wish in wish order, then the grand prize.
func (c *Catalog) Prizes(wishes []string) []Prize {
	prizes := make([]Prize, 0, len(c.normal)+len(wishes)+1)
	prizes = append(prizes, c.normal...)
	for i, wish := range wishes {
		prizes = append(prizes, Prize{
			Kind: Normal,
			Entry: Entry{
				Label: truncateLabel(wish, c.opts.LabelRunes),
				Color: c.opts.Palette[(len(c.normal)+i)%len(c.opts.Palette)],
				Text:  c.opts.WishPrefix + wish,
			},
		})
	}
	return append(prizes, c.grand)
}

// ResultText is the text shown for prizes[idx]. The grand prize combines the
// texts of every other prize on the wheel.
func ResultText(prizes []Prize, idx int, separator string) string {
	if idx < 0 || idx >= len(prizes) {
		return ""
	}
	won := prizes[idx]
	if !won.IsGrand() {
		return won.Text
	}
	texts := make([]string, 0, len(prizes)-1)
	for i, p := range prizes {
		if i == idx {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, separator)
}

// GrandIndex returns the position of the grand prize, or -1.
func GrandIndex(prizes []Prize) int {
	for i, p := range prizes {
		if p.IsGrand() {
			return i
		}
	}
	return -1
}

func truncateLabel(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
