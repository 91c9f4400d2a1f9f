package session

import (
	"github.com/livetemplate/newyear/internal/progress"
	"github.com/livetemplate/newyear/internal/steps"
	"github.com/livetemplate/newyear/internal/wheel"
)

// View is everything a client needs to draw the session
type View struct {
	progress.Snapshot
	Steps    steps.View    `json:"steps"`
	Prizes   []wheel.Prize `json:"prizes"`
	Spinning bool          `json:"spinning"`
	Rotation float64       `json:"rotation"`
	Spin     *wheel.Spin   `json:"spin,omitempty"`
	Result   *wheel.Result `json:"result,omitempty"`
}

// View returns the current view
func (s *Session) View() View {
	v := View{
		Snapshot: s.state.Snapshot(),
		Steps:    s.gate.View(),
		Spinning: s.wheel.Spinning(),
		Rotation: s.wheel.Rotation(),
	}
	v.Prizes = s.catalog().Prizes(v.Wishes)

	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Spinning && s.lastSpin != nil {
		spin := *s.lastSpin
		v.Spin = &spin
	}
	if s.result != nil {
		res := *s.result
		v.Result = &res
	}
	return v
}
