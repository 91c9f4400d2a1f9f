package session

import (
	"github.com/livetemplate/newyear/internal/progress"
)

// Action names accepted by Dispatch
const (
	ActionLogin       = "login"
	ActionShred       = "shred"
	ActionLightLetter = "light_letter"
	ActionAddWish     = "add_wish"
	ActionProceed     = "proceed"
	ActionSpin        = "spin"
	ActionSettle      = "settle"
	ActionLight       = "light"
	ActionJump        = "jump"
	ActionDebugJump   = "debug_jump"
)

// Action is a player input. Only the fields the action needs are read.
type Action struct {
	Name string `json:"action"`
	Data Params `json:"data"`
}

// Params carries action arguments
type Params struct {
	Name   string `json:"name,omitempty"`   // login
	Index  int    `json:"index,omitempty"`  // shred, light_letter
	Text   string `json:"text,omitempty"`   // add_wish
	Target string `json:"target,omitempty"` // light
	Step   int    `json:"step,omitempty"`   // jump, debug_jump
}

// Dispatch applies a. It reports whether the action changed anything;
// actions that do not apply to the current step are ignored, not errors.
// Errors are limited to the login gate and unknown actions.
func (s *Session) Dispatch(a Action) (bool, error) {
	if a.Name == ActionLogin {
		return s.Login(a.Data.Name)
	}
	if !s.LoggedIn() {
		return false, ErrNotLoggedIn
	}

	switch a.Name {
	case ActionShred:
		return s.gate.Shred(a.Data.Index), nil
	case ActionLightLetter:
		return s.gate.LightLetter(a.Data.Index), nil
	case ActionAddWish:
		return s.AddWish(a.Data.Text), nil
	case ActionProceed:
		return s.gate.Proceed(), nil
	case ActionSpin:
		_, ok := s.Spin()
		return ok, nil
	case ActionSettle:
		_, ok := s.Settle()
		return ok, nil
	case ActionLight:
		return s.gate.Light(a.Data.Target), nil
	case ActionJump:
		return s.gate.Jump(progress.Step(a.Data.Step)), nil
	case ActionDebugJump:
		return s.gate.DebugJump(progress.Step(a.Data.Step)), nil
	default:
		return false, &UnknownActionError{Action: a.Name}
	}
}
