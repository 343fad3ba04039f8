package screening

import (
	"strings"

	"github.com/phpscreening/screener/internal/models"
)

// Action is what a key press asks the session to do.
type Action string

const (
	ActionNone   Action = "none"
	ActionKeep   Action = "keep"
	ActionReject Action = "reject"
	ActionUndo   Action = "undo"
)

// KeyEvent is a keyboard press forwarded from the UI.
type KeyEvent struct {
	Key          string `json:"key"`
	Ctrl         bool   `json:"ctrl"`
	Meta         bool   `json:"meta"`
	InputFocused bool   `json:"input_focused"`
}

// ActionForKey maps a key press onto an action. Presses while a text input
// has focus are ignored.
func ActionForKey(ev KeyEvent) Action {
	if ev.InputFocused {
		return ActionNone
	}
	switch {
	case ev.Key == "ArrowRight":
		return ActionKeep
	case ev.Key == "ArrowLeft":
		return ActionReject
	case (ev.Ctrl || ev.Meta) && strings.EqualFold(ev.Key, "z"):
		return ActionUndo
	default:
		return ActionNone
	}
}

// HandleKey applies a key press. Nothing happens while the registry is empty
// or no candidate is focused.
func (s *Session) HandleKey(ev KeyEvent) (Action, NavResult) {
	action := ActionForKey(ev)
	if action == ActionNone {
		return action, NavResult{Focus: s.focusIndex()}
	}

	s.mu.Lock()
	idle := len(s.candidates) == 0 || s.focus == -1
	focus := s.focus
	s.mu.Unlock()
	if idle {
		return ActionNone, NavResult{Focus: focus}
	}

	switch action {
	case ActionKeep:
		return action, s.Judge(models.StatusKept)
	case ActionReject:
		return action, s.Judge(models.StatusRejected)
	default:
		return action, s.Undo()
	}
}

func (s *Session) focusIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}
