package session

import "fmt"

// Action is one operator-triggered request against the session. The
// variants form a closed set so the dispatcher's type switch covers every
// action at compile time instead of matching on strings.
type Action interface {
	isAction()
}

// Connect binds the session to a serial port.
type Connect struct {
	Port string
}

// Lock submits the session configuration.
type Lock struct {
	Config Config
}

// Initialize triggers the sys_init command.
type Initialize struct{}

// Measure triggers the measure command.
type Measure struct{}

// Visualize re-renders the existing measurement result.
type Visualize struct{}

// Save persists the session and ends it.
type Save struct{}

// Terminate ends the session without persisting.
type Terminate struct{}

func (Connect) isAction()    {}
func (Lock) isAction()       {}
func (Initialize) isAction() {}
func (Measure) isAction()    {}
func (Visualize) isAction()  {}
func (Save) isAction()       {}
func (Terminate) isAction()  {}

// Dispatch applies one action to the session. Guards inside each transition
// decide whether the action is legal in the current state.
func (s *Session) Dispatch(action Action) error {
	switch a := action.(type) {
	case Connect:
		return s.Connect(a.Port)
	case Lock:
		return s.Lock(a.Config)
	case Initialize:
		return s.Initialize()
	case Measure:
		return s.Measure()
	case Visualize:
		return s.Visualize()
	case Save:
		_, err := s.Save()
		return err
	case Terminate:
		return s.Terminate()
	default:
		return fmt.Errorf("unknown action %T", action)
	}
}
