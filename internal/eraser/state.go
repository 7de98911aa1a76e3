package eraser

import (
	"github.com/sirupsen/logrus"
)

// State is a step of one EraseAnswers call.
type State int

const (
	Idle State = iota
	Detecting
	Masking
	Inpainting
	Completed
	Failed
)

var stateNames = [...]string{"idle", "detecting", "masking", "inpainting", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool { return s == Completed || s == Failed }

// Transition is one state change of a call.
type Transition struct {
	RequestID string
	From, To  State
	// Err is set when To is Failed.
	Err error
}

// Observer receives every transition of every call. It runs synchronously
// on the calling goroutine.
type Observer func(Transition)

// run is the state of a single EraseAnswers call.
type run struct {
	id       string
	state    State
	log      logrus.FieldLogger
	observer Observer
}

func (r *run) to(s State) {
	r.emit(Transition{RequestID: r.id, From: r.state, To: s})
	r.log.WithFields(logrus.Fields{"from": r.state.String(), "to": s.String()}).Debug("state changed")
	r.state = s
}

// fail moves the call to Failed and returns err unchanged.
func (r *run) fail(err error) error {
	r.emit(Transition{RequestID: r.id, From: r.state, To: Failed, Err: err})
	r.log.WithError(err).WithField("stage", r.state.String()).Warn("erasure failed")
	r.state = Failed
	return err
}

func (r *run) emit(t Transition) {
	if r.observer != nil {
		r.observer(t)
	}
}
