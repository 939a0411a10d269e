package game

import "errors"

// Status 表示对局的生命周期状态
type Status int

const (
	StatusAwaitingStart Status = iota
	StatusInProgress
	StatusFinished
	StatusAborted
)

// ErrTransitionNotAllowed is returned when a status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// transitions maps each status to the set of statuses it may move to.
// Finished and Aborted are terminal.
var transitions = map[Status][]Status{
	StatusAwaitingStart: {StatusInProgress},
	StatusInProgress:    {StatusFinished, StatusAborted},
	StatusFinished:      {},
	StatusAborted:       {},
}

func (s Status) String() string {
	switch s {
	case StatusAwaitingStart:
		return "awaitingStart"
	case StatusInProgress:
		return "inProgress"
	case StatusFinished:
		return "finished"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves this status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) canTransition(to Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}
