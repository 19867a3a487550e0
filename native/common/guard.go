package common

import (
	"errors"
	"sync/atomic"
)

var (
	ErrModulePaused  = errors.New("module paused")
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView reports whether a named module has been administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view never pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// ReentrancyGuard is a call-in-progress flag wrapped around state-changing
// operations. A connector callback that re-enters a guarded operation while
// one is already running observes the flag and is rejected instead of
// corrupting ledger state. The zero value is ready to use.
type ReentrancyGuard struct {
	entered atomic.Bool
}

// Enter claims the guard. It fails with ErrReentrantCall when another guarded
// operation is still in flight.
func (g *ReentrancyGuard) Enter() error {
	if !g.entered.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// Exit releases the guard. It must run on every exit path, including errors.
func (g *ReentrancyGuard) Exit() {
	g.entered.Store(false)
}
