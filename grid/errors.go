package grid

import (
	"errors"
	"fmt"
)

// Sentinel errors, following the teacher's vm/vm.go convention of
// package-level sentinel error variables rather than ad hoc strings.
var (
	// ErrProgramFault is returned when a node executes HCF.
	ErrProgramFault = errors.New("program fault: HCF executed")

	// ErrWriteDeadlock is returned when a queued write flushes onto a
	// mailbox that is already full.
	ErrWriteDeadlock = errors.New("write deadlock: mailbox already occupied")

	// ErrLastBeforeFirstUse is returned when a node resolves LAST
	// before ever having resolved a cardinal direction itself.
	ErrLastBeforeFirstUse = errors.New("LAST used before any port access")

	// ErrHalted is returned by Step once the plane has already
	// faulted; it never re-executes a halted plane.
	ErrHalted = errors.New("plane already halted")
)

// FaultError wraps a sentinel error with the node index that raised
// it, the way formatInstructionStr in the teacher's vm/vm.go
// annotates an error with the failing instruction's address.
type FaultError struct {
	Node int
	Err  error
}

func (e *FaultError) Error() string {
	if e.Node < 0 {
		return fmt.Sprintf("plane: %v", e.Err)
	}
	return fmt.Sprintf("node %d: %v", e.Node, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

func faultAt(node int, err error) error {
	return &FaultError{Node: node, Err: err}
}
