package grid

import "github.com/golang/glog"

// Mode is the three-valued execution state of a node.
type Mode uint8

const (
	ModeRun Mode = iota
	ModeRead
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRun:
		return "Run"
	case ModeRead:
		return "Read"
	case ModeWrite:
		return "Write"
	default:
		return "?mode?"
	}
}

// Node is a register machine with a small program store, an
// accumulator, a backup register, an instruction pointer, a
// three-valued mode, and buffers for pending port traffic. It knows
// nothing of plane geometry - Plane.Step resolves direction into an
// edge index and drives the mailbox handshake around it.
type Node struct {
	acc Word
	bak Word

	ip      uint8
	current Instruction

	instructions [InstructionsPerNode]Instruction
	loaded       int

	readBuf      Word
	readBufValid bool

	writeBuf      Word
	writeBufValid bool

	direction Direction
	lastPort  Direction
	hasLast   bool

	mode Mode

	anyCursor int
}

func newNode() *Node {
	return &Node{}
}

// fetch is Phase A: latch the instruction at ip into current,
// skipping over empty slots (with wraparound) so that sparse programs
// behave as if the empty slots weren't there. A node whose program
// store holds nothing at all idles instead.
func (n *Node) fetch() {
	if n.loaded == 0 {
		n.current = Instruction{}
		return
	}
	for n.instructions[n.ip].Op == OpNone {
		n.ip = (n.ip + 1) % InstructionsPerNode
	}
	n.current = n.instructions[n.ip]
}

// preRead is Phase B: if the node is running and current reads from a
// port, signal intent by entering Read and resolving the direction
// (including LAST/ANY). The value itself is not fetched here - that
// happens when the scheduler tries the mailbox between Phase B and
// Phase C.
func (n *Node) preRead() error {
	if n.current.Op == OpNone || n.mode != ModeRun {
		return nil
	}
	src, ok := n.current.readSource()
	if !ok || src.Kind != SrcPort {
		return nil
	}
	dir, err := n.resolveDirection(src.Dir)
	if err != nil {
		return err
	}
	n.direction = dir
	n.recordPortUse(dir)
	n.mode = ModeRead
	return nil
}

// step is Phase C: dispatch on current. The returned bool reports
// whether the instruction set ip itself (a taken jump), in which case
// the scheduler must not also apply the normal +1 advance.
func (n *Node) step() (jumped bool, err error) {
	switch n.current.Op {
	case OpNone:
		return false, nil
	case OpAdd:
		n.execAddSub(n.current.Src, true)
		return false, nil
	case OpSub:
		n.execAddSub(n.current.Src, false)
		return false, nil
	case OpMov:
		return false, n.execMov(n.current.Src, n.current.Dst)
	case OpSav:
		n.bak = n.acc
		return false, nil
	case OpSwp:
		n.acc, n.bak = n.bak, n.acc
		return false, nil
	case OpNeg:
		n.acc = n.acc.Negate()
		return false, nil
	case OpJro:
		return n.execJro(n.current.Src)
	case OpJez:
		return n.execCondJump(func(acc Word) bool { return acc == 0 }, n.current.Src)
	case OpJnz:
		return n.execCondJump(func(acc Word) bool { return acc != 0 }, n.current.Src)
	case OpJgz:
		return n.execCondJump(func(acc Word) bool { return acc > 0 }, n.current.Src)
	case OpJlz:
		return n.execCondJump(func(acc Word) bool { return acc < 0 }, n.current.Src)
	case OpHcf:
		return false, ErrProgramFault
	default:
		return false, nil
	}
}

// advanceIP moves to the next slot with wraparound. Called by the
// scheduler whenever a node finishes a cycle in Run having not jumped
// itself, and again (on the writer's node) once a pending write is
// picked up by its reader.
func (n *Node) advanceIP() {
	n.ip = (n.ip + 1) % InstructionsPerNode
}

// resolveReadValue resolves a Source to a value. For a port source it
// consumes readBuf if present; ready=false means the port hasn't
// delivered a value yet and the instruction must be retried next
// cycle without making progress.
func (n *Node) resolveReadValue(src Source) (Word, bool) {
	switch src.Kind {
	case SrcPort:
		if !n.readBufValid {
			return 0, false
		}
		v := n.readBuf
		n.readBufValid = false
		return v, true
	case SrcRegister:
		return n.regValue(src.Reg), true
	default: // SrcLiteral
		return src.Lit, true
	}
}

func (n *Node) regValue(r Register) Word {
	if r == RegAcc {
		return n.acc
	}
	return 0 // NIL reads as zero
}

func (n *Node) execAddSub(src Source, isAdd bool) {
	val, ready := n.resolveReadValue(src)
	if !ready {
		return
	}
	if isAdd {
		n.acc = n.acc.SaturatingAdd(val)
	} else {
		n.acc = n.acc.SaturatingSub(val)
	}
	if src.Kind == SrcPort {
		n.mode = ModeRun
	}
}

func (n *Node) execMov(src Source, dst Dest) error {
	val, ready := n.resolveReadValue(src)
	if !ready {
		return nil
	}

	switch dst.Kind {
	case DstRegister:
		if dst.Reg == RegAcc {
			n.acc = val
		}
		n.mode = ModeRun
		return nil
	case DstPort:
		if n.mode == ModeWrite {
			// Already publishing from an earlier cycle of this same
			// instruction; nothing new to do until the reader picks
			// it up.
			return nil
		}
		dir, err := n.resolveDirection(dst.Dir)
		if err != nil {
			return err
		}
		n.writeBuf = val
		n.writeBufValid = true
		n.direction = dir
		n.recordPortUse(dir)
		n.mode = ModeWrite
		return nil
	default:
		return nil
	}
}

func (n *Node) execJro(src Source) (bool, error) {
	val, ready := n.resolveReadValue(src)
	if !ready {
		return false, nil
	}
	n.ip = clampIP(int(n.ip) + int(val))
	if src.Kind == SrcPort {
		n.mode = ModeRun
	}
	return true, nil
}

func (n *Node) execCondJump(pred func(Word) bool, src Source) (bool, error) {
	target, ready := n.resolveReadValue(src)
	if !ready {
		return false, nil
	}
	if src.Kind == SrcPort {
		n.mode = ModeRun
	}
	if !pred(n.acc) {
		return false, nil
	}
	n.ip = clampIP(int(target))
	return true, nil
}

func clampIP(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > InstructionsPerNode-1:
		return InstructionsPerNode - 1
	default:
		return uint8(v)
	}
}

// resolveDirection turns a (possibly pseudo-) direction into a
// cardinal one. ANY round-robins over [Up, Down, Left, Right]; LAST
// replays the most recently resolved cardinal direction, faulting if
// none has been resolved yet (see DESIGN.md Open Question decisions).
func (n *Node) resolveDirection(d Direction) (Direction, error) {
	switch d {
	case Any:
		resolved := cardinalOrder[n.anyCursor%len(cardinalOrder)]
		n.anyCursor++
		glog.V(2).Infof("ANY resolved to %s (cursor now %d)", resolved, n.anyCursor)
		n.recordPortUse(resolved)
		return resolved, nil
	case Last:
		if !n.hasLast {
			return 0, ErrLastBeforeFirstUse
		}
		glog.V(2).Infof("LAST resolved to %s", n.lastPort)
		return n.lastPort, nil
	default:
		n.recordPortUse(d)
		return d, nil
	}
}

func (n *Node) recordPortUse(d Direction) {
	n.lastPort = d
	n.hasLast = true
}
