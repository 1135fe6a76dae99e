package grid

import (
	"fmt"

	"github.com/golang/glog"
)

// Plane owns the twelve nodes and the port grid between them, and
// drives exactly one cycle per Step call. It is the only thing
// permitted to mutate the port grid (§5 of the source design: node
// code never touches a mailbox directly).
type Plane struct {
	nodes [NumNodes]*Node
	ports portGrid

	halted bool
	err    error
}

// NewPlane constructs a blank plane: every node has acc=bak=0, ip=0,
// mode=Run, empty buffers, and an empty program store; every mailbox
// is empty.
func NewPlane() *Plane {
	p := &Plane{}
	for i := range p.nodes {
		p.nodes[i] = newNode()
	}
	return p
}

// Load writes (or, with instr == nil, clears) one instruction slot.
func (p *Plane) Load(node, slot int, instr *Instruction) error {
	if node < 0 || node >= NumNodes {
		return fmt.Errorf("grid: node index %d out of range [0,%d)", node, NumNodes)
	}
	if slot < 0 || slot >= InstructionsPerNode {
		return fmt.Errorf("grid: slot index %d out of range [0,%d)", slot, InstructionsPerNode)
	}

	n := p.nodes[node]
	wasEmpty := n.instructions[slot].Op == OpNone

	if instr == nil {
		n.instructions[slot] = Instruction{}
		if !wasEmpty {
			n.loaded--
		}
		return nil
	}

	isEmpty := instr.Op == OpNone
	n.instructions[slot] = *instr
	switch {
	case wasEmpty && !isEmpty:
		n.loaded++
	case !wasEmpty && isEmpty:
		n.loaded--
	}
	return nil
}

// Halted reports whether a prior Step call faulted; the plane never
// re-executes once halted.
func (p *Plane) Halted() bool { return p.halted }

// Err returns the fault that halted the plane, or nil.
func (p *Plane) Err() error { return p.err }

// Step advances the plane by exactly one cycle: fetch/pre-read/step
// for every node in ascending index order, then the two deferred
// sweeps (write flush, writer unblock) in that exact order.
func (p *Plane) Step() error {
	if p.halted {
		return ErrHalted
	}

	var queuedWrites [NumEdges]Word
	var writeQueued [NumEdges]bool
	var clearWrites []int

	for i := 0; i < NumNodes; i++ {
		n := p.nodes[i]

		n.fetch()

		if err := n.preRead(); err != nil {
			return p.fault(i, err)
		}

		if n.mode == ModeRead && !n.readBufValid {
			edge := edgeFor(i, n.direction)
			if v, ok := p.ports.take(edge); ok {
				n.readBuf = v
				n.readBufValid = true
				if neighbor, hasNeighbor := neighborFor(i, n.direction); hasNeighbor {
					clearWrites = append(clearWrites, neighbor)
				}
			}
		}

		jumped, err := n.step()
		if err != nil {
			return p.fault(i, err)
		}

		switch {
		case n.mode == ModeRun && !jumped:
			n.advanceIP()
		case n.mode == ModeWrite && n.writeBufValid:
			edge := edgeFor(i, n.direction)
			if writeQueued[edge] {
				return p.fault(i, ErrWriteDeadlock)
			}
			queuedWrites[edge] = n.writeBuf
			writeQueued[edge] = true
			n.writeBufValid = false
		}
	}

	// Write flush: queued writes become visible to readers starting
	// next cycle, never this one.
	for edge := 0; edge < NumEdges; edge++ {
		if !writeQueued[edge] {
			continue
		}
		if !p.ports.put(edge, queuedWrites[edge]) {
			return p.fault(-1, ErrWriteDeadlock)
		}
	}

	// Writer unblock: only neighbors whose value was actually taken
	// this cycle are promoted back to Run.
	for _, neighbor := range clearWrites {
		w := p.nodes[neighbor]
		w.mode = ModeRun
		w.advanceIP()
	}

	return nil
}

func (p *Plane) fault(node int, err error) error {
	wrapped := faultAt(node, err)
	p.halted = true
	p.err = wrapped
	glog.Warningf("plane halted: %v", wrapped)
	return wrapped
}

// NodeSnapshot is a read-only view of one node's externally visible
// state, for tests and any future front end.
type NodeSnapshot struct {
	Acc       Word
	Bak       Word
	IP        uint8
	Mode      Mode
	Direction Direction
}

// Snapshot is a read-only view of the whole plane, matching
// plane_inspect in the source design.
type Snapshot struct {
	Nodes [NumNodes]NodeSnapshot
	Ports [NumEdges]PortSnapshot
}

// PortSnapshot is a read-only view of one mailbox.
type PortSnapshot struct {
	Value    Word
	Occupied bool
}

// Inspect takes a read-only snapshot of the whole plane.
func (p *Plane) Inspect() Snapshot {
	var snap Snapshot
	for i, n := range p.nodes {
		snap.Nodes[i] = NodeSnapshot{
			Acc:       n.acc,
			Bak:       n.bak,
			IP:        n.ip,
			Mode:      n.mode,
			Direction: n.direction,
		}
	}
	for e := 0; e < NumEdges; e++ {
		snap.Ports[e] = PortSnapshot{
			Value:    p.ports.value[e],
			Occupied: p.ports.occupied[e],
		}
	}
	return snap
}
