package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, p *Plane, node, slot int, instr Instruction) {
	t.Helper()
	require.NoError(t, p.Load(node, slot, &instr))
}

func stepN(t *testing.T, p *Plane, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, p.Step())
	}
}

func TestBasicAdd(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, AddInstr(LiteralSource(42)))
	load(t, p, 0, 1, AddInstr(RegisterSource(RegAcc)))

	stepN(t, p, 2)

	assert.Equal(t, Word(84), p.nodes[0].acc)
}

func TestBasicSav(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, AddInstr(LiteralSource(42)))
	load(t, p, 0, 1, SavInstr())

	stepN(t, p, 2)

	assert.Equal(t, Word(42), p.nodes[0].bak)
}

func TestBasicSwp(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, AddInstr(LiteralSource(42)))
	load(t, p, 0, 1, SavInstr())
	load(t, p, 0, 2, MovInstr(LiteralSource(13), RegisterDest(RegAcc)))
	load(t, p, 0, 3, SwpInstr())

	stepN(t, p, 4)

	assert.Equal(t, Word(42), p.nodes[0].acc)
	assert.Equal(t, Word(13), p.nodes[0].bak)
}

func TestBasicPortMov(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, MovInstr(LiteralSource(42), PortDest(Right)))
	load(t, p, 0, 1, MovInstr(PortSource(Right), RegisterDest(RegAcc)))
	load(t, p, 1, 0, MovInstr(PortSource(Left), RegisterDest(RegAcc)))
	load(t, p, 1, 1, MovInstr(LiteralSource(13), PortDest(Left)))

	stepN(t, p, 1)
	assert.Equal(t, ModeWrite, p.nodes[0].mode)
	assert.Equal(t, ModeRead, p.nodes[1].mode)

	stepN(t, p, 1)
	assert.Equal(t, ModeRun, p.nodes[0].mode)
	assert.Equal(t, ModeRun, p.nodes[1].mode)
	assert.Equal(t, Word(42), p.nodes[1].acc)

	stepN(t, p, 2)
	assert.Equal(t, Word(13), p.nodes[0].acc)
}

func TestReadAdd(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, AddInstr(PortSource(Right)))
	load(t, p, 1, 0, MovInstr(LiteralSource(5000), PortDest(Left)))

	stepN(t, p, 2)

	assert.Equal(t, Word(5000), p.nodes[0].acc)
}

func TestPortMovBack(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, MovInstr(LiteralSource(13), PortDest(Right)))
	load(t, p, 0, 1, MovInstr(PortSource(Right), RegisterDest(RegAcc)))
	load(t, p, 1, 0, MovInstr(PortSource(Left), PortDest(Left)))

	stepN(t, p, 4)

	assert.Equal(t, Word(13), p.nodes[0].acc)
}

func TestWriteDeadlock(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, MovInstr(LiteralSource(1), PortDest(Right)))
	load(t, p, 1, 0, MovInstr(LiteralSource(2), PortDest(Left)))

	err := p.Step()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteDeadlock)
	assert.True(t, p.Halted())
}

// TestPortMovThreeNodes is grounded on original_source's
// port_mov_three_nodes: a value relayed through a middle node arrives
// bit-identical at the far end, and every node ends the run in Run.
func TestPortMovThreeNodes(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, MovInstr(LiteralSource(42), PortDest(Right)))
	load(t, p, 0, 1, AddInstr(RegisterSource(RegNil)))
	load(t, p, 1, 0, MovInstr(PortSource(Left), PortDest(Right)))
	load(t, p, 2, 0, MovInstr(PortSource(Left), RegisterDest(RegAcc)))

	stepN(t, p, 3)

	assert.Equal(t, Word(42), p.nodes[2].acc)
	for i := 0; i < 3; i++ {
		assert.Equal(t, ModeRun, p.nodes[i].mode, "node %d should have settled back to Run", i)
	}
}

func TestIPNeverLeavesValidRange(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, JroInstr(LiteralSource(1000)))

	require.NoError(t, p.Step())

	ip := p.nodes[0].ip
	assert.True(t, ip >= 0 && ip < InstructionsPerNode)
}

func TestIPFrozenWhileStalled(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, AddInstr(PortSource(Up))) // node 0 has no Up neighbor, stalls forever

	require.NoError(t, p.Step())
	ipAfterFirst := p.nodes[0].ip
	assert.Equal(t, ModeRead, p.nodes[0].mode)

	require.NoError(t, p.Step())
	assert.Equal(t, ipAfterFirst, p.nodes[0].ip)
	assert.Equal(t, ModeRead, p.nodes[0].mode)
}

func TestMailboxHoldsAtMostOneValue(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, MovInstr(LiteralSource(7), PortDest(Right)))

	stepN(t, p, 1)

	occupiedCount := 0
	for _, occ := range p.ports.occupied {
		if occ {
			occupiedCount++
		}
	}
	assert.Equal(t, 1, occupiedCount)
}

func TestLoadRejectsOutOfRangeIndices(t *testing.T) {
	p := NewPlane()
	instr := SavInstr()
	assert.Error(t, p.Load(-1, 0, &instr))
	assert.Error(t, p.Load(NumNodes, 0, &instr))
	assert.Error(t, p.Load(0, -1, &instr))
	assert.Error(t, p.Load(0, InstructionsPerNode, &instr))
}

func TestStepAfterFaultReturnsErrHalted(t *testing.T) {
	p := NewPlane()
	load(t, p, 0, 0, HcfInstr())

	require.Error(t, p.Step())
	assert.True(t, p.Halted())

	err := p.Step()
	assert.ErrorIs(t, err, ErrHalted)
}
