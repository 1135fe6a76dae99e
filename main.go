package main

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"gridvm/grid"
)

// runPlane drives the plane for the given number of cycles and
// recovers from any panic raised deep in node execution, the way the
// teacher lineage's RunProgram insulates the caller from the
// interpreter's internals.
func runPlane(p *grid.Plane, cycles int) (faultErr error) {
	defer func() {
		if r := recover(); r != nil {
			faultErr = fmt.Errorf("plane: recovered from panic: %v", r)
		}
	}()

	for c := 0; c < cycles; c++ {
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// buildDemoProgram wires a three-node relay: node 0 sends a literal
// right, node 1 forwards it right again, node 2 lands it in ACC.
func buildDemoProgram(p *grid.Plane) error {
	steps := []struct {
		node, slot int
		instr      grid.Instruction
	}{
		{0, 0, grid.MovInstr(grid.LiteralSource(42), grid.PortDest(grid.Right))},
		{0, 1, grid.AddInstr(grid.RegisterSource(grid.RegNil))},
		{1, 0, grid.MovInstr(grid.PortSource(grid.Left), grid.PortDest(grid.Right))},
		{2, 0, grid.MovInstr(grid.PortSource(grid.Left), grid.RegisterDest(grid.RegAcc))},
	}
	for _, s := range steps {
		instr := s.instr
		if err := p.Load(s.node, s.slot, &instr); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	plane := grid.NewPlane()
	if err := buildDemoProgram(plane); err != nil {
		glog.Exitf("failed to load demo program: %v", err)
	}

	if err := runPlane(plane, 3); err != nil {
		glog.Errorf("plane halted: %v", err)
		return
	}

	snap := plane.Inspect()
	for i, n := range snap.Nodes {
		fmt.Printf("node %2d: acc=%d bak=%d ip=%d mode=%s\n", i, n.Acc, n.Bak, n.IP, n.Mode)
	}
}
