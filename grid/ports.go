package grid

// portGrid is the array of one-slot mailboxes indexed by edge, not by
// node. It never mutates on its own - only Plane.Step touches it, and
// only between nodes (take) or after all nodes have run (put).
type portGrid struct {
	value    [NumEdges]Word
	occupied [NumEdges]bool
}

// take empties the mailbox at edge and returns its value, or
// ok=false if it was already empty. Matches spec.md's
// "take-if-present".
func (g *portGrid) take(edge int) (Word, bool) {
	if !g.occupied[edge] {
		return 0, false
	}
	v := g.value[edge]
	g.occupied[edge] = false
	return v, true
}

// put fills the mailbox at edge, reporting ok=false if it was already
// occupied - the caller treats that as a write deadlock. Matches
// spec.md's "put-if-empty".
func (g *portGrid) put(edge int, v Word) bool {
	if g.occupied[edge] {
		return false
	}
	g.value[edge] = v
	g.occupied[edge] = true
	return true
}
