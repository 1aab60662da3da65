package ir

// DomTree holds immediate dominators for the blocks reachable from entry
type DomTree struct {
	idom  map[BlockID]BlockID
	entry BlockID
}

// Dominators computes the dominator tree of fn with the iterative
// algorithm of Cooper, Harvey and Kennedy over reverse postorder.
func Dominators(fn *Function) *DomTree {
	entry := fn.Entry()
	t := &DomTree{idom: make(map[BlockID]BlockID), entry: entry}
	if entry == 0 {
		return t
	}

	rpo := reversePostorder(fn, entry)
	order := make(map[BlockID]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}
	preds := fn.Predecessors()

	t.idom[entry] = entry
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			var newIdom BlockID
			for _, p := range preds[b] {
				if _, ok := t.idom[p]; !ok {
					continue // unprocessed or unreachable
				}
				if newIdom == 0 {
					newIdom = p
				} else {
					newIdom = t.intersect(p, newIdom, order)
				}
			}
			if newIdom != 0 && t.idom[b] != newIdom {
				t.idom[b] = newIdom
				changed = true
			}
		}
	}
	return t
}

func (t *DomTree) intersect(a, b BlockID, order map[BlockID]int) BlockID {
	for a != b {
		for order[a] > order[b] {
			a = t.idom[a]
		}
		for order[b] > order[a] {
			b = t.idom[b]
		}
	}
	return a
}

func reversePostorder(fn *Function, entry BlockID) []BlockID {
	visited := make(map[BlockID]bool)
	var post []BlockID
	var walk func(b BlockID)
	walk = func(b BlockID) {
		visited[b] = true
		for _, s := range fn.Successors(b) {
			if !visited[s] {
				walk(s)
			}
		}
		post = append(post, b)
	}
	walk(entry)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Idom returns the immediate dominator of b. The entry is its own idom.
func (t *DomTree) Idom(b BlockID) (BlockID, bool) {
	d, ok := t.idom[b]
	return d, ok
}

// Dominates reports whether a dominates b. Unreachable blocks are
// dominated by nothing but themselves.
func (t *DomTree) Dominates(a, b BlockID) bool {
	if a == b {
		return true
	}
	if _, ok := t.idom[b]; !ok {
		return false
	}
	for b != t.entry {
		b = t.idom[b]
		if b == a {
			return true
		}
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a != b
func (t *DomTree) StrictlyDominates(a, b BlockID) bool {
	return a != b && t.Dominates(a, b)
}
