package compose

import (
	"sync"
)

// ownershipGraph records which node owns which: containers own components,
// and components own the containers constructed while they were being built.
type ownershipGraph struct {
	children map[ID][]ID
	parent   map[ID]ID
	mu       sync.RWMutex
}

func newOwnershipGraph() *ownershipGraph {
	return &ownershipGraph{
		children: make(map[ID][]ID),
		parent:   make(map[ID]ID),
	}
}

// AddEdge records parent as the owner of child
func (g *ownershipGraph) AddEdge(parent, child ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.parent[child]; ok && old != parent {
		g.children[old] = removeElement(g.children[old], child)
	}
	g.children[parent] = appendUnique(g.children[parent], child)
	g.parent[child] = parent
}

// Remove drops node and the edges touching it. Its children become roots.
func (g *ownershipGraph) Remove(node ID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.parent[node]; ok {
		g.children[p] = removeElement(g.children[p], node)
		if len(g.children[p]) == 0 {
			delete(g.children, p)
		}
		delete(g.parent, node)
	}
	for _, c := range g.children[node] {
		delete(g.parent, c)
	}
	delete(g.children, node)
}

// Rename moves node's edges to the identity to. Edges already recorded for
// to are kept.
func (g *ownershipGraph) Rename(from, to ID) {
	if from == to {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.parent[from]; ok {
		g.children[p] = removeElement(g.children[p], from)
		g.children[p] = appendUnique(g.children[p], to)
		g.parent[to] = p
		delete(g.parent, from)
	}
	for _, c := range g.children[from] {
		g.children[to] = appendUnique(g.children[to], c)
		g.parent[c] = to
	}
	delete(g.children, from)
}

// Children returns the direct children of node
func (g *ownershipGraph) Children(node ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if kids, ok := g.children[node]; ok {
		result := make([]ID, len(kids))
		copy(result, kids)
		return result
	}
	return nil
}

// Parent returns the owner of node
func (g *ownershipGraph) Parent(node ID) (ID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.parent[node]
	return p, ok
}

// Descendants walks the graph iteratively and returns everything owned,
// directly or not, by start
func (g *ownershipGraph) Descendants(start ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stack := make([]ID, 0, 32)
	stack = append(stack, start)

	out := make([]ID, 0, 32)
	visited := make(map[ID]bool, 32)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true

		if current != start {
			out = append(out, current)
		}
		for _, c := range g.children[current] {
			if !visited[c] {
				stack = append(stack, c)
			}
		}
	}

	return out
}

func appendUnique[T comparable](slice []T, item T) []T {
	for _, existing := range slice {
		if existing == item {
			return slice
		}
	}
	return append(slice, item)
}

func removeElement[T comparable](slice []T, item T) []T {
	for i, existing := range slice {
		if existing == item {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}
