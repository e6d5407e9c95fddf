package rates

import (
	"github.com/ward-analytics/galactus/internal/uniswap"
)

// tokenGraph is an undirected graph whose nodes are token addresses and
// whose edges are observed swaps. Node IDs are assigned in insertion order
// so traversal is deterministic for identical input.
type tokenGraph struct {
	ids       map[string]int
	addresses []string
	adjacency [][]int

	// edges[a][b] holds the first swap observed between nodes a and b.
	edges map[[2]int]uniswap.SwapEvent
}

func newTokenGraph() *tokenGraph {
	return &tokenGraph{
		ids:   make(map[string]int),
		edges: make(map[[2]int]uniswap.SwapEvent),
	}
}

func (g *tokenGraph) node(address string) int {
	if id, ok := g.ids[address]; ok {
		return id
	}
	id := len(g.addresses)
	g.ids[address] = id
	g.addresses = append(g.addresses, address)
	g.adjacency = append(g.adjacency, nil)
	return id
}

// addSwap inserts an edge for the swap between its two tokens. Later swaps
// between the same pair do not replace the first edge.
func (g *tokenGraph) addSwap(swap uniswap.SwapEvent) {
	a := g.node(swap.Token0)
	b := g.node(swap.Token1)
	if a == b {
		return
	}

	key := edgeKey(a, b)
	if _, ok := g.edges[key]; !ok {
		g.adjacency[a] = append(g.adjacency[a], b)
		g.adjacency[b] = append(g.adjacency[b], a)
		g.edges[key] = swap
	}
}

func (g *tokenGraph) lookup(address string) (int, bool) {
	id, ok := g.ids[address]
	return id, ok
}

func (g *tokenGraph) edge(a, b int) (uniswap.SwapEvent, bool) {
	swap, ok := g.edges[edgeKey(a, b)]
	return swap, ok
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// shortestPaths returns every shortest path from source to target as node
// ID sequences, in deterministic order. Returns nil when target is
// unreachable. A trivial source==target query yields a single-node path.
func (g *tokenGraph) shortestPaths(source, target int) [][]int {
	if source == target {
		return [][]int{{source}}
	}

	// BFS layering with predecessor sets.
	dist := make([]int, len(g.addresses))
	for i := range dist {
		dist[i] = -1
	}
	preds := make([][]int, len(g.addresses))

	queue := []int{source}
	dist[source] = 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if dist[target] != -1 && dist[current] >= dist[target] {
			break
		}
		for _, next := range g.adjacency[current] {
			switch {
			case dist[next] == -1:
				dist[next] = dist[current] + 1
				preds[next] = append(preds[next], current)
				queue = append(queue, next)
			case dist[next] == dist[current]+1:
				preds[next] = append(preds[next], current)
			}
		}
	}

	if dist[target] == -1 {
		return nil
	}

	// Expand predecessor DAG into explicit paths, target back to source.
	var paths [][]int
	var expand func(node int, suffix []int)
	expand = func(node int, suffix []int) {
		suffix = append([]int{node}, suffix...)
		if node == source {
			path := make([]int, len(suffix))
			copy(path, suffix)
			paths = append(paths, path)
			return
		}
		for _, pred := range preds[node] {
			expand(pred, suffix)
		}
	}
	expand(target, nil)

	return paths
}

// pathRate multiplies the swap ratios along a node path. Traversing an
// edge in the direction of its swap (token0 -> token1) multiplies by the
// ratio; the reverse direction divides.
func (g *tokenGraph) pathRate(path []int) (float64, bool) {
	rate := 1.0
	for i := 0; i < len(path)-1; i++ {
		swap, ok := g.edge(path[i], path[i+1])
		if !ok {
			return 0, false
		}
		if g.addresses[path[i]] == swap.Token0 {
			rate *= swap.Ratio()
		} else {
			rate /= swap.Ratio()
		}
	}
	return rate, true
}
