package rates

import (
	"math/big"
	"testing"

	"github.com/ward-analytics/galactus/internal/uniswap"
)

func swap(token0, token1 string, amount0, amount1 int64) uniswap.SwapEvent {
	return uniswap.SwapEvent{
		Token0:  token0,
		Token1:  token1,
		Amount0: big.NewInt(amount0),
		Amount1: big.NewInt(amount1),
	}
}

func TestShortestPathsDirect(t *testing.T) {
	g := newTokenGraph()
	g.addSwap(swap("0xa", "0xb", 1, 2))

	a, _ := g.lookup("0xa")
	b, _ := g.lookup("0xb")

	paths := g.shortestPaths(a, b)
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	if len(paths[0]) != 2 || paths[0][0] != a || paths[0][1] != b {
		t.Fatalf("unexpected path %v", paths[0])
	}
}

func TestShortestPathsPrefersFewerHops(t *testing.T) {
	g := newTokenGraph()
	// Two-hop route a-x-b and a direct a-b edge.
	g.addSwap(swap("0xa", "0xx", 1, 1))
	g.addSwap(swap("0xx", "0xb", 1, 1))
	g.addSwap(swap("0xa", "0xb", 1, 3))

	a, _ := g.lookup("0xa")
	b, _ := g.lookup("0xb")

	paths := g.shortestPaths(a, b)
	if len(paths) != 1 {
		t.Fatalf("expected only the direct path, got %d paths", len(paths))
	}
	if len(paths[0]) != 2 {
		t.Fatalf("expected 2-node path, got %v", paths[0])
	}
}

func TestShortestPathsAllEnumerated(t *testing.T) {
	g := newTokenGraph()
	// Two distinct 2-hop routes between a and b.
	g.addSwap(swap("0xa", "0xx", 1, 1))
	g.addSwap(swap("0xx", "0xb", 1, 1))
	g.addSwap(swap("0xa", "0xy", 1, 1))
	g.addSwap(swap("0xy", "0xb", 1, 1))

	a, _ := g.lookup("0xa")
	b, _ := g.lookup("0xb")

	paths := g.shortestPaths(a, b)
	if len(paths) != 2 {
		t.Fatalf("expected 2 shortest paths, got %d", len(paths))
	}
	for _, path := range paths {
		if len(path) != 3 {
			t.Fatalf("expected 3-node paths, got %v", path)
		}
	}
}

func TestShortestPathsDeterministic(t *testing.T) {
	build := func() *tokenGraph {
		g := newTokenGraph()
		g.addSwap(swap("0xa", "0xx", 1, 1))
		g.addSwap(swap("0xx", "0xb", 1, 1))
		g.addSwap(swap("0xa", "0xy", 1, 1))
		g.addSwap(swap("0xy", "0xb", 1, 1))
		return g
	}

	g1, g2 := build(), build()
	a, _ := g1.lookup("0xa")
	b, _ := g1.lookup("0xb")

	paths1 := g1.shortestPaths(a, b)
	paths2 := g2.shortestPaths(a, b)
	if len(paths1) != len(paths2) {
		t.Fatalf("path counts differ: %d vs %d", len(paths1), len(paths2))
	}
	for i := range paths1 {
		for j := range paths1[i] {
			if paths1[i][j] != paths2[i][j] {
				t.Fatalf("paths differ at %d: %v vs %v", i, paths1[i], paths2[i])
			}
		}
	}
}

func TestShortestPathsUnreachable(t *testing.T) {
	g := newTokenGraph()
	g.addSwap(swap("0xa", "0xb", 1, 1))
	g.addSwap(swap("0xc", "0xd", 1, 1))

	a, _ := g.lookup("0xa")
	c, _ := g.lookup("0xc")

	if paths := g.shortestPaths(a, c); paths != nil {
		t.Fatalf("expected no paths, got %v", paths)
	}
}

func TestPathRateDirections(t *testing.T) {
	g := newTokenGraph()
	// a -> b at ratio 2 (amount1/amount0), b -> c traversed against the
	// swap direction, swap ratio 4 so the reverse leg divides.
	g.addSwap(swap("0xa", "0xb", 100, 200))
	g.addSwap(swap("0xc", "0xb", 100, 400))

	a, _ := g.lookup("0xa")
	b, _ := g.lookup("0xb")
	c, _ := g.lookup("0xc")

	rate, ok := g.pathRate([]int{a, b, c})
	if !ok {
		t.Fatal("expected edges along path")
	}
	if rate != 2.0/4.0 {
		t.Fatalf("expected 0.5, got %v", rate)
	}
}

func TestFirstSwapEdgeWins(t *testing.T) {
	g := newTokenGraph()
	g.addSwap(swap("0xa", "0xb", 1, 2))
	g.addSwap(swap("0xa", "0xb", 1, 9))

	a, _ := g.lookup("0xa")
	b, _ := g.lookup("0xb")

	edge, ok := g.edge(a, b)
	if !ok {
		t.Fatal("expected edge")
	}
	if edge.Ratio() != 2 {
		t.Fatalf("expected first swap's ratio 2, got %v", edge.Ratio())
	}
}
