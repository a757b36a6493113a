package engine

import (
	"math"
	"sort"

	"github.com/classpulse/sociogram/internal/models"
)

// network is an undirected neighbour view over the directed edge list plus
// per-student directed counters. Cost is O(E) to build; BFS is O(V+E).
type network struct {
	edges      []models.StudentRelationship
	adjacency  map[string]map[string]struct{}
	incoming   map[string]int
	outgoing   map[string]int
	reciprocal map[string]int
}

func buildNetwork(relationships []models.StudentRelationship) *network {
	n := &network{
		edges:      relationships,
		adjacency:  make(map[string]map[string]struct{}),
		incoming:   make(map[string]int),
		outgoing:   make(map[string]int),
		reciprocal: make(map[string]int),
	}
	for _, rel := range relationships {
		from, to := rel.FromStudentID, rel.ToStudentID
		if from == "" || to == "" || from == to {
			continue
		}
		n.link(from, to)
		n.link(to, from)
		n.outgoing[from]++
		n.incoming[to]++
		if rel.Reciprocal {
			n.reciprocal[from]++
			n.reciprocal[to]++
		}
	}
	return n
}

func (n *network) link(a, b string) {
	set, ok := n.adjacency[a]
	if !ok {
		set = make(map[string]struct{})
		n.adjacency[a] = set
	}
	set[b] = struct{}{}
}

// neighbors returns the distinct peers of id in sorted order.
func (n *network) neighbors(id string) []string {
	set := n.adjacency[id]
	out := make([]string, 0, len(set))
	for peer := range set {
		out = append(out, peer)
	}
	sort.Strings(out)
	return out
}

func (n *network) degree(id string) int {
	return len(n.adjacency[id])
}

func (n *network) connected(a, b string) bool {
	_, ok := n.adjacency[a][b]
	return ok
}

// bridgePairs counts pairs of id's neighbours that are not directly connected.
func (n *network) bridgePairs(id string) int {
	peers := n.neighbors(id)
	count := 0
	for i := 0; i < len(peers); i++ {
		for j := i + 1; j < len(peers); j++ {
			if !n.connected(peers[i], peers[j]) {
				count++
			}
		}
	}
	return count
}

// closedPairs counts pairs of id's neighbours that are directly connected.
func (n *network) closedPairs(id string) int {
	peers := n.neighbors(id)
	count := 0
	for i := 0; i < len(peers); i++ {
		for j := i + 1; j < len(peers); j++ {
			if n.connected(peers[i], peers[j]) {
				count++
			}
		}
	}
	return count
}

// distances runs an unweighted BFS from source and returns hop counts to
// every reachable node. Unreachable nodes are absent.
func (n *network) distances(source string) map[string]int {
	dist := map[string]int{source: 0}
	queue := []string{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, peer := range n.neighbors(current) {
			if _, seen := dist[peer]; seen {
				continue
			}
			dist[peer] = dist[current] + 1
			queue = append(queue, peer)
		}
	}
	return dist
}

// distanceTo reports the hop count or +Inf when target is unreachable.
func distanceTo(dist map[string]int, target string) float64 {
	d, ok := dist[target]
	if !ok {
		return math.Inf(1)
	}
	return float64(d)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func rosterIDs(roster []models.Student) []string {
	ids := make([]string, 0, len(roster))
	for _, s := range roster {
		ids = append(ids, s.ID)
	}
	return ids
}
