package engine

import (
	"fmt"
	"math"

	"github.com/classpulse/sociogram/internal/models"
)

const (
	groupTypeShare      = 0.6
	cliqueCohesion      = 0.8
	popularMinIncoming  = 3
	popularMeanFactor   = 1.5
	bridgePairThreshold = 2
)

// AnalyzeClassNetwork aggregates the roster and edge list into class-wide
// metrics, connected-component groups and special-role student lists.
func AnalyzeClassNetwork(surveyID, classID string, roster []models.Student, relationships []models.StudentRelationship) models.ClassNetworkSummary {
	net := buildNetwork(relationships)
	ids := rosterIDs(roster)

	return models.ClassNetworkSummary{
		SurveyID:              surveyID,
		ClassID:               classID,
		TotalStudents:         len(roster),
		TotalRelationships:    len(relationships),
		NetworkDensity:        networkDensity(len(relationships), len(roster)),
		AveragePathLength:     averagePathLength(net, ids),
		ClusteringCoefficient: clusteringCoefficient(net, ids),
		Groups:                identifyGroups(net, ids),
		IsolatedStudents:      isolatedStudents(net, ids),
		PopularStudents:       popularStudents(net, ids),
		BridgeStudents:        bridgeStudents(net, ids),
	}
}

func networkDensity(edges, students int) float64 {
	if students < 2 {
		return 0
	}
	return float64(edges) / float64(students*(students-1))
}

// averagePathLength is the mean of all finite, non-zero BFS distances between
// roster members.
func averagePathLength(net *network, ids []string) float64 {
	total, count := 0, 0
	for _, source := range ids {
		dist := net.distances(source)
		for _, target := range ids {
			if target == source {
				continue
			}
			if d, ok := dist[target]; ok && d > 0 {
				total += d
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// clusteringCoefficient averages the local coefficient over students with at
// least two neighbours; others are excluded from the mean.
func clusteringCoefficient(net *network, ids []string) float64 {
	sum := 0.0
	qualifying := 0
	for _, id := range ids {
		k := net.degree(id)
		if k < 2 {
			continue
		}
		possible := float64(k*(k-1)) / 2
		sum += float64(net.closedPairs(id)) / possible
		qualifying++
	}
	if qualifying == 0 {
		return 0
	}
	return sum / float64(qualifying)
}

// identifyGroups decomposes the roster into connected components with an
// iterative depth-first traversal and keeps components of two or more.
func identifyGroups(net *network, ids []string) []models.StudentGroup {
	inRoster := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		inRoster[id] = struct{}{}
	}

	visited := make(map[string]struct{}, len(ids))
	groups := make([]models.StudentGroup, 0)
	for _, start := range ids {
		if _, ok := visited[start]; ok {
			continue
		}
		members := make([]string, 0)
		stack := []string{start}
		visited[start] = struct{}{}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, current)
			for _, peer := range net.neighbors(current) {
				if _, ok := inRoster[peer]; !ok {
					continue
				}
				if _, ok := visited[peer]; ok {
					continue
				}
				visited[peer] = struct{}{}
				stack = append(stack, peer)
			}
		}
		if len(members) < 2 {
			continue
		}
		group := describeGroup(net.edges, members)
		group.ID = fmt.Sprintf("group-%d", len(groups)+1)
		groups = append(groups, group)
	}
	return groups
}

func describeGroup(edges []models.StudentRelationship, members []string) models.StudentGroup {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}

	intra, friend, collaboration, strength := 0, 0, 0, 0
	for _, e := range edges {
		_, fromIn := set[e.FromStudentID]
		_, toIn := set[e.ToStudentID]
		if !fromIn || !toIn {
			continue
		}
		intra++
		strength += e.Strength
		switch e.Type {
		case models.RelationshipFriend:
			friend++
		case models.RelationshipCollaboration:
			collaboration++
		}
	}

	n := len(members)
	possible := float64(n*(n-1)) / 2
	cohesion := clamp(ratio(float64(intra), possible), 0, 1)

	return models.StudentGroup{
		Members:         members,
		Type:            classifyGroup(n, intra, friend, collaboration, cohesion),
		Cohesion:        cohesion,
		AverageStrength: ratio(float64(strength), float64(intra)),
	}
}

func classifyGroup(size, intra, friend, collaboration int, cohesion float64) models.GroupType {
	if size == 2 {
		return models.GroupTypeIsolatedPair
	}
	switch {
	case ratio(float64(friend), float64(intra)) > groupTypeShare:
		return models.GroupTypeFriend
	case ratio(float64(collaboration), float64(intra)) > groupTypeShare:
		return models.GroupTypeStudy
	case cohesion > cliqueCohesion:
		return models.GroupTypeClique
	default:
		return models.GroupTypeFriend
	}
}

func isolatedStudents(net *network, ids []string) []string {
	out := make([]string, 0)
	for _, id := range ids {
		if net.degree(id) <= 1 {
			out = append(out, id)
		}
	}
	return out
}

func popularStudents(net *network, ids []string) []string {
	out := make([]string, 0)
	if len(ids) == 0 {
		return out
	}
	sum := 0
	for _, id := range ids {
		sum += net.incoming[id]
	}
	mean := float64(sum) / float64(len(ids))
	threshold := math.Max(popularMinIncoming, popularMeanFactor*mean)
	for _, id := range ids {
		if float64(net.incoming[id]) >= threshold {
			out = append(out, id)
		}
	}
	return out
}

func bridgeStudents(net *network, ids []string) []string {
	out := make([]string, 0)
	for _, id := range ids {
		if net.bridgePairs(id) >= bridgePairThreshold {
			out = append(out, id)
		}
	}
	return out
}
