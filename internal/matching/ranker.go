package matching

import "sort"

// Candidate is a scored pair waiting for selection.
type Candidate struct {
	Pair       Pair
	Similarity float64
	Score      float64
}

// Rank orders candidates by score, highest first, breaking ties by pair key,
// then greedily keeps a candidate only while both sides are under the
// per-participant cap. At most maxResults candidates are returned; a
// non-positive maxResults means no limit.
func Rank(candidates []Candidate, maxResults, perParticipantCap int) []Candidate {
	if perParticipantCap < 1 {
		perParticipantCap = 1
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Pair.Key().Less(sorted[j].Pair.Key())
	})

	load := make(map[int64]int)
	selected := make([]Candidate, 0)
	for _, c := range sorted {
		if maxResults > 0 && len(selected) >= maxResults {
			break
		}
		a, b := c.Pair.A.ID(), c.Pair.B.ID()
		if load[a] >= perParticipantCap || load[b] >= perParticipantCap {
			continue
		}
		load[a]++
		load[b]++
		selected = append(selected, c)
	}
	return selected
}
