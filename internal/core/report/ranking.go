package report

import (
	"sort"

	"github.com/shopspring/decimal"
)

// OverallPartition is the partition key used when ranking across all periods
// as a single partition.
const OverallPartition = ""

// ScoredEntry is one (partition, key, score) input to the ranking resolver.
// Key is the tie-break secondary key (e.g. customer ID).
type ScoredEntry struct {
	Partition string
	Key       string
	Score     decimal.Decimal
}

// RankedEntry is a ranked output row. Rank is 1-based within its partition.
type RankedEntry struct {
	Partition string
	Rank      int
	Key       string
	Score     decimal.Decimal
}

// TopN returns the top n entries per partition, ordered by score descending.
// Ties are broken by the lexicographically smaller key, so the result is
// deterministic across runs regardless of input order.
func TopN(entries []ScoredEntry, n int) map[string][]RankedEntry {
	if n <= 0 {
		return map[string][]RankedEntry{}
	}

	byPartition := make(map[string][]ScoredEntry)
	for _, e := range entries {
		byPartition[e.Partition] = append(byPartition[e.Partition], e)
	}

	ranked := make(map[string][]RankedEntry, len(byPartition))
	for partition, group := range byPartition {
		sort.Slice(group, func(i, j int) bool {
			if !group[i].Score.Equal(group[j].Score) {
				return group[i].Score.GreaterThan(group[j].Score)
			}
			return group[i].Key < group[j].Key
		})

		limit := n
		if limit > len(group) {
			limit = len(group)
		}
		rows := make([]RankedEntry, 0, limit)
		for i := 0; i < limit; i++ {
			rows = append(rows, RankedEntry{
				Partition: partition,
				Rank:      i + 1,
				Key:       group[i].Key,
				Score:     group[i].Score,
			})
		}
		ranked[partition] = rows
	}

	return ranked
}

// Top1 returns the single highest-scoring entry per partition.
func Top1(entries []ScoredEntry) map[string]RankedEntry {
	top := make(map[string]RankedEntry)
	for partition, rows := range TopN(entries, 1) {
		top[partition] = rows[0]
	}
	return top
}
