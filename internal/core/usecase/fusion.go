package usecase

import (
	"sort"

	"github.com/evidentia/docsqa/internal/core/domain"
)

type fusedEntry struct {
	chunkID    string
	documentID string
	text       string
	score      float64
	rankSum    int
}

// fuseRRF merges the vector and keyword candidate lists with reciprocal
// rank fusion: each hit contributes 1/(k+rank) to its chunk's score, and
// contributions are summed per chunk so a hit in both lists is rewarded.
// Either list may be empty. The result is a pure function of its inputs:
// ties break by lower original rank sum, then chunk id.
func fuseRRF(vector, keyword []domain.Candidate, rrfK int) []domain.FusedResult {
	if rrfK <= 0 {
		rrfK = 60
	}

	acc := make(map[string]*fusedEntry, len(vector)+len(keyword))
	addList := func(list []domain.Candidate) {
		for i, c := range list {
			rank := c.Rank
			if rank <= 0 {
				rank = i + 1
			}
			entry := acc[c.ChunkID]
			if entry == nil {
				entry = &fusedEntry{chunkID: c.ChunkID}
				acc[c.ChunkID] = entry
			}
			if entry.documentID == "" {
				entry.documentID = c.DocumentID
			}
			if entry.text == "" {
				entry.text = c.Text
			}
			entry.score += 1.0 / float64(rrfK+rank)
			entry.rankSum += rank
		}
	}

	addList(vector)
	addList(keyword)

	entries := make([]*fusedEntry, 0, len(acc))
	for _, entry := range acc {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].rankSum != entries[j].rankSum {
			return entries[i].rankSum < entries[j].rankSum
		}
		return entries[i].chunkID < entries[j].chunkID
	})

	out := make([]domain.FusedResult, 0, len(entries))
	for i, entry := range entries {
		out = append(out, domain.FusedResult{
			ChunkID:    entry.chunkID,
			DocumentID: entry.documentID,
			Text:       entry.text,
			FusedScore: entry.score,
			Rank:       i + 1,
		})
	}
	return out
}

// mergeFused combines per-sub-question fusion outputs, deduplicating by
// chunk id and keeping the best fused score, then reassigns ranks.
func mergeFused(lists ...[]domain.FusedResult) []domain.FusedResult {
	best := make(map[string]domain.FusedResult)
	for _, list := range lists {
		for _, r := range list {
			existing, ok := best[r.ChunkID]
			if !ok || r.FusedScore > existing.FusedScore {
				best[r.ChunkID] = r
			}
		}
	}

	out := make([]domain.FusedResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
