// Package result holds ranked lookup answers tagged with the path that served them.
package result

import (
	"sort"

	"github.com/kailas-cloud/hoteldex/internal/domain/document"
)

// Source tells which path produced an answer.
type Source string

// Answer sources.
const (
	SourceIndex Source = "index"
	SourceLive  Source = "live"
)

// Hit is a single ranked document.
type Hit struct {
	document.Document
	Score float64 `json:"score"`
}

// Page is a capped, ordered list of hits.
type Page struct {
	Source  Source `json:"source"`
	Results []Hit  `json:"results"`
}

// Key extracts a secondary ordering signal; a missing signal should be 0.
type Key func(Hit) float64

// Rating orders by rating.
func Rating(h Hit) float64 { return deref(h.Rating) }

// Stars orders by star count.
func Stars(h Hit) float64 { return deref(h.Stars) }

// HotelsNumber orders by the number of hotels in a region.
func HotelsNumber(h Hit) float64 {
	if h.HotelsNumber == nil {
		return 0
	}
	return float64(*h.HotelsNumber)
}

// Rank sorts hits by score, then by each key, all descending, and keeps at
// most limit entries. Ties keep their input order.
func Rank(hits []Hit, limit int, keys ...Key) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		for _, k := range keys {
			a, b := k(hits[i]), k(hits[j])
			if a != b {
				return a > b
			}
		}
		return false
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
