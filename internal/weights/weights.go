// Package weights derives shuffle weights from track ratings.
//
// Weights lie in (0, 1] and are monotonic in the rating: a better rated track never gets a smaller
// weight than a worse rated one. An empty input yields no weights and a single track always gets 1.0.
package weights

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/spotility/internal/models"
	"github.com/desertthunder/spotility/internal/shared"
)

// Strategy selects how ratings are mapped to weights.
type Strategy string

const (
	// Rank orders tracks by rating, then by most recently added, and spaces weights evenly from 1 down to 1/n.
	Rank Strategy = "rank"
	// MinMax scales ratings linearly into [MinMaxFloor, 1]. Equal ratings share a weight.
	MinMax Strategy = "minmax"
)

// MinMaxFloor is the weight given to the lowest rating under [MinMax].
const MinMaxFloor = 0.1

// Strategies lists the supported strategies.
var Strategies = []Strategy{Rank, MinMax}

// Weight is the derived weight of one track.
type Weight struct {
	TrackID string  `json:"track_id"`
	Value   float64 `json:"weight"`
	Rating  float64 `json:"rating"`
}

type entry struct {
	id      string
	rating  float64
	addedAt time.Time
}

// ParseStrategy validates a strategy name. The empty string selects [Rank].
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return Rank, nil
	}
	if !slices.Contains(Strategies, s) {
		return "", fmt.Errorf("%w: unknown weight strategy %q (want rank or minmax)", shared.ErrInvalidArgument, name)
	}
	return s, nil
}

// Generate computes one weight per entry, ordered by weight descending then track ID.
// Unknown strategies fall back to [Rank].
func Generate(entries iter.Seq2[string, models.Rating], strategy Strategy) []Weight {
	var all []entry
	for id, r := range entries {
		all = append(all, entry{id: id, rating: r.Value, addedAt: r.AddedAt})
	}

	if len(all) == 0 {
		return []Weight{}
	}

	var out []Weight
	switch strategy {
	case MinMax:
		out = minMax(all)
	default:
		out = rank(all)
	}

	slices.SortFunc(out, func(a, b Weight) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.TrackID, b.TrackID)
	})
	return out
}

func rank(all []entry) []Weight {
	slices.SortFunc(all, func(a, b entry) int {
		if c := cmp.Compare(b.rating, a.rating); c != 0 {
			return c
		}
		if c := b.addedAt.Compare(a.addedAt); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	n := float64(len(all))
	out := make([]Weight, len(all))
	for i, e := range all {
		out[i] = Weight{TrackID: e.id, Value: 1 - float64(i)/n, Rating: e.rating}
	}
	return out
}

func minMax(all []entry) []Weight {
	lo, hi := all[0].rating, all[0].rating
	for _, e := range all[1:] {
		lo = min(lo, e.rating)
		hi = max(hi, e.rating)
	}

	out := make([]Weight, len(all))
	for i, e := range all {
		w := 1.0
		if hi > lo {
			w = MinMaxFloor + (1-MinMaxFloor)*(e.rating-lo)/(hi-lo)
		}
		out[i] = Weight{TrackID: e.id, Value: w, Rating: e.rating}
	}
	return out
}
