package selector

import (
	"math/rand"
	"strings"

	"github.com/TeeKay-FourTwentyOne/dreamfeed/core"
)

// DefaultSampleCap bounds how many candidates are shown to the selection
// model in one call.
const DefaultSampleCap = 50

// motionBuckets orders the stratification partitions; unrecognized motion
// values fold into the middle bucket.
var motionBuckets = []string{"low", "medium", "high"}

// Sample reduces a large eligible pool to a bounded, stratified subset:
// roughly limit/3 items per motion-intensity bucket drawn without
// replacement, with any shortfall filled uniformly at random from the unused
// remainder. Pools at or under the limit are returned as-is.
//
// The draw is intentionally randomized and non-deterministic across calls;
// callers must rely only on size and stratification, never exact membership.
func Sample(items []*core.Item, limit int, rng *rand.Rand) []*core.Item {
	if limit <= 0 {
		limit = DefaultSampleCap
	}
	if len(items) <= limit {
		return items
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	buckets := map[string][]*core.Item{}
	for _, it := range items {
		key := strings.ToLower(it.MotionIntensity)
		switch key {
		case "low", "high":
		default:
			key = "medium"
		}
		buckets[key] = append(buckets[key], it)
	}

	used := make(map[*core.Item]bool, limit)
	result := make([]*core.Item, 0, limit)

	share := limit / len(motionBuckets)
	for _, key := range motionBuckets {
		group := buckets[key]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		take := share
		if take > len(group) {
			take = len(group)
		}
		for _, it := range group[:take] {
			used[it] = true
			result = append(result, it)
		}
	}

	// Top up any remaining slots from the still-unused pool.
	if remaining := limit - len(result); remaining > 0 {
		var unused []*core.Item
		for _, it := range items {
			if !used[it] {
				unused = append(unused, it)
			}
		}
		rng.Shuffle(len(unused), func(i, j int) { unused[i], unused[j] = unused[j], unused[i] })
		if remaining > len(unused) {
			remaining = len(unused)
		}
		result = append(result, unused[:remaining]...)
	}

	return result
}
