package consensus

import (
	"sort"

	"github.com/Klingon-tech/klingnet-chain/config"
)

// median returns the median of a sorted-copy of weights. Matches the
// odd/even median convention used by the classical dynamic block-size
// penalty: for an even count, the lower of the two middle elements is
// returned (not an average), so the result is always one of the observed
// weights.
func median(weights []uint64) uint64 {
	if len(weights) == 0 {
		return 0
	}
	sorted := append([]uint64(nil), weights...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1]
	}
	return sorted[mid]
}

// ShortMedianWeight computes the short-window effective median weight
// (spec §4.2): the median of the trailing config.WeightShortWindow block
// weights, floored at config.MinMedianWeight so an empty or lightly used
// chain still reports a usable median. recentWeights must already be
// limited to at most WeightShortWindow entries (oldest first or any order;
// only the set of values matters).
func ShortMedianWeight(recentWeights []uint64) uint64 {
	m := median(recentWeights)
	if m < config.MinMedianWeight {
		return config.MinMedianWeight
	}
	return m
}

// MaxBlockWeight returns the hard limit on a single block's weight given
// the current short-window median: 2x the median (spec §4.2's penalty-free
// ceiling).
func MaxBlockWeight(shortMedian uint64) uint64 {
	return 2 * shortMedian
}

// LongTermMedianWeight computes the long-term effective median (spec
// §4.2): the median over the trailing config.WeightLongWindow long-term
// weights. Unlike the short median it carries no floor of its own — each
// individual sample was already clamped by LongTermEffectiveWeight before
// being added to the window.
func LongTermMedianWeight(longTermWeights []uint64) uint64 {
	return median(longTermWeights)
}

// LongTermEffectiveWeight clamps a single block's raw weight against the
// previous long-term median before it is admitted into the long-term
// window, per spec §4.2's anti-spike rule:
//
//	ltw(b) <= (LongTermWeightClampNumerator / Denominator) * prevLongTermMedian
//
// Before config.ForkVersionLongTermWeight activates, the feature is inert
// (spec §4.2: "ltw(b) = w(b)") so the raw weight always passes through
// unclamped, preserving the §8 identical-before-fork invariant even once
// weights start to vary by more than the clamp factor. When
// prevLongTermMedian is 0 (no long-term history yet, e.g. genesis) the raw
// weight also passes through unclamped regardless of fork version.
func LongTermEffectiveWeight(featureVersion uint32, rawWeight, prevLongTermMedian uint64) uint64 {
	if featureVersion < config.ForkVersionLongTermWeight || prevLongTermMedian == 0 {
		return rawWeight
	}
	ceiling := prevLongTermMedian * config.LongTermWeightClampNumerator / config.LongTermWeightClampDenominator
	if rawWeight > ceiling {
		return ceiling
	}
	return rawWeight
}

// EffectivePenaltyFreeZone reports the weight ceiling a block must stay
// under to avoid the fee penalty (spec §4.2): once
// config.ForkVersionLongTermWeight is active, this is the minimum of the
// short-window ceiling and the long-term median; before that fork it is
// simply MaxBlockWeight(shortMedian).
func EffectivePenaltyFreeZone(featureVersion uint32, shortMedian, longTermMedian uint64) uint64 {
	zone := MaxBlockWeight(shortMedian)
	if featureVersion >= config.ForkVersionLongTermWeight && longTermMedian > 0 && longTermMedian < zone {
		return longTermMedian
	}
	return zone
}
