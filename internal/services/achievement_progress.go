package services

// TierForProgress returns how many thresholds progress has reached.
// Thresholds are strictly increasing; reaching a threshold exactly counts.
func TierForProgress(thresholds []int64, progress int64) int {
	tier := 0
	for _, th := range thresholds {
		if progress < th {
			break
		}
		tier++
	}
	return tier
}

// ProgressPercentage is the floor percentage of the way from the current
// tier's threshold to the next one, clamped to [0, 100]. It is 100 once the
// last tier is reached.
func ProgressPercentage(thresholds []int64, progress int64) int {
	tier := TierForProgress(thresholds, progress)
	if tier >= len(thresholds) {
		return 100
	}

	var lower int64
	if tier > 0 {
		lower = thresholds[tier-1]
	}
	upper := thresholds[tier]
	if upper <= lower {
		return 100
	}

	pct := 100 * (progress - lower) / (upper - lower)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// RewardsBetween sums the rewards of tiers fromTier+1 through toTier, i.e.
// the rewards earned by moving from fromTier to toTier.
func RewardsBetween(rewards []int64, fromTier, toTier int) int64 {
	if fromTier < 0 {
		fromTier = 0
	}
	if toTier > len(rewards) {
		toTier = len(rewards)
	}
	var total int64
	for i := fromTier; i < toTier; i++ {
		total += rewards[i]
	}
	return total
}

// nextTier returns the threshold and reward of the tier after current, or
// nils at the top tier.
func nextTier(thresholds, rewards []int64, current int) (*int64, *int64) {
	if current >= len(thresholds) || current >= len(rewards) {
		return nil, nil
	}
	th, rw := thresholds[current], rewards[current]
	return &th, &rw
}
