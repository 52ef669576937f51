package blocktime

const (
	MinBlockTimeMs     int64 = 5500
	MaxBlockTimeMs     int64 = 6000
	DefaultBlockTimeMs int64 = 5850

	roundToMs int64 = 100
)

// Smooth rounds a mean block time to the nearest 100ms and clamps it to [5500, 6000].
// Only a handful of blocks are sampled, so a single slow or fast block must not move the
// estimate much.
func Smooth(meanMs int64) int64 {
	rounded := ((meanMs + roundToMs/2) / roundToMs) * roundToMs
	return Clamp(rounded)
}

func Clamp(ms int64) int64 {
	if ms < MinBlockTimeMs {
		return MinBlockTimeMs
	}
	if ms > MaxBlockTimeMs {
		return MaxBlockTimeMs
	}
	return ms
}

// Estimate computes the smoothed block time for the series, falling back to fallback when the
// series is empty.
func Estimate(s *Series, fallback int64) int64 {
	if s.Len() == 0 {
		return fallback
	}
	return Smooth(s.Mean())
}
