package svdimg

const (
	// DefaultRatio is the retention ratio applied when none is given.
	DefaultRatio = 70
	// MinRatio and MaxRatio bound the retention ratio, in percent.
	MinRatio = 1
	MaxRatio = 100
)

// ClampRatio maps a requested retention ratio into [MinRatio, MaxRatio].
// Zero selects DefaultRatio.
func ClampRatio(ratio int) int {
	switch {
	case ratio == 0:
		return DefaultRatio
	case ratio < MinRatio:
		return MinRatio
	case ratio > MaxRatio:
		return MaxRatio
	default:
		return ratio
	}
}

// RankFor returns the truncation rank max(1, floor(fullRank*ratio/100)) for
// a matrix of full rank fullRank. ratio is clamped with ClampRatio first.
func RankFor(fullRank, ratio int) int {
	k := fullRank * ClampRatio(ratio) / MaxRatio
	return max(k, 1)
}
