package svdimg

import "fmt"

// DefaultBytesPerValue is the storage width of one factor scalar when
// Options.BytesPerValue is zero (float64).
const DefaultBytesPerValue = 8

// Stats describes the size effect of one compression request.
//
// PostBytes is the cost of storing the truncated U, S and Vᵀ of all four
// channels at BytesPerValue bytes per scalar. The pixel buffer returned by
// Compress is always full size; the saving is only realised by the SVDF
// factor container.
type Stats struct {
	PreBytes     int
	PostBytes    int
	Rank         int
	RatioPercent float64
}

// String formats the statistics for humans.
func (s Stats) String() string {
	return fmt.Sprintf("rank %d: %d -> %d bytes (%.2f%%)", s.Rank, s.PreBytes, s.PostBytes, s.RatioPercent)
}

// newStats computes the statistics for an image of the given shape truncated
// to rank k.
func newStats(height, width, k, bytesPerValue int) Stats {
	pre := height * width * BytesPerPixel
	post := numChannels * factorValues(height, width, k) * bytesPerValue

	ratio := 0.0
	if pre > 0 {
		ratio = float64(post) / float64(pre) * 100
	}

	return Stats{
		PreBytes:     pre,
		PostBytes:    post,
		Rank:         k,
		RatioPercent: ratio,
	}
}
