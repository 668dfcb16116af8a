package svdimg

import (
	"bytes"
	"context"
	"errors"
	"image"
	"math"
	"testing"
)

func TestCompressFullRatioRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		height  int
		width   int
		mode    NarrowMode
		maxDiff int
	}{
		{name: "wrap-wide", height: 16, width: 24, mode: NarrowWrap, maxDiff: 1},
		{name: "wrap-tall", height: 31, width: 9, mode: NarrowWrap, maxDiff: 1},
		{name: "clamp-square", height: 20, width: 20, mode: NarrowClamp, maxDiff: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := testPixels(tc.height, tc.width)
			out, stats, err := Compress(context.Background(), buf, tc.height, tc.width, 100, &Options{Narrow: tc.mode})
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if stats.Rank != min(tc.height, tc.width) {
				t.Fatalf("rank = %d, want %d", stats.Rank, min(tc.height, tc.width))
			}
			if len(out) != len(buf) {
				t.Fatalf("output has %d bytes, want %d", len(out), len(buf))
			}
			if d := maxAbsDiff(out, buf); d > tc.maxDiff {
				t.Fatalf("max per-sample error %d, want <= %d", d, tc.maxDiff)
			}
		})
	}
}

func TestCompressFidelityImprovesWithRatio(t *testing.T) {
	t.Parallel()

	const height, width = 40, 32
	buf := testPixels(height, width)

	prev := math.Inf(1)
	for _, ratio := range []int{5, 25, 50, 100} {
		out, _, err := Compress(context.Background(), buf, height, width, ratio, &Options{Narrow: NarrowClamp})
		if err != nil {
			t.Fatalf("ratio %d: Compress: %v", ratio, err)
		}
		e := meanAbsDiff(out, buf)
		if e > prev {
			t.Fatalf("ratio %d: mean error %.3f exceeds previous %.3f", ratio, e, prev)
		}
		prev = e
	}
}

func TestCompressRankClamp(t *testing.T) {
	t.Parallel()

	const height, width = 10, 12
	buf := testPixels(height, width)

	out, stats, err := Compress(context.Background(), buf, height, width, 1, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if stats.Rank != 1 {
		t.Fatalf("rank = %d, want 1", stats.Rank)
	}
	if len(out) != len(buf) {
		t.Fatalf("output has %d bytes, want %d", len(out), len(buf))
	}
}

func TestCompressStats(t *testing.T) {
	t.Parallel()

	const height, width = 100, 100
	buf := testPixels(height, width)

	_, stats, err := Compress(context.Background(), buf, height, width, 50, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if stats.PreBytes != 40000 {
		t.Fatalf("PreBytes = %d, want 40000", stats.PreBytes)
	}
	if stats.Rank != 50 {
		t.Fatalf("Rank = %d, want 50", stats.Rank)
	}
	wantPost := 4 * (height*50 + width*50 + 50) * DefaultBytesPerValue
	if stats.PostBytes != wantPost {
		t.Fatalf("PostBytes = %d, want %d", stats.PostBytes, wantPost)
	}
	wantRatio := float64(stats.PostBytes) / float64(stats.PreBytes) * 100
	if math.Abs(stats.RatioPercent-wantRatio) > 1e-9 {
		t.Fatalf("RatioPercent = %v, want %v", stats.RatioPercent, wantRatio)
	}

	_, stats4, err := Compress(context.Background(), buf, height, width, 50, &Options{BytesPerValue: 4})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if stats4.PostBytes*2 != stats.PostBytes {
		t.Fatalf("float32 PostBytes = %d, want %d", stats4.PostBytes, stats.PostBytes/2)
	}
}

func TestRankForTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		full  int
		ratio int
		want  int
	}{
		{name: "full", full: 100, ratio: 100, want: 100},
		{name: "half", full: 100, ratio: 50, want: 50},
		{name: "floor", full: 7, ratio: 50, want: 3},
		{name: "clamp-to-one", full: 10, ratio: 1, want: 1},
		{name: "default", full: 100, ratio: 0, want: DefaultRatio},
		{name: "negative", full: 100, ratio: -5, want: 1},
		{name: "above-max", full: 9, ratio: 250, want: 9},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := RankFor(tc.full, tc.ratio); got != tc.want {
				t.Fatalf("RankFor(%d, %d) = %d, want %d", tc.full, tc.ratio, got, tc.want)
			}
		})
	}
}

func TestCompressErrors(t *testing.T) {
	t.Parallel()

	out, _, err := Compress(context.Background(), make([]byte, 10), 2, 2, 50, nil)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no output on failure")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, _, err = Compress(ctx, testPixels(8, 8), 8, 8, 50, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected no output after cancellation")
	}
}

func TestCompressPreservesOrder(t *testing.T) {
	t.Parallel()

	const height, width = 12, 10
	rgba := testPixels(height, width)

	// Same pixels laid out as BGRA.
	bgra := make([]byte, len(rgba))
	for p := 0; p < len(rgba); p += 4 {
		bgra[p], bgra[p+1], bgra[p+2], bgra[p+3] = rgba[p+2], rgba[p+1], rgba[p], rgba[p+3]
	}

	outRGBA, _, err := Compress(context.Background(), rgba, height, width, 30, nil)
	if err != nil {
		t.Fatalf("Compress RGBA: %v", err)
	}
	outBGRA, _, err := Compress(context.Background(), bgra, height, width, 30, &Options{Order: OrderBGRA})
	if err != nil {
		t.Fatalf("Compress BGRA: %v", err)
	}

	for p := 0; p < len(rgba); p += 4 {
		if outBGRA[p] != outRGBA[p+2] || outBGRA[p+2] != outRGBA[p] || outBGRA[p+3] != outRGBA[p+3] {
			t.Fatalf("pixel %d: BGRA result does not mirror RGBA result", p/4)
		}
	}
}

func TestCompressImage(t *testing.T) {
	t.Parallel()

	src := gradientImage(24, 18)
	got, stats, err := CompressImage(context.Background(), src, 100, &Options{Narrow: NarrowClamp})
	if err != nil {
		t.Fatalf("CompressImage: %v", err)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", got.Bounds(), src.Bounds())
	}
	if stats.Rank != 18 {
		t.Fatalf("rank = %d, want 18", stats.Rank)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Fatalf("full-ratio clamp reconstruction differs, max diff %d", maxAbsDiff(got.Pix, src.Pix))
	}

	// A sub-image is copied into a fresh buffer before splitting.
	sub := testImage(20, 20).SubImage(image.Rect(3, 3, 17, 15))
	subOut, _, err := CompressImage(context.Background(), sub, 40, nil)
	if err != nil {
		t.Fatalf("CompressImage(sub-image): %v", err)
	}
	if subOut.Bounds() != image.Rect(0, 0, 14, 12) {
		t.Fatalf("sub-image bounds = %v", subOut.Bounds())
	}
}
