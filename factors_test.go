package svdimg

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFactorsEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	const height, width = 24, 20
	buf := testPixels(height, width)

	tests := []struct {
		name       string
		valueWidth int
		method     Compression
		maxDiff    int
	}{
		{name: "f64-lz4", valueWidth: 8, method: CompressionLZ4, maxDiff: 0},
		{name: "f64-zstd", valueWidth: 8, method: CompressionZstd, maxDiff: 0},
		{name: "f64-none", valueWidth: 8, method: CompressionNone, maxDiff: 0},
		{name: "f32-lz4", valueWidth: 4, method: CompressionLZ4, maxDiff: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f, stats, err := Factorize(context.Background(), buf, height, width, 60, &Options{BytesPerValue: tc.valueWidth})
			if err != nil {
				t.Fatalf("Factorize: %v", err)
			}

			var enc bytes.Buffer
			if err := EncodeFactors(&enc, f, &EncodeOptions{ValueWidth: tc.valueWidth, Compression: tc.method}); err != nil {
				t.Fatalf("EncodeFactors: %v", err)
			}
			if tc.method == CompressionNone {
				want := factorHeaderSize + numChannels*8 + stats.PostBytes
				if enc.Len() != want {
					t.Fatalf("uncompressed container is %d bytes, want %d", enc.Len(), want)
				}
			}

			got, err := DecodeFactors(bytes.NewReader(enc.Bytes()))
			if err != nil {
				t.Fatalf("DecodeFactors: %v", err)
			}
			if got.Height != height || got.Width != width || got.Rank != stats.Rank || got.Order != OrderRGBA {
				t.Fatalf("header mismatch: %dx%d rank %d order %s", got.Width, got.Height, got.Rank, got.Order)
			}

			want, err := f.Reconstruct(context.Background(), NarrowClamp)
			if err != nil {
				t.Fatalf("Reconstruct(original): %v", err)
			}
			out, err := got.Reconstruct(context.Background(), NarrowClamp)
			if err != nil {
				t.Fatalf("Reconstruct(decoded): %v", err)
			}
			if d := maxAbsDiff(out, want); d > tc.maxDiff {
				t.Fatalf("decoded factors reconstruct with max diff %d, want <= %d", d, tc.maxDiff)
			}
		})
	}
}

func TestFactorizeMatchesCompress(t *testing.T) {
	t.Parallel()

	const height, width = 18, 26
	buf := testPixels(height, width)

	want, wantStats, err := Compress(context.Background(), buf, height, width, 40, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	f, stats, err := Factorize(context.Background(), buf, height, width, 40, nil)
	if err != nil {
		t.Fatalf("Factorize: %v", err)
	}
	if stats != wantStats {
		t.Fatalf("stats = %+v, want %+v", stats, wantStats)
	}

	got, err := f.Reconstruct(context.Background(), NarrowWrap)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if d := maxAbsDiff(got, want); d > 1 {
		t.Fatalf("Reconstruct differs from Compress by %d", d)
	}

	img, err := f.Image(context.Background(), NarrowWrap)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if img.Rect.Dx() != width || img.Rect.Dy() != height {
		t.Fatalf("image is %v", img.Rect)
	}
}

func TestFactorsFile(t *testing.T) {
	t.Parallel()

	f, _, err := FactorizeImage(context.Background(), gradientImage(16, 12), 50, nil)
	if err != nil {
		t.Fatalf("FactorizeImage: %v", err)
	}

	path := filepath.Join(t.TempDir(), "gradient.svdf")
	if err := WriteFactorsFile(path, f, nil); err != nil {
		t.Fatalf("WriteFactorsFile: %v", err)
	}
	got, err := ReadFactorsFile(path)
	if err != nil {
		t.Fatalf("ReadFactorsFile: %v", err)
	}
	if got.Rank != 6 {
		t.Fatalf("rank = %d, want 6", got.Rank)
	}

	if _, err := ReadFactorsFile(filepath.Join(t.TempDir(), "missing.svdf")); !errors.Is(err, ErrOpenFile) {
		t.Fatalf("expected ErrOpenFile, got %v", err)
	}
}

func TestDecodeFactorsErrors(t *testing.T) {
	t.Parallel()

	f, _, err := Factorize(context.Background(), testPixels(8, 8), 8, 8, 50, nil)
	if err != nil {
		t.Fatalf("Factorize: %v", err)
	}
	var enc bytes.Buffer
	if err := EncodeFactors(&enc, f, &EncodeOptions{Compression: CompressionNone}); err != nil {
		t.Fatalf("EncodeFactors: %v", err)
	}
	valid := enc.Bytes()

	corrupt := func(offset int, b byte) []byte {
		out := bytes.Clone(valid)
		out[offset] = b
		return out
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "short-header", data: valid[:10], wantErr: ErrFactorHeaderRead},
		{name: "bad-magic", data: corrupt(0, 'X'), wantErr: ErrNotFactorFile},
		{name: "bad-version", data: corrupt(4, 9), wantErr: ErrUnsupportedVersion},
		{name: "bad-width", data: corrupt(5, 3), wantErr: ErrInvalidValueWidth},
		{name: "bad-order", data: corrupt(6, byte(Green)), wantErr: ErrInvalidChannelOrder},
		{name: "rank-too-large", data: corrupt(18, 9), wantErr: ErrInvalidRank},
		{name: "rank-zero", data: corrupt(18, 0), wantErr: ErrInvalidRank},
		{name: "truncated-body", data: valid[:len(valid)-1], wantErr: ErrBlockBodyRead},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeFactors(bytes.NewReader(tc.data))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEncodeFactorsValidation(t *testing.T) {
	t.Parallel()

	f, _, err := Factorize(context.Background(), testPixels(6, 6), 6, 6, 50, nil)
	if err != nil {
		t.Fatalf("Factorize: %v", err)
	}

	var sink bytes.Buffer
	if err := EncodeFactors(&sink, f, &EncodeOptions{ValueWidth: 2}); !errors.Is(err, ErrInvalidValueWidth) {
		t.Fatalf("expected ErrInvalidValueWidth, got %v", err)
	}
	if err := EncodeFactors(&sink, f, &EncodeOptions{Compression: Compression(42)}); !errors.Is(err, ErrInvalidCompression) {
		t.Fatalf("expected ErrInvalidCompression, got %v", err)
	}

	broken := *f
	broken.Blue = nil
	if err := EncodeFactors(&sink, &broken, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	wrongRank := *f
	wrongRank.Rank = f.Rank + 1
	if _, err := wrongRank.Reconstruct(context.Background(), NarrowWrap); !errors.Is(err, ErrInvalidRank) {
		t.Fatalf("expected ErrInvalidRank, got %v", err)
	}
}
