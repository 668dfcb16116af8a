package svdimg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
)

// benchFactors prepares factors of a 256x256 test image at the default ratio.
func benchFactors(b *testing.B) *Factors {
	b.Helper()

	f, _, err := Factorize(context.Background(), testPixels(256, 256), 256, 256, DefaultRatio, nil)
	if err != nil {
		b.Fatalf("prepare factors: %v", err)
	}

	return f
}

func BenchmarkCompress(b *testing.B) {
	for _, size := range []int{64, 256} {
		buf := testPixels(size, size)

		b.Run(fmt.Sprintf("%dx%d", size, size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(buf)))
			b.ResetTimer()

			for b.Loop() {
				if _, _, err := Compress(context.Background(), buf, size, size, DefaultRatio, nil); err != nil {
					b.Fatalf("compress: %v", err)
				}
			}
		})
	}
}

func BenchmarkSplitMerge(b *testing.B) {
	const size = 1024
	buf := testPixels(size, size)

	b.ReportAllocs()
	b.SetBytes(int64(len(buf)))
	b.ResetTimer()

	for b.Loop() {
		set, err := Split(buf, size, size, OrderRGBA)
		if err != nil {
			b.Fatalf("split: %v", err)
		}
		if _, err := Merge(set, OrderRGBA); err != nil {
			b.Fatalf("merge: %v", err)
		}
	}
}

func BenchmarkEncodeFactors(b *testing.B) {
	f := benchFactors(b)

	for _, method := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		b.Run(method.String(), func(b *testing.B) {
			opts := &EncodeOptions{Compression: method}

			b.ReportAllocs()
			b.ResetTimer()

			for b.Loop() {
				if err := EncodeFactors(io.Discard, f, opts); err != nil {
					b.Fatalf("encode (%s): %v", method, err)
				}
			}
		})
	}
}

func BenchmarkDecodeFactors(b *testing.B) {
	f := benchFactors(b)

	var enc bytes.Buffer
	if err := EncodeFactors(&enc, f, nil); err != nil {
		b.Fatalf("prepare encoded factors: %v", err)
	}
	data := enc.Bytes()

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for b.Loop() {
		if _, err := DecodeFactors(bytes.NewReader(data)); err != nil {
			b.Fatalf("decode: %v", err)
		}
	}
}
