package svdimg

import (
	"fmt"
	"runtime"
	"sync"
)

// BytesPerPixel is the interleaved pixel width of every pixel buffer.
const BytesPerPixel = 4

// ChannelOrder maps the byte position inside a pixel to its channel:
// byte n of every pixel belongs to channel order[n].
type ChannelOrder [BytesPerPixel]Channel

var (
	// OrderRGBA matches the Pix layout of image.RGBA and image.NRGBA.
	OrderRGBA = ChannelOrder{Red, Green, Blue, Alpha}
	// OrderBGRA matches 32bpp desktop bitmaps and DDS BGRA8 payloads.
	OrderBGRA = ChannelOrder{Blue, Green, Red, Alpha}
	// OrderARGB stores alpha first.
	OrderARGB = ChannelOrder{Alpha, Red, Green, Blue}
)

// Validate reports ErrInvalidChannelOrder unless o is a permutation of the
// four channels.
func (o ChannelOrder) Validate() error {
	var seen [numChannels]bool
	for n, c := range o {
		if int(c) >= numChannels || seen[c] {
			return fmt.Errorf("%w: byte %d maps to %s", ErrInvalidChannelOrder, n, c)
		}
		seen[c] = true
	}

	return nil
}

// String returns the order as a compact tag such as "RGBA".
func (o ChannelOrder) String() string {
	b := make([]byte, 0, BytesPerPixel)
	for _, c := range o {
		s := c.String()
		if int(c) < numChannels {
			b = append(b, s[0]-'a'+'A')
		} else {
			b = append(b, '?')
		}
	}

	return string(b)
}

// Split scatters an interleaved buffer of height*width pixels into four
// planes. Pixel (i, j) starts at byte i*width*4 + j*4.
func Split(buf []byte, height, width int, order ChannelOrder) (*ChannelSet, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	want, err := pixelBytes(height, width)
	if err != nil {
		return nil, err
	}
	if len(buf) != want {
		return nil, fmt.Errorf("%w: buffer has %d bytes, %dx%d needs %d",
			ErrDimensionMismatch, len(buf), width, height, want)
	}

	set := &ChannelSet{}
	var planes [BytesPerPixel][]uint8
	for n, c := range order {
		m := NewChannelMatrix(height, width)
		set.SetPlane(c, m)
		planes[n] = m.Pix
	}

	stride := width * BytesPerPixel
	parallelRows(height, func(y0, y1 int) {
		for i := y0; i < y1; i++ {
			row := buf[i*stride : (i+1)*stride]
			base := i * width
			for j := 0; j < width; j++ {
				px := row[j*BytesPerPixel : j*BytesPerPixel+BytesPerPixel]
				planes[0][base+j] = px[0]
				planes[1][base+j] = px[1]
				planes[2][base+j] = px[2]
				planes[3][base+j] = px[3]
			}
		}
	})

	return set, nil
}

// Merge gathers four equally shaped planes back into an interleaved buffer.
func Merge(set *ChannelSet, order ChannelOrder) ([]byte, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	height, width, err := set.Dims()
	if err != nil {
		return nil, err
	}
	size, err := pixelBytes(height, width)
	if err != nil {
		return nil, err
	}

	var planes [BytesPerPixel][]uint8
	for n, c := range order {
		planes[n] = set.Plane(c).Pix
	}

	buf := make([]byte, size)
	stride := width * BytesPerPixel
	parallelRows(height, func(y0, y1 int) {
		for i := y0; i < y1; i++ {
			row := buf[i*stride : (i+1)*stride]
			base := i * width
			for j := 0; j < width; j++ {
				px := row[j*BytesPerPixel : j*BytesPerPixel+BytesPerPixel]
				px[0] = planes[0][base+j]
				px[1] = planes[1][base+j]
				px[2] = planes[2][base+j]
				px[3] = planes[3][base+j]
			}
		}
	})

	return buf, nil
}

// parallelRows runs fn over disjoint row stripes [y0, y1) covering [0, rows)
// and returns once every stripe is done.
func parallelRows(rows int, fn func(y0, y1 int)) {
	workers := min(runtime.NumCPU(), rows)
	if workers <= 1 {
		fn(0, rows)
		return
	}

	rowsPerWorker := (rows + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := 0; y0 < rows; y0 += rowsPerWorker {
		y1 := min(y0+rowsPerWorker, rows)
		wg.Go(func() { fn(y0, y1) })
	}
	wg.Wait()
}
