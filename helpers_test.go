package svdimg

import (
	"image"
	"image/color"
)

// testPixels builds a deterministic interleaved buffer with mixed low and high
// frequencies in every channel.
func testPixels(height, width int) []byte {
	buf := make([]byte, height*width*BytesPerPixel)
	for i := 0; i < height; i++ {
		for j := 0; j < width; j++ {
			o := (i*width + j) * BytesPerPixel
			buf[o+0] = uint8((j*7 + i*3) & 0xff)        //nolint:gosec // bounded by mask
			buf[o+1] = uint8((j*13 + i*5) & 0xff)       //nolint:gosec // bounded by mask
			buf[o+2] = uint8((j ^ i ^ (j >> 2)) & 0xff) //nolint:gosec // bounded by mask
			buf[o+3] = uint8(255 - (i*j)&0x3f)          //nolint:gosec // bounded by mask
		}
	}
	return buf
}

// testImage wraps testPixels in an *image.NRGBA.
func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, testPixels(height, width))
	return img
}

// gradientImage is a smooth opaque image.
func gradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),  //nolint:gosec // bounded
				G: uint8(y * 255 / max(height-1, 1)), //nolint:gosec // bounded
				B: 100,
				A: 255,
			})
		}
	}
	return img
}

func maxAbsDiff(a, b []byte) int {
	worst := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst
}

func meanAbsDiff(a, b []byte) float64 {
	sum := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum) / float64(len(a))
}
