package svdimg

import (
	"context"
	"image"

	"golang.org/x/image/draw"
)

// ToNRGBA copies any image into a tightly packed, non-premultiplied
// *image.NRGBA with bounds starting at (0, 0). Channels are compressed
// independently, so premultiplied input would let a reconstructed color
// exceed its alpha.
func ToNRGBA(src image.Image) *image.NRGBA {
	if m, ok := src.(*image.NRGBA); ok && m.Rect.Min == (image.Point{}) &&
		m.Stride == m.Rect.Dx()*BytesPerPixel && len(m.Pix) == m.Stride*m.Rect.Dy() {
		return m
	}

	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// CompressImage runs Compress on any image and returns the reconstruction as
// an *image.NRGBA. opts.Order is ignored.
func CompressImage(ctx context.Context, img image.Image, ratio int, opts *Options) (*image.NRGBA, Stats, error) {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	o := opts.resolve()
	o.Order = OrderRGBA

	pix, stats, err := Compress(ctx, src.Pix, h, w, ratio, &o)
	if err != nil {
		return nil, Stats{}, err
	}

	return &image.NRGBA{
		Pix:    pix,
		Stride: w * BytesPerPixel,
		Rect:   image.Rect(0, 0, w, h),
	}, stats, nil
}

// FactorizeImage runs Factorize on any image. opts.Order is ignored.
func FactorizeImage(ctx context.Context, img image.Image, ratio int, opts *Options) (*Factors, Stats, error) {
	src := ToNRGBA(img)

	o := opts.resolve()
	o.Order = OrderRGBA

	return Factorize(ctx, src.Pix, src.Rect.Dy(), src.Rect.Dx(), ratio, &o)
}
