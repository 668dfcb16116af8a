package svdimg

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options configures a compression request. The zero value is valid.
type Options struct {
	// Order is the byte layout of the pixel buffer. The zero value means
	// OrderRGBA.
	Order ChannelOrder
	// BytesPerValue is the storage width of one factor scalar used for
	// Stats.PostBytes. Zero means DefaultBytesPerValue.
	BytesPerValue int
	// Narrow selects how reconstructed samples are cast back to bytes.
	Narrow NarrowMode
}

func (o *Options) resolve() Options {
	var r Options
	if o != nil {
		r = *o
	}
	if r.Order == (ChannelOrder{}) {
		r.Order = OrderRGBA
	}
	if r.BytesPerValue <= 0 {
		r.BytesPerValue = DefaultBytesPerValue
	}

	return r
}

// Compress approximates every channel of an interleaved height x width buffer
// by its rank-k truncated SVD, k = RankFor(min(height, width), ratio), and
// returns the reconstructed buffer in the same layout.
//
// The four decompositions run concurrently, as do the four
// truncate/recompose/cast steps. The first failing channel cancels the rest
// and its error is returned; no buffer is returned on failure. Cancelling ctx
// abandons the request between stages.
func Compress(ctx context.Context, buf []byte, height, width, ratio int, opts *Options) ([]byte, Stats, error) {
	o := opts.resolve()

	set, err := Split(buf, height, width, o.Order)
	if err != nil {
		return nil, Stats{}, err
	}

	triples, err := decomposeAll(ctx, set)
	if err != nil {
		return nil, Stats{}, err
	}

	k := RankFor(min(height, width), ratio)
	stats := newStats(height, width, k, o.BytesPerValue)
	Logger().Debug("svdimg: rank selected",
		"width", width, "height", height, "ratio", ClampRatio(ratio), "rank", k)

	var planes [numChannels]*ChannelMatrix
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range allChannels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := Truncate(triples[c], k)
			if err != nil {
				return fmt.Errorf("%s channel: %w", c, err)
			}
			planes[c] = ChannelFromReal(Recompose(t), o.Narrow)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	out, err := Merge(planeSet(planes), o.Order)
	if err != nil {
		return nil, Stats{}, err
	}

	return out, stats, nil
}

// Factorize runs the decomposition stage of Compress and returns the
// truncated factors instead of pixels. The factors can be stored with
// EncodeFactors and turned back into pixels with Factors.Reconstruct.
func Factorize(ctx context.Context, buf []byte, height, width, ratio int, opts *Options) (*Factors, Stats, error) {
	o := opts.resolve()

	set, err := Split(buf, height, width, o.Order)
	if err != nil {
		return nil, Stats{}, err
	}

	triples, err := decomposeAll(ctx, set)
	if err != nil {
		return nil, Stats{}, err
	}

	k := RankFor(min(height, width), ratio)
	f := &Factors{
		Height: height,
		Width:  width,
		Rank:   k,
		Order:  o.Order,
	}
	for _, c := range allChannels {
		t, err := Truncate(triples[c], k)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("%s channel: %w", c, err)
		}
		f.SetTriple(c, t)
	}

	return f, newStats(height, width, k, o.BytesPerValue), nil
}

// decomposeAll decomposes the four planes concurrently and waits for all of
// them.
func decomposeAll(ctx context.Context, set *ChannelSet) ([numChannels]*Triple, error) {
	var triples [numChannels]*Triple

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range allChannels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			t, err := Decompose(set.Plane(c).ToReal())
			if err != nil {
				return fmt.Errorf("%s channel: %w", c, err)
			}
			triples[c] = t
			Logger().Debug("svdimg: channel decomposed",
				"channel", c.String(), "rank", t.Rank(), "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return triples, err
	}

	return triples, nil
}

// reconstructAll recomposes and narrows every triple concurrently.
func reconstructAll(ctx context.Context, triples [numChannels]*Triple, mode NarrowMode) (*ChannelSet, error) {
	var planes [numChannels]*ChannelMatrix

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range allChannels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			planes[c] = ChannelFromReal(Recompose(triples[c]), mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return planeSet(planes), nil
}

func planeSet(planes [numChannels]*ChannelMatrix) *ChannelSet {
	return &ChannelSet{
		Red:   planes[Red],
		Green: planes[Green],
		Blue:  planes[Blue],
		Alpha: planes[Alpha],
	}
}
