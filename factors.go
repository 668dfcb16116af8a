package svdimg

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
)

const (
	// FactorMagic is the byte string prefix of every SVDF factor file.
	FactorMagic = "SVDF"
	// FactorVersion is the container version written by EncodeFactors.
	FactorVersion = 1

	// factorHeaderSize is magic, version, value width, order and three u32.
	factorHeaderSize = 4 + 1 + 1 + BytesPerPixel + 3*4
)

// Factors holds the truncated decompositions of the four channels of one
// image, all of the same rank.
type Factors struct {
	Height int
	Width  int
	Rank   int
	// Order is the byte layout Reconstruct produces.
	Order ChannelOrder

	Red   *Triple
	Green *Triple
	Blue  *Triple
	Alpha *Triple
}

// Triple returns the factors of channel c.
func (f *Factors) Triple(c Channel) *Triple {
	switch c {
	case Red:
		return f.Red
	case Green:
		return f.Green
	case Blue:
		return f.Blue
	case Alpha:
		return f.Alpha
	default:
		return nil
	}
}

// SetTriple replaces the factors of channel c.
func (f *Factors) SetTriple(c Channel, t *Triple) {
	switch c {
	case Red:
		f.Red = t
	case Green:
		f.Green = t
	case Blue:
		f.Blue = t
	case Alpha:
		f.Alpha = t
	}
}

// Validate checks that every channel is present with the declared shape and
// rank.
func (f *Factors) Validate() error {
	if f.Height <= 0 || f.Width <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyImage, f.Width, f.Height)
	}
	if f.Rank < 1 || f.Rank > min(f.Height, f.Width) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidRank, f.Rank, min(f.Height, f.Width))
	}
	if err := f.Order.Validate(); err != nil {
		return err
	}

	for _, c := range allChannels {
		t := f.Triple(c)
		if t == nil || t.U == nil || t.VT == nil {
			return fmt.Errorf("%w: %s factors are missing", ErrDimensionMismatch, c)
		}
		uh, uk := t.U.Dims()
		vk, vw := t.VT.Dims()
		if uh != f.Height || vw != f.Width {
			return fmt.Errorf("%w: %s factors reconstruct %dx%d, want %dx%d",
				ErrDimensionMismatch, c, vw, uh, f.Width, f.Height)
		}
		if uk != f.Rank || vk != f.Rank || t.Rank() != f.Rank {
			return fmt.Errorf("%w: %s factors have rank %d/%d/%d, want %d",
				ErrInvalidRank, c, uk, t.Rank(), vk, f.Rank)
		}
	}

	return nil
}

// Reconstruct recomposes every channel concurrently and merges the planes
// into an interleaved buffer in f.Order.
func (f *Factors) Reconstruct(ctx context.Context, mode NarrowMode) ([]byte, error) {
	set, err := f.reconstructPlanes(ctx, mode)
	if err != nil {
		return nil, err
	}

	return Merge(set, f.Order)
}

// Image recomposes the factors into a non-premultiplied RGBA image.
func (f *Factors) Image(ctx context.Context, mode NarrowMode) (*image.NRGBA, error) {
	set, err := f.reconstructPlanes(ctx, mode)
	if err != nil {
		return nil, err
	}
	pix, err := Merge(set, OrderRGBA)
	if err != nil {
		return nil, err
	}

	return &image.NRGBA{
		Pix:    pix,
		Stride: f.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}

func (f *Factors) reconstructPlanes(ctx context.Context, mode NarrowMode) (*ChannelSet, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var triples [numChannels]*Triple
	for _, c := range allChannels {
		triples[c] = f.Triple(c)
	}

	return reconstructAll(ctx, triples, mode)
}

// EncodeOptions are optional arguments to EncodeFactors. The zero value is
// valid and means float64 values in LZ4 blocks.
type EncodeOptions struct {
	// ValueWidth is 4 (float32) or 8 (float64). Zero means 8.
	ValueWidth int
	// Compression selects the block compression method.
	Compression Compression
}

func (o *EncodeOptions) resolve() (EncodeOptions, error) {
	var r EncodeOptions
	if o != nil {
		r = *o
	}
	if r.ValueWidth == 0 {
		r.ValueWidth = DefaultBytesPerValue
	}
	if r.ValueWidth != 4 && r.ValueWidth != 8 {
		return r, fmt.Errorf("%w: %d", ErrInvalidValueWidth, r.ValueWidth)
	}
	switch r.Compression {
	case CompressionLZ4, CompressionZstd, CompressionNone:
	default:
		return r, fmt.Errorf("%w: %d", ErrInvalidCompression, r.Compression)
	}

	return r, nil
}

// EncodeFactors writes f to w in the SVDF format.
//
// opts may be nil, which means to use the default configuration.
func EncodeFactors(w io.Writer, f *Factors, opts *EncodeOptions) error {
	o, err := opts.resolve()
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	h32, err := u32FromInt(f.Height)
	if err != nil {
		return err
	}
	w32, err := u32FromInt(f.Width)
	if err != nil {
		return err
	}
	k32, err := u32FromInt(f.Rank)
	if err != nil {
		return err
	}

	blocks := make([]*Block, numChannels)
	for i, c := range allChannels {
		payload := packTriple(f.Triple(c), o.ValueWidth)
		block, err := compressBlock(payload, o.Compression)
		if err != nil {
			return fmt.Errorf("%w: %s channel: %v", ErrCompressBlock, c, err)
		}
		blocks[i] = block
	}

	var hdr [factorHeaderSize]byte
	copy(hdr[:4], FactorMagic)
	hdr[4] = FactorVersion
	hdr[5] = byte(o.ValueWidth)
	for n, c := range f.Order {
		hdr[6+n] = byte(c)
	}
	binary.LittleEndian.PutUint32(hdr[10:], h32)
	binary.LittleEndian.PutUint32(hdr[14:], w32)
	binary.LittleEndian.PutUint32(hdr[18:], k32)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrFactorHeaderWrite, err)
	}

	if err := writeBlockTable(w, blocks); err != nil {
		return err
	}
	for i, block := range blocks {
		if err := writeBlockData(w, block); err != nil {
			return fmt.Errorf("%w: %s channel: %v", ErrWriteBlockData, allChannels[i], err)
		}
	}

	Logger().Debug("svdimg: factors encoded",
		"rank", f.Rank, "valueWidth", o.ValueWidth, "compression", o.Compression.String())

	return nil
}

// DecodeFactors reads an SVDF factor file from r.
func DecodeFactors(r io.Reader) (*Factors, error) {
	var hdr [factorHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFactorHeaderRead, err)
	}
	if string(hdr[:4]) != FactorMagic {
		return nil, ErrNotFactorFile
	}
	if hdr[4] != FactorVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr[4])
	}

	valueWidth := int(hdr[5])
	if valueWidth != 4 && valueWidth != 8 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidValueWidth, valueWidth)
	}

	f := &Factors{
		Height: int(binary.LittleEndian.Uint32(hdr[10:])),
		Width:  int(binary.LittleEndian.Uint32(hdr[14:])),
		Rank:   int(binary.LittleEndian.Uint32(hdr[18:])),
	}
	for n := range f.Order {
		f.Order[n] = Channel(hdr[6+n])
	}
	if err := f.Order.Validate(); err != nil {
		return nil, err
	}
	if _, err := pixelBytes(f.Height, f.Width); err != nil {
		return nil, fmt.Errorf("%w: %dx%d", err, f.Width, f.Height)
	}
	if f.Rank < 1 || f.Rank > min(f.Height, f.Width) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidRank, f.Rank, min(f.Height, f.Width))
	}

	expected := factorValues(f.Height, f.Width, f.Rank) * valueWidth
	if expected > maxInt32 {
		return nil, fmt.Errorf("%w: channel payload of %d bytes", ErrSizeOverflow, expected)
	}

	table, err := readBlockTable(r, numChannels)
	if err != nil {
		return nil, err
	}
	for i, c := range allChannels {
		block, err := readBlockBody(r, table[i])
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", c, err)
		}
		payload, err := decompressBlock(block, expected)
		if err != nil {
			return nil, fmt.Errorf("%w: %s channel: %w", ErrDecompressBlock, c, err)
		}
		t, err := unpackTriple(payload, f.Height, f.Width, f.Rank, valueWidth)
		if err != nil {
			return nil, fmt.Errorf("%s channel: %w", c, err)
		}
		f.SetTriple(c, t)
	}

	return f, nil
}

// WriteFactorsFile encodes f into the file at path.
func WriteFactorsFile(path string, f *Factors, opts *EncodeOptions) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	defer func() { _ = file.Close() }()

	bw := bufio.NewWriter(file)
	if err := EncodeFactors(bw, f, opts); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteBlockData, err)
	}

	return file.Close()
}

// ReadFactorsFile decodes the SVDF file at path.
func ReadFactorsFile(path string) (*Factors, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = file.Close() }()

	return DecodeFactors(bufio.NewReader(file))
}

// packTriple serialises U (row-major), S and Vᵀ (row-major) as little-endian
// floats of the given width.
func packTriple(t *Triple, valueWidth int) []byte {
	h, w := t.Dims()
	k := t.Rank()
	out := make([]byte, 0, factorValues(h, w, k)*valueWidth)

	put := func(v float64) {
		if valueWidth == 4 {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(v)))
		} else {
			out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
		}
	}

	for i := 0; i < h; i++ {
		for j := 0; j < k; j++ {
			put(t.U.At(i, j))
		}
	}
	for _, s := range t.S {
		put(s)
	}
	for i := 0; i < k; i++ {
		for j := 0; j < w; j++ {
			put(t.VT.At(i, j))
		}
	}

	return out
}

// unpackTriple is the inverse of packTriple.
func unpackTriple(data []byte, height, width, rank, valueWidth int) (*Triple, error) {
	n := factorValues(height, width, rank)
	if len(data) != n*valueWidth {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrFactorPayloadSize, n*valueWidth, len(data))
	}

	values := make([]float64, n)
	for i := range values {
		if valueWidth == 4 {
			values[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		} else {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
	}

	uEnd := height * rank
	sEnd := uEnd + rank

	return &Triple{
		U:  mat.NewDense(height, rank, values[:uEnd]),
		S:  values[uEnd:sEnd],
		VT: mat.NewDense(rank, width, values[sEnd:]),
	}, nil
}
