package svdimg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Channel identifies one of the four pixel planes.
type Channel uint8

const (
	Red Channel = iota
	Green
	Blue
	Alpha

	numChannels = 4
)

// String returns the lower-case channel name.
func (c Channel) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Alpha:
		return "alpha"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// allChannels lists the channels in the order used by ChannelSet and the
// factor container block table.
var allChannels = [numChannels]Channel{Red, Green, Blue, Alpha}

// NarrowMode selects how reconstructed real values become bytes.
type NarrowMode uint8

const (
	// NarrowWrap truncates toward zero and wraps modulo 256, the plain
	// narrowing cast. Values outside [0, 255] lose their magnitude.
	NarrowWrap NarrowMode = iota
	// NarrowClamp rounds to nearest and saturates to [0, 255].
	NarrowClamp
)

// ChannelMatrix is a height x width plane of 8-bit samples stored row-major.
type ChannelMatrix struct {
	Height int
	Width  int
	Pix    []uint8
}

// NewChannelMatrix allocates a zeroed plane.
func NewChannelMatrix(height, width int) *ChannelMatrix {
	return &ChannelMatrix{
		Height: height,
		Width:  width,
		Pix:    make([]uint8, height*width),
	}
}

// Dims returns the plane shape.
func (m *ChannelMatrix) Dims() (height, width int) {
	return m.Height, m.Width
}

// At returns the sample at row i, column j.
func (m *ChannelMatrix) At(i, j int) uint8 {
	return m.Pix[i*m.Width+j]
}

// Set stores the sample at row i, column j.
func (m *ChannelMatrix) Set(i, j int, v uint8) {
	m.Pix[i*m.Width+j] = v
}

// ToReal widens the plane into a float64 matrix.
func (m *ChannelMatrix) ToReal() *mat.Dense {
	data := make([]float64, len(m.Pix))
	for i, v := range m.Pix {
		data[i] = float64(v)
	}

	return mat.NewDense(m.Height, m.Width, data)
}

// ChannelFromReal narrows a real matrix back into a plane.
func ChannelFromReal(r mat.Matrix, mode NarrowMode) *ChannelMatrix {
	h, w := r.Dims()
	out := NewChannelMatrix(h, w)

	if d, ok := r.(*mat.Dense); ok {
		raw := d.RawMatrix()
		for i := 0; i < h; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+w]
			dst := out.Pix[i*w : (i+1)*w]
			for j, v := range row {
				dst[j] = narrow(v, mode)
			}
		}
		return out
	}

	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			out.Pix[i*w+j] = narrow(r.At(i, j), mode)
		}
	}

	return out
}

// narrow converts one real sample to a byte.
func narrow(v float64, mode NarrowMode) uint8 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	if mode == NarrowClamp {
		v = math.Round(v)
		if v <= 0 {
			return 0
		}
		if v >= 255 {
			return 255
		}
		return uint8(v)
	}

	// Mod keeps the sign, so -1 becomes int64(-1) and wraps to 255.
	return uint8(int64(math.Mod(math.Trunc(v), 256)))
}

// ChannelSet holds the four planes of one image. All planes share a shape.
type ChannelSet struct {
	Red   *ChannelMatrix
	Green *ChannelMatrix
	Blue  *ChannelMatrix
	Alpha *ChannelMatrix
}

// Plane returns the plane for c.
func (s *ChannelSet) Plane(c Channel) *ChannelMatrix {
	switch c {
	case Red:
		return s.Red
	case Green:
		return s.Green
	case Blue:
		return s.Blue
	case Alpha:
		return s.Alpha
	default:
		return nil
	}
}

// SetPlane replaces the plane for c.
func (s *ChannelSet) SetPlane(c Channel, m *ChannelMatrix) {
	switch c {
	case Red:
		s.Red = m
	case Green:
		s.Green = m
	case Blue:
		s.Blue = m
	case Alpha:
		s.Alpha = m
	}
}

// Dims returns the shared plane shape, or ErrDimensionMismatch when a plane
// is missing or the planes disagree.
func (s *ChannelSet) Dims() (height, width int, err error) {
	for i, c := range allChannels {
		p := s.Plane(c)
		if p == nil {
			return 0, 0, fmt.Errorf("%w: %s plane is missing", ErrDimensionMismatch, c)
		}
		if len(p.Pix) != p.Height*p.Width {
			return 0, 0, fmt.Errorf("%w: %s plane has %d samples for %dx%d",
				ErrDimensionMismatch, c, len(p.Pix), p.Width, p.Height)
		}
		if i == 0 {
			height, width = p.Height, p.Width
			continue
		}
		if p.Height != height || p.Width != width {
			return 0, 0, fmt.Errorf("%w: %s plane is %dx%d, %s plane is %dx%d",
				ErrDimensionMismatch, c, p.Width, p.Height, allChannels[0], width, height)
		}
	}

	return height, width, nil
}
