// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/svdimg

package svdimg

const (
	maxInt32  = int(^uint32(0) >> 1)
	maxUint32 = uint64(^uint32(0))
)

// i32FromInt converts an int to an int32.
func i32FromInt(n int) (int32, error) {
	if n < 0 || n > maxInt32 {
		return 0, ErrSizeOverflow
	}

	return int32(n), nil
}

// u32FromInt converts an int to a uint32.
func u32FromInt(n int) (uint32, error) {
	if n < 0 || uint64(n) > maxUint32 {
		return 0, ErrSizeOverflow
	}

	// #nosec G115 -- bounds checked above.
	return uint32(n), nil
}

// pixelBytes returns height*width*4, failing when the product does not fit
// into an int32 sized buffer.
func pixelBytes(height, width int) (int, error) {
	if height <= 0 || width <= 0 {
		return 0, ErrEmptyImage
	}
	if width > maxInt32/4/height {
		return 0, ErrSizeOverflow
	}

	return height * width * 4, nil
}

// factorValues returns the number of scalars in one channel's truncated
// factors: h*k values of U, k singular values and k*w values of Vᵀ.
func factorValues(height, width, rank int) int {
	return height*rank + rank + rank*width
}
