package svdimg

// maxMipLevels is the deepest mip chain written to an EDDS texture.
const maxMipLevels = 11

// mipLevelCount returns the number of levels from width x height down to
// 1x1, capped at maxMipLevels and, when limit > 0, at limit.
func mipLevelCount(width, height, limit int) (int, error) {
	w, err := u32FromInt(width)
	if err != nil {
		return 0, err
	}
	h, err := u32FromInt(height)
	if err != nil {
		return 0, err
	}

	count := 1
	for w > 1 || h > 1 {
		count++
		w = max(w/2, 1)
		h = max(h/2, 1)
	}

	count = min(count, maxMipLevels)
	if limit > 0 {
		count = min(count, limit)
	}

	return count, nil
}

// mipDimension returns the size of base at mip level.
func mipDimension(base, level int) int {
	return max(base>>level, 1)
}
