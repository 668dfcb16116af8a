package svdimg

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/woozymasta/bcn"
)

// TextureOptions configures EDDS texture writing. The zero value writes a
// full BGRA8 mip chain in LZ4 blocks.
type TextureOptions struct {
	// Format is the pixel encoding. bcn.FormatUnknown means bcn.FormatBGRA8.
	Format bcn.Format
	// MaxMipMaps limits the mip chain; zero means the full chain.
	MaxMipMaps int
	// Compression is CompressionLZ4 or CompressionNone. EDDS has no zstd
	// block kind.
	Compression Compression
	// EncodeOptions are passed to the BCn encoder.
	EncodeOptions *bcn.EncodeOptions
	// DecodeOptions are passed to the BCn decoder when reading.
	DecodeOptions *bcn.DecodeOptions
}

// ReadTextureConfig reads the size of an EDDS texture without decoding it.
func ReadTextureConfig(path string) (image.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	header, _, err := readDDSHeaders(f)
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{
		Width:      int(header.Width),
		Height:     int(header.Height),
		ColorModel: color.NRGBAModel,
	}, nil
}

// ReadTexture decodes the largest mip level of the EDDS texture at path.
func ReadTexture(path string, opts *TextureOptions) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrOpenFile, path, err)
	}
	defer func() { _ = f.Close() }()

	return DecodeTexture(bufio.NewReader(f), opts)
}

// DecodeTexture decodes the largest mip level of an EDDS texture from r.
// Smaller levels precede it in the stream and are skipped.
func DecodeTexture(r io.Reader, opts *TextureOptions) (image.Image, error) {
	header, dx10, err := readDDSHeaders(r)
	if err != nil {
		return nil, err
	}

	format := detectFormat(header, dx10)
	if format == bcn.FormatUnknown {
		return nil, fmt.Errorf("%w: unsupported DDS pixel format", ErrInvalidFormat)
	}

	count := 1
	if (header.Caps&bcn.DDSCapsMipmap) != 0 && header.MipMapCount > 0 {
		count = int(header.MipMapCount)
	}
	if count > maxMipLevels*2 {
		return nil, fmt.Errorf("%w: %d mipmaps", ErrSizeOverflow, count)
	}

	table, err := readBlockTable(r, count)
	if err != nil {
		return nil, err
	}

	for i, h := range table {
		level := count - i - 1
		if level != 0 {
			if _, err := io.CopyN(io.Discard, r, int64(h.Size)); err != nil {
				return nil, fmt.Errorf("%w: mipmap %d: %v", ErrSkipBlockBody, level, err)
			}
			continue
		}

		block, err := readBlockBody(r, h)
		if err != nil {
			return nil, err
		}

		width, height := int(header.Width), int(header.Height)
		data, err := decompressBlock(block, expectedDataLength(format, width, height))
		if err != nil {
			return nil, fmt.Errorf("%w: mipmap 0: %w", ErrDecompressBlock, err)
		}

		var decOpts *bcn.DecodeOptions
		if opts != nil {
			decOpts = opts.DecodeOptions
		}
		img, err := bcn.DecodeImageWithOptions(data, width, height, format, decOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeImage, err)
		}

		return img, nil
	}

	return nil, fmt.Errorf("%w: mipmaps=%d", ErrPickLargestMip, count)
}

// WriteTexture encodes img as an EDDS texture at path.
func WriteTexture(img image.Image, path string, opts *TextureOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrCreateFile, path, err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	if err := EncodeTexture(bw, img, opts); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteBlockData, err)
	}

	return f.Close()
}

// EncodeTexture writes img to w as an EDDS texture with a mip chain.
func EncodeTexture(w io.Writer, img image.Image, opts *TextureOptions) error {
	var o TextureOptions
	if opts != nil {
		o = *opts
	}
	if o.Format == bcn.FormatUnknown {
		o.Format = bcn.FormatBGRA8
	}
	if o.Compression != CompressionLZ4 && o.Compression != CompressionNone {
		return fmt.Errorf("%w: %s in EDDS", ErrInvalidCompression, o.Compression)
	}

	bounds := img.Bounds()
	count, err := mipLevelCount(bounds.Dx(), bounds.Dy(), o.MaxMipMaps)
	if err != nil {
		return err
	}

	mips := bcn.GenerateMipmaps(img, false)
	if len(mips) > count {
		mips = mips[:count]
	}

	payloads := make([][]byte, len(mips))
	for i, mip := range mips {
		data, _, _, err := bcn.EncodeImageWithOptions(mip, o.Format, o.EncodeOptions)
		if err != nil {
			return fmt.Errorf("%w: mipmap %d: %v", ErrEncodeMipmap, i, err)
		}
		payloads[i] = data
	}

	if err := writeTextureBlocks(w, o.Format, bounds.Dx(), bounds.Dy(), payloads, o.Compression); err != nil {
		return err
	}

	Logger().Debug("svdimg: texture encoded",
		"format", o.Format, "mipmaps", len(payloads), "compression", o.Compression.String())

	return nil
}

// writeTextureBlocks writes the DDS header, then the block table and bodies
// from the smallest mip to the largest. mipmaps is ordered largest first.
func writeTextureBlocks(w io.Writer, format bcn.Format, width, height int, mipmaps [][]byte, method Compression) error {
	if len(mipmaps) == 0 {
		return ErrEmptyMipmaps
	}

	w32, err := u32FromInt(width)
	if err != nil {
		return err
	}
	h32, err := u32FromInt(height)
	if err != nil {
		return err
	}
	mip32, err := u32FromInt(len(mipmaps))
	if err != nil {
		return err
	}

	header, err := makeDDSHeader(w32, h32, mip32, format)
	if err != nil {
		return err
	}

	blocks := make([]*Block, len(mipmaps))
	for i := range mipmaps {
		level := len(mipmaps) - i - 1
		want := expectedDataLength(format, mipDimension(width, level), mipDimension(height, level))
		if len(mipmaps[level]) != want {
			return fmt.Errorf("%w: mipmap %d: expected %d, got %d", ErrMipmapSizeMismatch, level, want, len(mipmaps[level]))
		}

		block, err := compressBlock(mipmaps[level], method)
		if err != nil {
			return fmt.Errorf("%w: mipmap %d: %v", ErrCompressBlock, level, err)
		}
		blocks[i] = block
	}

	if err := bcn.WriteDDSMagic(w); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDDSHeader, err)
	}
	if err := bcn.WriteDDSHeader(w, header); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteDDSHeader, err)
	}
	if err := writeBlockTable(w, blocks); err != nil {
		return err
	}
	for i, block := range blocks {
		if err := writeBlockData(w, block); err != nil {
			return fmt.Errorf("%w: mipmap %d: %v", ErrWriteBlockData, len(blocks)-i-1, err)
		}
	}

	return nil
}

// readDDSHeaders reads the DDS magic, header and optional DX10 header.
func readDDSHeaders(r io.Reader) (*bcn.DDSHeader, *bcn.DDSHeaderDX10, error) {
	header, err := bcn.ReadDDSHeader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSHeaderRead, err)
	}

	dx10, err := bcn.ReadDDSHeaderDX10(r, header)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDDSDX10Read, err)
	}

	return header, dx10, nil
}
