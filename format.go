package svdimg

import (
	"github.com/woozymasta/bcn"
)

// textureFormat describes how one bcn.Format is stored in a DDS header.
type textureFormat struct {
	format bcn.Format
	// fourCC is empty for uncompressed RGB formats.
	fourCC string
	// aliases are further FourCC codes decoded as this format.
	aliases []string
	dxgi    uint32
	// blockBytes is the size of one 4x4 block; zero for 4 bytes per pixel.
	blockBytes int
	// masks are the R, G, B, A bit masks of uncompressed formats.
	masks [4]uint32
}

var textureFormats = []textureFormat{
	{format: bcn.FormatDXT1, fourCC: "DXT1", dxgi: 71, blockBytes: 8},
	{format: bcn.FormatDXT3, fourCC: "DXT3", aliases: []string{"DXT2"}, dxgi: 74, blockBytes: 16},
	{format: bcn.FormatDXT5, fourCC: "DXT5", aliases: []string{"DXT4"}, dxgi: 77, blockBytes: 16},
	{format: bcn.FormatBC4, fourCC: "ATI1", aliases: []string{"BC4U", "BC4S"}, dxgi: 80, blockBytes: 8},
	{format: bcn.FormatBC5, fourCC: "ATI2", aliases: []string{"BC5U", "BC5S"}, dxgi: 83, blockBytes: 16},
	{format: bcn.FormatBGRA8, dxgi: 87, masks: [4]uint32{0x00ff0000, 0x0000ff00, 0x000000ff, 0xff000000}},
	{format: bcn.FormatRGBA8, dxgi: 28, masks: [4]uint32{0x000000ff, 0x0000ff00, 0x00ff0000, 0xff000000}},
}

func lookupFormat(format bcn.Format) (textureFormat, bool) {
	for _, tf := range textureFormats {
		if tf.format == format {
			return tf, true
		}
	}

	return textureFormat{}, false
}

// detectFormat maps DDS pixel format fields (or the DX10 DXGI code) to a
// bcn.Format. It returns bcn.FormatUnknown for anything unsupported.
func detectFormat(header *bcn.DDSHeader, dx10 *bcn.DDSHeaderDX10) bcn.Format {
	if dx10 != nil {
		for _, tf := range textureFormats {
			if tf.dxgi == dx10.DXGIFormat {
				return tf.format
			}
		}
		return bcn.FormatUnknown
	}

	pf := header.PixelFormat
	if (pf.Flags & bcn.DDSPFFourCC) != 0 {
		code := fourCCString(pf.FourCC)
		for _, tf := range textureFormats {
			if tf.fourCC == "" {
				continue
			}
			if tf.fourCC == code {
				return tf.format
			}
			for _, alias := range tf.aliases {
				if alias == code {
					return tf.format
				}
			}
		}
		return bcn.FormatUnknown
	}

	if (pf.Flags&bcn.DDSPFRGB) != 0 && (pf.Flags&bcn.DDSPFAlphaPixels) != 0 && pf.RGBBitCount == 32 {
		masks := [4]uint32{pf.RBitMask, pf.GBitMask, pf.BBitMask, pf.ABitMask}
		for _, tf := range textureFormats {
			if tf.fourCC == "" && tf.masks == masks {
				return tf.format
			}
		}
	}

	if (pf.Flags&bcn.DDSPFLuminance) != 0 && pf.RGBBitCount == 8 {
		return bcn.FormatRGBA8
	}

	return bcn.FormatUnknown
}

// expectedDataLength returns the payload size of one width x height level,
// or -1 for unsupported formats.
func expectedDataLength(format bcn.Format, width, height int) int {
	tf, ok := lookupFormat(format)
	if !ok {
		return -1
	}
	if tf.blockBytes == 0 {
		return width * height * 4
	}

	return ((width + 3) / 4) * ((height + 3) / 4) * tf.blockBytes
}

func fourCCString(value uint32) string {
	return string([]byte{
		byte(value),
		byte(value >> 8),
		byte(value >> 16),
		byte(value >> 24),
	})
}

func fourCCValue(code string) uint32 {
	return uint32(code[0]) | uint32(code[1])<<8 | uint32(code[2])<<16 | uint32(code[3])<<24
}

// makeDDSHeader builds the header of an EDDS texture. Reserved1[1] carries
// the "ENF1" tag the Enfusion tools expect.
func makeDDSHeader(width, height, mipMapCount uint32, format bcn.Format) (*bcn.DDSHeader, error) {
	tf, ok := lookupFormat(format)
	if !ok {
		return nil, ErrInvalidFormat
	}

	flags := uint32(bcn.DDSFlagCaps | bcn.DDSFlagHeight | bcn.DDSFlagWidth | bcn.DDSFlagPixelFormat)
	caps := uint32(bcn.DDSCapsTexture)
	if mipMapCount > 1 {
		flags |= bcn.DDSFlagMipmapCount
		caps |= bcn.DDSCapsComplex | bcn.DDSCapsMipmap
	}

	hdr := &bcn.DDSHeader{
		Size:        bcn.DDSHeaderSize,
		Flags:       flags,
		Height:      height,
		Width:       width,
		Depth:       1,
		MipMapCount: mipMapCount,
		Caps:        caps,
	}
	hdr.Reserved1[1] = fourCCValue("ENF1")
	hdr.PixelFormat.Size = bcn.DDSPixelFormatSize

	if tf.fourCC != "" {
		hdr.Flags |= bcn.DDSFlagLinearSize
		hdr.PixelFormat.Flags = bcn.DDSPFFourCC
		hdr.PixelFormat.FourCC = fourCCValue(tf.fourCC)
		return hdr, nil
	}

	hdr.Flags |= bcn.DDSFlagPitch
	hdr.PixelFormat.Flags = bcn.DDSPFRGB | bcn.DDSPFAlphaPixels
	hdr.PixelFormat.RGBBitCount = 32
	hdr.PixelFormat.RBitMask = tf.masks[0]
	hdr.PixelFormat.GBitMask = tf.masks[1]
	hdr.PixelFormat.BBitMask = tf.masks[2]
	hdr.PixelFormat.ABitMask = tf.masks[3]
	hdr.PitchOrLinearSize = width * 4

	return hdr, nil
}
