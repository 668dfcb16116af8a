package svdimg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// BlockMagicCOPY marks an uncompressed block.
	BlockMagicCOPY = "COPY"
	// BlockMagicLZ4 marks an LZ4 chunk-stream block.
	BlockMagicLZ4 = "LZ4 "
	// BlockMagicZSTD marks a zstd block.
	BlockMagicZSTD = "ZSTD"

	// ChunkSize is the uncompressed size of one LZ4 chunk.
	ChunkSize = 64 * 1024

	// minCompressSize is the smallest payload worth compressing.
	minCompressSize = 1024
	// maxCompressedRatio is the largest compressed/raw ratio kept; worse
	// results are stored as COPY.
	maxCompressedRatio = 0.85
)

// Compression selects the block compression method.
type Compression uint8

const (
	// CompressionLZ4 stores blocks as LZ4 chunk streams.
	CompressionLZ4 Compression = iota
	// CompressionZstd stores blocks as zstd frames.
	CompressionZstd
	// CompressionNone stores COPY blocks.
	CompressionNone
)

// String returns the method name as accepted by ParseCompression.
func (c Compression) String() string {
	switch c {
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "lz4", "zstd" or "none".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	case "none", "copy":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCompression, s)
	}
}

// Block is one stored payload: a table entry (magic, size) plus its body.
// Compressed bodies start with the little-endian uncompressed size.
type Block struct {
	Magic            string
	Data             []byte
	Size             int32
	UncompressedSize int32
}

type blockHeader struct {
	Magic string
	Size  int32
}

func copyBlock(data []byte) (*Block, error) {
	size, err := i32FromInt(len(data))
	if err != nil {
		return nil, err
	}

	return &Block{Magic: BlockMagicCOPY, Size: size, Data: data}, nil
}

// compressBlock compresses data with method, falling back to COPY for small
// payloads and for payloads that do not shrink enough.
func compressBlock(data []byte, method Compression) (*Block, error) {
	if len(data) > maxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(data))
	}
	if method == CompressionNone || len(data) < minCompressSize {
		return copyBlock(data)
	}

	var (
		magic   string
		payload []byte
		err     error
	)
	switch method {
	case CompressionLZ4:
		magic = BlockMagicLZ4
		payload, err = lz4ChunkStream(data)
	case CompressionZstd:
		magic = BlockMagicZSTD
		payload = zstdEncode(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, method)
	}
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return copyBlock(data)
	}

	// The body carries a 4-byte uncompressed size before the payload.
	total := 4 + len(payload)
	if total > maxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCompressedDataTooLarge, total)
	}
	if float64(total) > float64(len(data))*maxCompressedRatio {
		return copyBlock(data)
	}

	uncompressedSize, err := i32FromInt(len(data))
	if err != nil {
		return nil, err
	}
	size, err := i32FromInt(total)
	if err != nil {
		return nil, err
	}

	body := make([]byte, 4, total)
	binary.LittleEndian.PutUint32(body, uint32(uncompressedSize))

	return &Block{
		Magic:            magic,
		Size:             size,
		UncompressedSize: uncompressedSize,
		Data:             append(body, payload...),
	}, nil
}

// lz4ChunkStream encodes data as independent LZ4 blocks of ChunkSize input
// bytes, each prefixed by a 3-byte compressed size and a flag byte (0x80 on
// the last chunk). It returns nil when a chunk does not compress.
func lz4ChunkStream(data []byte) ([]byte, error) {
	var stream bytes.Buffer
	compressBuf := make([]byte, lz4.CompressBlockBound(ChunkSize))

	for i := 0; i < len(data); i += ChunkSize {
		end := min(i+ChunkSize, len(data))
		src := data[i:end]

		cn, err := lz4.CompressBlockHC(src, compressBuf, 0, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Compress, err)
		}
		if cn == 0 || float64(cn) > float64(len(src))*maxCompressedRatio {
			return nil, nil
		}
		if cn > 0x7FFFFF {
			return nil, fmt.Errorf("%w: %d", ErrChunkTooLarge, cn)
		}

		stream.WriteByte(byte(cn))
		stream.WriteByte(byte(cn >> 8))
		stream.WriteByte(byte(cn >> 16))
		if end == len(data) {
			stream.WriteByte(0x80)
		} else {
			stream.WriteByte(0x00)
		}
		stream.Write(compressBuf[:cn])
	}

	return stream.Bytes(), nil
}

// lz4DecodeChunkStream inflates a chunk stream into exactly targetSize bytes.
// Chunks may reference up to 64 KiB of previously decoded output, as EDDS
// textures written by the game tools do.
func lz4DecodeChunkStream(data []byte, targetSize int) ([]byte, error) {
	const dictCap = 64 * 1024
	dict := make([]byte, dictCap)
	dictSize := 0

	target := make([]byte, targetSize)
	outIdx := 0
	r := bytes.NewReader(data)

	for {
		if r.Len() < 4 {
			return nil, fmt.Errorf("%w: need 4 bytes header, have %d", ErrChunkStreamTruncated, r.Len())
		}

		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChunkStreamTruncated, err)
		}

		cSize := int(hdr[0]) | (int(hdr[1]) << 8) | (int(hdr[2]) << 16)
		flags := hdr[3]
		if (flags &^ 0x80) != 0 {
			return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownLZ4Flags, flags)
		}
		if cSize <= 0 || cSize > r.Len() {
			return nil, fmt.Errorf("%w: %d (remaining %d)", ErrInvalidChunkSize, cSize, r.Len())
		}

		compressed := make([]byte, cSize)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrChunkStreamTruncated, err)
		}

		remaining := targetSize - outIdx
		if remaining <= 0 {
			return nil, ErrDecodeOverrun
		}
		dst := target[outIdx : outIdx+min(ChunkSize, remaining)]

		n, err := lz4.UncompressBlockWithDict(compressed, dst, dict[:dictSize])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLZ4Decode, err)
		}
		outIdx += n

		decoded := target[outIdx-n : outIdx]
		if len(decoded) >= dictCap {
			copy(dict, decoded[len(decoded)-dictCap:])
			dictSize = dictCap
		} else if avail := dictCap - dictSize; len(decoded) <= avail {
			copy(dict[dictSize:], decoded)
			dictSize += len(decoded)
		} else {
			copy(dict, dict[len(decoded)-avail:dictSize])
			copy(dict[dictCap-len(decoded):], decoded)
			dictSize = dictCap
		}

		if (flags & 0x80) != 0 {
			break
		}
	}

	if outIdx != targetSize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, targetSize, outIdx)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes left after decode", ErrDecodedSizeMismatch, r.Len())
	}

	return target, nil
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(err)
		}
		return dec
	},
}

func zstdEncode(data []byte) []byte {
	enc := zstdEncPool.Get().(*zstd.Encoder)
	out := enc.EncodeAll(data, nil)
	zstdEncPool.Put(enc)
	return out
}

func zstdDecode(data []byte, targetSize int) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(data, make([]byte, 0, targetSize))
	zstdDecPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrZstdDecode, err)
	}
	if len(out) != targetSize {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDecodedSizeMismatch, targetSize, len(out))
	}

	return out, nil
}

// writeBlockTable writes one (magic, size) entry per block.
func writeBlockTable(w io.Writer, blocks []*Block) error {
	for i, block := range blocks {
		if _, err := w.Write([]byte(block.Magic)); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrWriteBlockTable, i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, block.Size); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrWriteBlockTable, i, err)
		}
	}

	return nil
}

// writeBlockData writes the block body (no table entry).
func writeBlockData(w io.Writer, block *Block) error {
	if _, err := w.Write(block.Data); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteBlockData, err)
	}

	return nil
}

// decompressBlock inflates a block into exactly expectedSize bytes.
func decompressBlock(block *Block, expectedSize int) ([]byte, error) {
	if expectedSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTargetSize, expectedSize)
	}

	switch block.Magic {
	case BlockMagicCOPY:
		if len(block.Data) != expectedSize {
			return nil, fmt.Errorf("%w: expected %d, got %d", ErrCopySizeMismatch, expectedSize, len(block.Data))
		}
		out := make([]byte, len(block.Data))
		copy(out, block.Data)
		return out, nil

	case BlockMagicLZ4, BlockMagicZSTD:
		if len(block.Data) < 4 {
			return nil, fmt.Errorf("%w: block body of %d bytes", ErrChunkStreamTruncated, len(block.Data))
		}
		size := int(binary.LittleEndian.Uint32(block.Data[:4]))
		if size != expectedSize {
			return nil, fmt.Errorf("%w: header says %d, expected %d", ErrDecodedSizeMismatch, size, expectedSize)
		}
		if block.Magic == BlockMagicLZ4 {
			return lz4DecodeChunkStream(block.Data[4:], expectedSize)
		}
		return zstdDecode(block.Data[4:], expectedSize)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlockMagic, block.Magic)
	}
}

func readBlockTable(r io.Reader, count int) ([]blockHeader, error) {
	hdrs := make([]blockHeader, 0, count)
	for i := 0; i < count; i++ {
		var magicBytes [4]byte
		if _, err := io.ReadFull(r, magicBytes[:]); err != nil {
			return nil, fmt.Errorf("%w: %d: %v", ErrBlockTableMagicRead, i, err)
		}

		magic := string(magicBytes[:])
		var size int32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("%w: %d: %v", ErrBlockTableSizeRead, i, err)
		}

		switch magic {
		case BlockMagicCOPY, BlockMagicLZ4, BlockMagicZSTD:
		default:
			return nil, fmt.Errorf("%w: %d: %q", ErrUnknownBlockMagic, i, magic)
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: %d: %d", ErrBlockTableInvalidSize, i, size)
		}

		hdrs = append(hdrs, blockHeader{Magic: magic, Size: size})
	}

	return hdrs, nil
}

func readBlockBody(r io.Reader, h blockHeader) (*Block, error) {
	data := make([]byte, h.Size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBlockBodyRead, h.Magic, err)
	}

	return &Block{Magic: h.Magic, Size: h.Size, Data: data}, nil
}
