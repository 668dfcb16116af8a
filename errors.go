package svdimg

import "errors"

var (
	// ErrDimensionMismatch indicates a buffer length or plane shape inconsistent with the declared size.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidRank indicates a truncation rank outside [1, min(height, width)].
	ErrInvalidRank = errors.New("invalid rank")
	// ErrDecompositionFailure indicates the SVD did not converge.
	ErrDecompositionFailure = errors.New("decomposition failed")
	// ErrInvalidChannelOrder indicates a channel order that is not a permutation of R, G, B, A.
	ErrInvalidChannelOrder = errors.New("invalid channel order")
	// ErrSizeOverflow indicates a size or dimension exceeds supported limits.
	ErrSizeOverflow = errors.New("size overflow")
	// ErrEmptyImage indicates a zero width or height.
	ErrEmptyImage = errors.New("empty image")

	// ErrNotFactorFile indicates missing SVDF magic.
	ErrNotFactorFile = errors.New("not an SVDF factor file")
	// ErrUnsupportedVersion indicates an unknown SVDF version.
	ErrUnsupportedVersion = errors.New("unsupported factor file version")
	// ErrInvalidValueWidth indicates a factor value width other than 4 or 8.
	ErrInvalidValueWidth = errors.New("invalid value width")
	// ErrInvalidCompression indicates an unknown block compression method.
	ErrInvalidCompression = errors.New("invalid compression method")
	// ErrFactorHeaderRead indicates factor header read failed.
	ErrFactorHeaderRead = errors.New("reading factor header failed")
	// ErrFactorHeaderWrite indicates factor header write failed.
	ErrFactorHeaderWrite = errors.New("writing factor header failed")
	// ErrFactorPayloadSize indicates a channel payload of unexpected length.
	ErrFactorPayloadSize = errors.New("factor payload size mismatch")

	// ErrInputTooLarge indicates input data is too large to encode.
	ErrInputTooLarge = errors.New("input data too large")
	// ErrCompressedDataTooLarge indicates compressed payload exceeds limits.
	ErrCompressedDataTooLarge = errors.New("compressed data too large")
	// ErrChunkTooLarge indicates a compressed chunk exceeds allowed size.
	ErrChunkTooLarge = errors.New("compressed chunk too large")
	// ErrLZ4Compress indicates LZ4 compression failed.
	ErrLZ4Compress = errors.New("LZ4 compression failed")
	// ErrLZ4Decode indicates LZ4 decode failed.
	ErrLZ4Decode = errors.New("LZ4 decode failed")
	// ErrZstdDecode indicates zstd decode failed.
	ErrZstdDecode = errors.New("zstd decode failed")
	// ErrCopySizeMismatch indicates COPY block data size mismatch.
	ErrCopySizeMismatch = errors.New("COPY block size mismatch")
	// ErrUnknownBlockMagic indicates an unknown block magic.
	ErrUnknownBlockMagic = errors.New("unknown block magic")
	// ErrInvalidTargetSize indicates invalid decoded target size.
	ErrInvalidTargetSize = errors.New("invalid target size")
	// ErrChunkStreamTruncated indicates LZ4 chunk stream is truncated.
	ErrChunkStreamTruncated = errors.New("LZ4 chunk-stream truncated")
	// ErrUnknownLZ4Flags indicates unknown LZ4 chunk flags.
	ErrUnknownLZ4Flags = errors.New("unknown LZ4 flags")
	// ErrInvalidChunkSize indicates invalid LZ4 chunk size.
	ErrInvalidChunkSize = errors.New("invalid compressed chunk size")
	// ErrDecodeOverrun indicates decoded data overruns target buffer.
	ErrDecodeOverrun = errors.New("decoded LZ4 overruns target buffer")
	// ErrDecodedSizeMismatch indicates decoded size mismatch.
	ErrDecodedSizeMismatch = errors.New("decoded size mismatch")
	// ErrBlockTableMagicRead indicates block table magic read failed.
	ErrBlockTableMagicRead = errors.New("reading block table magic failed")
	// ErrBlockTableSizeRead indicates block table size read failed.
	ErrBlockTableSizeRead = errors.New("reading block table size failed")
	// ErrBlockTableInvalidSize indicates invalid size in block table.
	ErrBlockTableInvalidSize = errors.New("invalid block size in table")
	// ErrBlockBodyRead indicates block body read failed.
	ErrBlockBodyRead = errors.New("reading block body failed")
	// ErrWriteBlockTable indicates block table write failed.
	ErrWriteBlockTable = errors.New("writing block table failed")
	// ErrWriteBlockData indicates block data write failed.
	ErrWriteBlockData = errors.New("writing block data failed")
	// ErrDecompressBlock indicates block decompression failed.
	ErrDecompressBlock = errors.New("decompress block failed")
	// ErrCompressBlock indicates block compression failed.
	ErrCompressBlock = errors.New("compress block failed")

	// ErrInvalidFormat indicates unsupported texture format.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrEmptyMipmaps indicates missing mipmap data.
	ErrEmptyMipmaps = errors.New("empty mipmaps")
	// ErrMipmapSizeMismatch indicates mipmap payload size mismatch.
	ErrMipmapSizeMismatch = errors.New("mipmap size mismatch")
	// ErrEncodeMipmap indicates BCn encoding of a mipmap failed.
	ErrEncodeMipmap = errors.New("encode mipmap failed")
	// ErrDDSHeaderRead indicates DDS header read failed.
	ErrDDSHeaderRead = errors.New("reading DDS header failed")
	// ErrDDSDX10Read indicates DDS DX10 header read failed.
	ErrDDSDX10Read = errors.New("reading DDS DX10 header failed")
	// ErrWriteDDSHeader indicates DDS magic or header write failed.
	ErrWriteDDSHeader = errors.New("writing DDS header failed")
	// ErrSkipBlockBody indicates skipping a mipmap block failed.
	ErrSkipBlockBody = errors.New("skip block body failed")
	// ErrPickLargestMip indicates failure selecting largest mip.
	ErrPickLargestMip = errors.New("failed to pick largest mip")
	// ErrDecodeImage indicates image decode failed.
	ErrDecodeImage = errors.New("decode image failed")

	// ErrOpenFile indicates file open failed.
	ErrOpenFile = errors.New("open file failed")
	// ErrCreateFile indicates file creation failed.
	ErrCreateFile = errors.New("create file failed")
)
