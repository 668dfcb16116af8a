/*
Package svdimg compresses raster images by approximating every color channel
with a truncated singular value decomposition.

An interleaved 4-byte-per-pixel buffer is split into red, green, blue and
alpha planes. Each plane is decomposed as U·diag(S)·Vᵀ in float64, only the
k largest singular values and their vectors are kept, and the planes are
recomposed and merged back into a buffer of the original size. The rank k is
derived from a retention ratio in percent: k = max(1, floor(min(h, w)·ratio/100)).

Compress returns the reconstructed pixels together with Stats describing what
storing the truncated factors would cost. Factorize returns the factors
themselves; EncodeFactors and DecodeFactors store them in the SVDF container,
a small header followed by one COPY, LZ4 or ZSTD block per channel.

ReadTexture and WriteTexture read and write Arma/DayZ EDDS textures through
the same block layer, so EDDS textures can feed the pipeline and receive
its output.

Logging is silent until SetLogger is called.
*/
package svdimg
