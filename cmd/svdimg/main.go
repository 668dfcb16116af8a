// svdimg compresses images by truncating the singular value decomposition of
// each color channel.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/woozymasta/svdimg"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ratioFlag       = flag.Int("ratio", svdimg.DefaultRatio, "retention ratio in percent (1-100)")
	outputFlag      = flag.String("output", "png", "output format")
	outFlag         = flag.String("o", "", "output path (default stdout)")
	compressionFlag = flag.String("compression", "lz4", "block compression for svdf and edds output")
	valueWidthFlag  = flag.Int("value-width", svdimg.DefaultBytesPerValue, "bytes per stored factor value (4 or 8)")
	clampFlag       = flag.Bool("clamp", false, "round and saturate reconstructed samples instead of wrapping")
	verboseFlag     = flag.Bool("v", false, "log pipeline stages to stderr")
)

const usageStr = `svdimg compresses images with a per-channel truncated SVD.

Usage:

    svdimg [flags] [path]

The path to the input image file is optional. If omitted, stdin is read.
Inputs are BMP, GIF, JPEG, PNG, TIFF, WEBP, EDDS textures or SVDF factor
files. SVDF inputs are reconstructed as stored; -ratio does not apply.

Flags:

    -ratio=70          retention ratio in percent, 1 to 100
    -output=png        png (default), edds or svdf
    -o=path            write to path instead of stdout
    -compression=lz4   lz4 (default), zstd or none; edds accepts lz4 or none
    -value-width=8     4 (float32) or 8 (float64) bytes per svdf value
    -clamp             round and saturate samples instead of wrapping
    -v                 log pipeline stages to stderr

Size statistics are written to stderr.
`

var ErrBadOutputFlag = errors.New("main: bad -output flag")

func main() {
	if err := main1(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func main1() error {
	flag.Usage = func() { os.Stderr.WriteString(usageStr) }
	flag.Parse()

	switch *outputFlag {
	case "png", "edds", "svdf":
		// No-op.
	default:
		return ErrBadOutputFlag
	}
	method, err := svdimg.ParseCompression(*compressionFlag)
	if err != nil {
		return err
	}

	if *verboseFlag {
		svdimg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	inFile := os.Stdin
	switch flag.NArg() {
	case 0:
		// No-op.
	case 1:
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		inFile = f
	default:
		return errors.New("too many filenames; the maximum is one")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	narrow := svdimg.NarrowWrap
	if *clampFlag {
		narrow = svdimg.NarrowClamp
	}

	factors, err := load(ctx, bufio.NewReader(inFile), narrow)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	switch *outputFlag {
	case "svdf":
		err = svdimg.EncodeFactors(&out, factors, &svdimg.EncodeOptions{
			ValueWidth:  *valueWidthFlag,
			Compression: method,
		})
	default:
		var img image.Image
		img, err = factors.Image(ctx, narrow)
		if err != nil {
			return err
		}
		if *outputFlag == "edds" {
			err = svdimg.EncodeTexture(&out, img, &svdimg.TextureOptions{Compression: method})
		} else {
			err = png.Encode(&out, img)
		}
	}
	if err != nil {
		return err
	}

	return writeOutput(out.Bytes())
}

// load turns the input into truncated factors, sniffing the container type
// from its first four bytes.
func load(ctx context.Context, r *bufio.Reader, narrow svdimg.NarrowMode) (*svdimg.Factors, error) {
	magic, err := r.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	var src image.Image
	switch string(magic) {
	case svdimg.FactorMagic:
		return svdimg.DecodeFactors(r)
	case "DDS ":
		src, err = svdimg.DecodeTexture(r, nil)
	default:
		src, _, err = image.Decode(r)
	}
	if err != nil {
		return nil, err
	}

	factors, stats, err := svdimg.FactorizeImage(ctx, src, *ratioFlag, &svdimg.Options{
		BytesPerValue: *valueWidthFlag,
		Narrow:        narrow,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stderr, stats)

	return factors, nil
}

func writeOutput(data []byte) error {
	if *outFlag == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	return os.WriteFile(*outFlag, data, 0o644)
}
