// Package imaging prepares catalog item photos: it sniffs the upload,
// flattens transparency, fits the picture into a bounding box and re-encodes
// it as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

const (
	// MaxUploadSize is the largest accepted upload in bytes.
	MaxUploadSize = 8 << 20

	// MaxDimension bounds the stored photo.
	MaxDimension = 800

	// ThumbnailSize bounds thumbnails shown on transfer cards.
	ThumbnailSize = 160

	// JPEGQuality is the compression quality for JPEG output.
	JPEGQuality = 85
)

var (
	ErrUnsupported = errors.New("unsupported image format")
	ErrTooLarge    = errors.New("image too large")
)

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Image is an encoded picture ready for storage.
type Image struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process reads an uploaded photo and fits it within MaxDimension.
func Process(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, MaxUploadSize)
	}
	return encode(data, MaxDimension)
}

// Thumbnail fits an already stored photo within ThumbnailSize.
func Thumbnail(data []byte) (*Image, error) {
	return encode(data, ThumbnailSize)
}

func encode(data []byte, maxDim int) (*Image, error) {
	// The client's content type is not trusted.
	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s (only JPEG and PNG accepted)", ErrUnsupported, detected)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	dst := fit(src, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := dst.Bounds()
	return &Image{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// fit scales img so neither side exceeds maxDim, keeping the aspect ratio,
// and paints it over white. Smaller images keep their size.
func fit(img image.Image, maxDim int) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > maxDim || h > maxDim {
		if w > h {
			newW = maxDim
			newH = h * maxDim / w
		} else {
			newH = maxDim
			newW = w * maxDim / h
		}
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if newW == w && newH == h {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	}
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
