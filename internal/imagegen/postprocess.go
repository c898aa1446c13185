package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"floorplan/internal/domain"
)

const (
	// DefaultWatermarkStrip is the height of the vendor watermark band.
	DefaultWatermarkStrip = 60
	defaultJPEGQuality    = 90
	defaultMIME           = "image/jpeg"
)

// WatermarkCropper removes the watermark band at the bottom of the image and
// re-encodes the result as JPEG.
type WatermarkCropper struct {
	StripHeight int
	Quality     int
}

var _ PostProcessor = WatermarkCropper{}

func (c WatermarkCropper) Process(_ context.Context, img Image, expectedWidth, _ int) (Image, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, domain.WrapError(domain.KindInternalFailure, "decode generated image", err)
	}
	src = scaleToWidth(src, expectedWidth)

	strip := c.StripHeight
	if strip <= 0 {
		strip = DefaultWatermarkStrip
	}
	bounds := src.Bounds()
	keep := bounds
	if bounds.Dy() > strip {
		keep.Max.Y -= strip
	}

	dst := image.NewRGBA(image.Rect(0, 0, keep.Dx(), keep.Dy()))
	draw.Draw(dst, dst.Bounds(), src, keep.Min, draw.Src)

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return Image{}, domain.WrapError(domain.KindInternalFailure, "encode cropped image", err)
	}
	return Image{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

func scaleToWidth(src image.Image, width int) image.Image {
	b := src.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dx() == width {
		return src
	}
	height := (b.Dy()*width + b.Dx()/2) / b.Dx()
	if height <= 0 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// Passthrough returns the vendor image untouched.
type Passthrough struct{}

var _ PostProcessor = Passthrough{}

func (Passthrough) Process(_ context.Context, img Image, _, _ int) (Image, error) {
	return img, nil
}

// DataURL encodes img as a base64 data URL.
func DataURL(img Image) string {
	mime := img.MIME
	if mime == "" {
		mime = defaultMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
