package onnximage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/linnemanlabs/infrasense/internal/assess"
)

// ChannelOrder is the colour channel order the model was trained on.
type ChannelOrder string

const (
	// ChannelsBGR matches images decoded by OpenCV.
	ChannelsBGR ChannelOrder = "bgr"
	ChannelsRGB ChannelOrder = "rgb"
)

// Layout is the input tensor memory layout.
type Layout int

const (
	// LayoutNHWC is [batch, height, width, channels] (Keras default).
	LayoutNHWC Layout = iota
	// LayoutNCHW is [batch, channels, height, width].
	LayoutNCHW
)

const channels = 3

// decode parses image bytes in any registered format. The header is read
// first and images above maxPixels are rejected before any pixel buffer is
// allocated.
func decode(data []byte, maxPixels int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("onnximage: %w: empty image", assess.ErrDecode)
	}
	hdr, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("onnximage: %w: %w", assess.ErrDecode, err)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 {
		return nil, fmt.Errorf("onnximage: %w: invalid dimensions %dx%d", assess.ErrDecode, hdr.Width, hdr.Height)
	}
	// divide instead of multiplying so huge headers cannot overflow
	if hdr.Width > maxPixels/hdr.Height {
		return nil, fmt.Errorf("onnximage: %w: %dx%d exceeds %d pixels", assess.ErrDecode, hdr.Width, hdr.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("onnximage: %w: %w", assess.ErrDecode, err)
	}
	return img, nil
}

// toTensor resizes img to size x size with bilinear interpolation and
// returns a flat float32 tensor scaled to [0,1].
func toTensor(img image.Image, size int, order ChannelOrder, layout Layout) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, size*size*channels)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			p := y*dst.Stride + x*4
			px := [channels]uint8{dst.Pix[p], dst.Pix[p+1], dst.Pix[p+2]}
			if order == ChannelsBGR {
				px[0], px[2] = px[2], px[0]
			}
			for c := 0; c < channels; c++ {
				v := float32(px[c]) / 255
				if layout == LayoutNCHW {
					out[c*plane+y*size+x] = v
				} else {
					out[(y*size+x)*channels+c] = v
				}
			}
		}
	}
	return out
}
