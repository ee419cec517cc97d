package images

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	thumbSize = 8
	// per-channel spread tolerated before a thumbnail counts as varied
	uniformTolerance = 6
)

// Info describes a decoded image
type Info struct {
	Width    int
	Height   int
	TooSmall bool // below the minimum dimension
	Uniform  bool // a single flat colour, typical of placeholder images
}

// Blank reports whether the image is unusable as a product image
func (i *Info) Blank() bool {
	return i.TooSmall || i.Uniform
}

// Inspect decodes an image and checks its dimensions and content
func Inspect(data []byte, minDimension int) (*Info, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	info := &Info{Width: b.Dx(), Height: b.Dy()}
	info.TooSmall = minDimension > 0 && (info.Width < minDimension || info.Height < minDimension)
	info.Uniform = isUniform(img)
	return info, nil
}

// isUniform box-filters the image to a thumbnail and compares every
// thumbnail pixel to the first
func isUniform(img image.Image) bool {
	thumb := imaging.Resize(img, thumbSize, thumbSize, imaging.Box)
	if len(thumb.Pix) < 4 {
		return true
	}
	first := thumb.Pix[:4]
	for i := 4; i+4 <= len(thumb.Pix); i += 4 {
		for c := 0; c < 4; c++ {
			if spread(thumb.Pix[i+c], first[c]) > uniformTolerance {
				return false
			}
		}
	}
	return true
}

func spread(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
