package analyzer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// phashSize is the side length of the downsampled grayscale grid used by
// the average-hash algorithm — 8x8 gives a 64-bit hash, the conventional
// size for this technique.
const phashSize = 8

// ComputePHash computes a 64-bit average hash (aHash) of an image: shrink
// to an 8x8 grayscale grid, compare every pixel to the grid's mean
// brightness, and pack the 64 above/below-mean bits into a hex string.
// This is advisory only (§4.7) — it never feeds back into analyzer output,
// only into future duplicate/near-duplicate tooling.
func ComputePHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	gray := make([]float64, phashSize*phashSize)
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return "", fmt.Errorf("image has zero dimension")
	}

	var sum float64
	idx := 0
	for gy := 0; gy < phashSize; gy++ {
		for gx := 0; gx < phashSize; gx++ {
			sx := bounds.Min.X + gx*w/phashSize
			sy := bounds.Min.Y + gy*h/phashSize
			r, g, b, _ := img.At(sx, sy).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
			gray[idx] = lum
			sum += lum
			idx++
		}
	}
	mean := sum / float64(len(gray))

	var hash uint64
	for i, v := range gray {
		if v >= mean {
			hash |= 1 << uint(i)
		}
	}
	return fmt.Sprintf("%016x", hash), nil
}
