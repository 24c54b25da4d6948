package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/corona10/goimagehash"
	"github.com/gen2brain/heic"
)

// PHasher implements PerceptualHasher with a 64-bit pHash.
type PHasher struct{}

// Hash decodes the image and computes its perceptual hash.
func (PHasher) Hash(data []byte) (uint64, error) {
	img, err := decodeImage(data)
	if err != nil {
		return 0, fmt.Errorf("decoding image: %w", err)
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("computing perceptual hash: %w", err)
	}
	return hash.GetHash(), nil
}

// hammingDistance counts differing bits between two perceptual hashes.
func hammingDistance(a, b uint64) int {
	dist, err := goimagehash.NewImageHash(a, goimagehash.PHash).
		Distance(goimagehash.NewImageHash(b, goimagehash.PHash))
	if err != nil {
		// Both hashes are constructed with the same kind, so the only
		// error the library can report never happens here.
		return 64
	}
	return dist
}

// decodeImage handles the formats phone uploads arrive in: JPEG, PNG, GIF via
// the standard image registry, HEIC/HEIF via a dedicated decoder.
func decodeImage(data []byte) (image.Image, error) {
	if isHEIC(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC image: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// isHEIC sniffs the ftyp box brands used by HEIC/HEIF files, which Go's
// standard image package does not recognize.
func isHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}
