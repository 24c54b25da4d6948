package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// receiptImage draws a deterministic grid of flat high-contrast blocks, the
// kind of sharp printed structure receipts have. Flat blocks keep their DCT
// coefficients far from the median, so the perceptual hash survives JPEG
// quantization; smooth gradients do not.
func receiptImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	state := uint32(42)
	next := func() uint32 {
		state = state*1664525 + 1013904223
		return state
	}
	for by := 0; by < 8; by++ {
		for bx := 0; bx < 8; bx++ {
			c := color.RGBA{A: 255}
			if next()%2 == 0 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			for y := by * 16; y < (by+1)*16; y++ {
				for x := bx * 16; x < (bx+1)*16; x++ {
					img.Set(x, y, c)
				}
			}
		}
	}
	return img
}

// invertImage flips every block, producing a visually unrelated image.
func invertImage(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := src.RGBAAt(x, y)
			img.Set(x, y, color.RGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: 255})
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("PHasher", func() {
	var hasher *PHasher

	BeforeEach(func() {
		hasher = &PHasher{}
	})

	Describe("Hash", func() {
		When("the input is a valid image", func() {
			It("should return a stable hash", func() {
				data := encodePNG(receiptImage())
				first, err := hasher.Hash(data)
				Expect(err).NotTo(HaveOccurred())
				second, err := hasher.Hash(data)
				Expect(err).NotTo(HaveOccurred())
				Expect(first).To(Equal(second))
			})
		})

		When("the same image is re-encoded in another format", func() {
			It("should hash within the default threshold", func() {
				img := receiptImage()
				fromPNG, err := hasher.Hash(encodePNG(img))
				Expect(err).NotTo(HaveOccurred())
				fromJPEG, err := hasher.Hash(encodeJPEG(img))
				Expect(err).NotTo(HaveOccurred())
				Expect(hammingDistance(fromPNG, fromJPEG)).To(BeNumerically("<=", DefaultThreshold))
			})
		})

		When("the images are unrelated", func() {
			It("should hash beyond the default threshold", func() {
				img := receiptImage()
				a, err := hasher.Hash(encodePNG(img))
				Expect(err).NotTo(HaveOccurred())
				b, err := hasher.Hash(encodePNG(invertImage(img)))
				Expect(err).NotTo(HaveOccurred())
				Expect(hammingDistance(a, b)).To(BeNumerically(">", DefaultThreshold))
			})
		})

		When("the input is not an image", func() {
			It("should return an error", func() {
				_, err := hasher.Hash([]byte("definitely not pixels"))
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("hammingDistance", func() {
	It("counts differing bits", func() {
		Expect(hammingDistance(0b1010, 0b1010)).To(BeZero())
		Expect(hammingDistance(0b1010, 0b1000)).To(Equal(1))
		Expect(hammingDistance(0, 0xffffffffffffffff)).To(Equal(64))
	})
})
