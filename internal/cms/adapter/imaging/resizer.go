package imaging

import (
	"bytes"
	"fmt"
	"image"
	"sort"

	"blog-cms/internal/cms/domain/repository"

	"github.com/disintegration/imaging"
)

// JPEG quality for generated variants
const jpegQuality = 82

// Resizer renders width variants of an image as JPEG.
type Resizer struct {
	widths []int
}

var _ repository.ImageResizer = (*Resizer)(nil)

// NewResizer creates a resizer for widths. Duplicates are removed and the
// widths are sorted ascending.
func NewResizer(widths []int) *Resizer {
	seen := make(map[int]struct{}, len(widths))
	var ws []int
	for _, w := range widths {
		if w <= 0 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		ws = append(ws, w)
	}
	sort.Ints(ws)
	return &Resizer{widths: ws}
}

// Widths returns the configured target widths.
func (r *Resizer) Widths() []int {
	return append([]int(nil), r.widths...)
}

// Resize decodes data and returns one variant per configured width not
// larger than the source. A source narrower than every width yields a single
// variant at its own width.
func (r *Resizer) Resize(data []byte) ([]repository.ImageVariant, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	srcWidth := src.Bounds().Dx()

	var variants []repository.ImageVariant
	for _, w := range r.widths {
		if w > srcWidth {
			break
		}
		v, err := encode(imaging.Resize(src, w, 0, imaging.Lanczos))
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	if len(variants) == 0 {
		v, err := encode(src)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func encode(img image.Image) (repository.ImageVariant, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return repository.ImageVariant{}, fmt.Errorf("encode variant: %w", err)
	}
	b := img.Bounds()
	return repository.ImageVariant{Width: b.Dx(), Height: b.Dy(), Data: buf.Bytes()}, nil
}
