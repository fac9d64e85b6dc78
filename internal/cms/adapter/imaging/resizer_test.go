package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewResizer_SortsAndDedupes(t *testing.T) {
	r := NewResizer([]int{900, 300, 0, 900, 600})
	assert.Equal(t, []int{300, 600, 900}, r.Widths())
}

func TestResize_NeverUpscales(t *testing.T) {
	r := NewResizer([]int{300, 600, 900})
	variants, err := r.Resize(pngBytes(t, 700, 350))
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, 300, variants[0].Width)
	assert.Equal(t, 150, variants[0].Height)
	assert.Equal(t, 600, variants[1].Width)

	img, format, err := image.Decode(bytes.NewReader(variants[1].Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func TestResize_SmallSourceKeepsOwnWidth(t *testing.T) {
	r := NewResizer([]int{300, 600})
	variants, err := r.Resize(pngBytes(t, 120, 80))
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, 120, variants[0].Width)
}

func TestResize_InvalidData(t *testing.T) {
	_, err := NewResizer([]int{300}).Resize([]byte("not an image"))
	assert.Error(t, err)
}
