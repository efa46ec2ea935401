package filestorage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestShrinkImage(t *testing.T) {
	big := encodePNG(t, 400, 200)
	out, ct, err := ShrinkImage(big, "image/png", 100)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestShrinkImage_Untouched(t *testing.T) {
	small := encodePNG(t, 50, 50)
	out, _, err := ShrinkImage(small, "image/png", 100)
	require.NoError(t, err)
	assert.Equal(t, small, out)

	out, ct, err := ShrinkImage([]byte("GIF89a"), "image/gif", 100)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", ct)
	assert.Equal(t, []byte("GIF89a"), out)

	out, _, err = ShrinkImage(small, "image/png", 0)
	require.NoError(t, err)
	assert.Equal(t, small, out)

	_, _, err = ShrinkImage([]byte("not png"), "image/png", 10)
	assert.Error(t, err)
}
