package storage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestPrepareImageResizesWideImages(t *testing.T) {
	prepared, err := PrepareImage(bytes.NewReader(encodePNG(t, 400, 200)), "banner.PNG", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, prepared.Width)
	assert.Equal(t, 50, prepared.Height)
	assert.Equal(t, "image/png", prepared.ContentType)
	assert.Equal(t, "png", prepared.Ext)
}

func TestPrepareImageKeepsSmallImages(t *testing.T) {
	prepared, err := PrepareImage(bytes.NewReader(encodePNG(t, 40, 20)), "qr.png", 100)
	require.NoError(t, err)
	assert.Equal(t, 40, prepared.Width)
}

func TestPrepareImageRejectsUnknownFormat(t *testing.T) {
	_, err := PrepareImage(strings.NewReader("%PDF-1.4"), "file.pdf", 100)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = PrepareImage(strings.NewReader("not a png"), "file.png", 100)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
