package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownEscapesRawHTML(t *testing.T) {
	out := string(Markdown("**আমাদের** লক্ষ্য\n<script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>আমাদের</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", string(Markdown("   ")))
}

func TestMarkdownHardWraps(t *testing.T) {
	out := string(Markdown("line one\nline two"))
	assert.True(t, strings.Contains(out, "<br>") || strings.Contains(out, "<br />"))
}

func TestQRCodePNG(t *testing.T) {
	data, err := QRCodePNG("01700000000", 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultQRSize, img.Bounds().Dx())

	_, err = QRCodePNG(" ", 128)
	assert.Error(t, err)
}
