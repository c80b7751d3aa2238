package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedImage is returned for files imaging cannot decode.
var ErrUnsupportedImage = errors.New("storage: unsupported image format")

// PreparedImage is an image normalised for upload.
type PreparedImage struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

var imageContentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.BMP:  "image/bmp",
	imaging.TIFF: "image/tiff",
}

var imageExtensions = map[imaging.Format]string{
	imaging.JPEG: "jpg",
	imaging.PNG:  "png",
	imaging.GIF:  "gif",
	imaging.BMP:  "bmp",
	imaging.TIFF: "tiff",
}

// PrepareImage decodes the upload, applies EXIF orientation and scales it down to
// maxWidth when wider. The original format, taken from filename, is kept.
func PrepareImage(r io.Reader, filename string, maxWidth int) (*PreparedImage, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, ErrUnsupportedImage
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, format, imaging.JPEGQuality(85), imaging.PNGCompressionLevel(-2)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	bounds := img.Bounds()
	return &PreparedImage{
		Data:        buf.Bytes(),
		ContentType: imageContentTypes[format],
		Ext:         imageExtensions[format],
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}
