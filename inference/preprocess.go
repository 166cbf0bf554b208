package inference

import (
	"bytes"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/bbernhard/radiology-playground/analysis"
)

// Preprocess decodes an uploaded image and re-encodes it as PNG. Images wider or
// taller than maxDimension are downscaled to fit, keeping the aspect ratio.
// maxDimension <= 0 disables the downscale.
func Preprocess(data []byte, maxDimension int) ([]byte, error) {
	if len(data) == 0 {
		return nil, analysis.FetchFailed(nil, "image is empty")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, analysis.FetchFailed(err, "couldn't decode image")
	}

	sz := img.Bounds().Size()
	if maxDimension > 0 && (sz.X > maxDimension || sz.Y > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "couldn't encode image")
	}
	return buf.Bytes(), nil
}
