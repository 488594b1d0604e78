package ingest

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"os/exec"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"analyst-agent/internal/entity"
)

const tesseractBinary = "tesseract"

const tesseractInstallHint = `The Tesseract OCR engine is required for image text extraction.
Note that the engine is a standalone binary, separate from any language binding.

Install instructions:
- macOS:  brew install tesseract
- Debian: sudo apt-get install tesseract-ocr
- Other:  https://tesseract-ocr.github.io/tessdoc/Installation.html`

func (p *Processor) processImage(path string) *entity.IngestResult {
	f, err := os.Open(path)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("image processing failed: %v", err))
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("image processing failed: %v", err))
	}

	if _, err := exec.LookPath(tesseractBinary); err != nil {
		return entity.NewFailureResultWithHint(entity.FailureDependencyMissing,
			"Tesseract OCR engine not installed", tesseractInstallHint)
	}

	out, err := exec.Command(tesseractBinary, path, "stdout").Output()
	if err != nil {
		return entity.NewFailureResult(entity.FailureParse,
			fmt.Sprintf("OCR extraction failed: %v", err))
	}

	// An empty recognition result is a valid outcome; dimensions and color
	// mode are reported regardless.
	text := string(out)
	info := &entity.DocumentInfo{
		Width:        cfg.Width,
		Height:       cfg.Height,
		ColorMode:    colorModeName(cfg.ColorModel),
		SourceFormat: format,
		WordCount:    wordCount(text),
		CharCount:    charCount(text),
	}
	return entity.NewDocumentResult(text, info)
}

// colorModeName maps a decoded color model to a short tag. Palette models
// are matched by type: color.Palette is a slice and must not be compared
// with ==.
func colorModeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "paletted"
	}
	switch m {
	case color.RGBAModel:
		return "RGBA"
	case color.NRGBAModel:
		return "NRGBA"
	case color.RGBA64Model:
		return "RGBA64"
	case color.NRGBA64Model:
		return "NRGBA64"
	case color.GrayModel:
		return "gray"
	case color.Gray16Model:
		return "gray16"
	case color.YCbCrModel:
		return "YCbCr"
	case color.CMYKModel:
		return "CMYK"
	default:
		return "unknown"
	}
}
