package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"analyst-agent/internal/config"
	"analyst-agent/internal/entity"
)

// AllowedExtensions mirrors the ingest format map; the upload surface rejects
// what the processor could not dispatch anyway.
var AllowedExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xls":  true,
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

// Validator validates file uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload validates a single file upload
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return fmt.Errorf("%w: %s", entity.ErrInvalidExtension, ext)
	}

	if fh.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
