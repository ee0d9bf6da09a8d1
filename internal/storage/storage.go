package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"github.com/samber/lo"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/types"
)

// File is an uploaded proof of payment
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Storage persists uploaded files and returns a URL to read them back
type Storage interface {
	Upload(ctx context.Context, file *File, key string) (string, error)

	// Delete removes the file behind a URL returned by Upload
	Delete(ctx context.Context, fileURL string) error
}

// AllowedProofTypes are the MIME types accepted as proof of payment
var AllowedProofTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// ValidateProof checks the size of the file and detects its type from the content.
// The declared content type is replaced with the detected one.
func ValidateProof(file *File, maxSize int64) error {
	if file == nil || len(file.Data) == 0 {
		return ierr.NewError("empty proof file").
			WithHint("Please attach the proof of payment").
			Mark(ierr.ErrValidation)
	}

	if maxSize > 0 && int64(len(file.Data)) > maxSize {
		return ierr.NewErrorf("proof file too large: %d bytes", len(file.Data)).
			WithHintf("The proof of payment must be at most %d MB", maxSize>>20).
			WithReportableDetails(map[string]any{
				"size":     len(file.Data),
				"max_size": maxSize,
			}).
			Mark(ierr.ErrValidation)
	}

	kind, err := filetype.Match(file.Data)
	if err != nil || !lo.Contains(AllowedProofTypes, kind.MIME.Value) {
		return ierr.NewError("unsupported proof file type").
			WithHint("The proof of payment must be a JPEG, PNG or PDF file").
			WithReportableDetails(map[string]any{
				"allowed": AllowedProofTypes,
			}).
			Mark(ierr.ErrValidation)
	}

	file.ContentType = kind.MIME.Value
	if ext := path.Ext(file.Name); ext == "" || !strings.EqualFold(strings.TrimPrefix(ext, "."), kind.Extension) {
		file.Name = strings.TrimSuffix(file.Name, ext) + "." + kind.Extension
	}
	return nil
}

// ProofKey builds the object key of a proof for a charge or batch
func ProofKey(prefix, entityID, fileName string) string {
	name := types.GenerateUUID() + path.Ext(fileName)
	if prefix == "" {
		return fmt.Sprintf("%s/%s", entityID, name)
	}
	return fmt.Sprintf("%s/%s/%s", strings.Trim(prefix, "/"), entityID, name)
}
