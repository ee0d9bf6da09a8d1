package v1

import (
	"io"

	"github.com/gin-gonic/gin"
	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/storage"
	"github.com/streamshare/streamshare/internal/types"
)

// proofFormField is the multipart field carrying a comprovante
const proofFormField = "file"

func actorFromContext(c *gin.Context) (types.Actor, error) {
	actor, ok := types.GetActor(c.Request.Context())
	if !ok || actor.UserID == "" {
		return types.Actor{}, ierr.NewError("missing actor in request context").
			WithHint("Authentication required").
			Mark(ierr.ErrPermissionDenied)
	}
	return actor, nil
}

func requireParam(c *gin.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", ierr.NewError(name + " is required").
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation)
	}
	return value, nil
}

// readProof loads the uploaded comprovante into memory. Files over maxSize are rejected
// before they are fully read.
func readProof(c *gin.Context, maxSize int64) (*storage.File, error) {
	header, err := c.FormFile(proofFormField)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("A proof file must be uploaded in the 'file' field").
			Mark(ierr.ErrValidation)
	}

	if header.Size > maxSize {
		return nil, ierr.NewError("proof file too large").
			WithHint("The proof file is too large").
			WithReportableDetails(map[string]any{
				"size":     header.Size,
				"max_size": maxSize,
			}).
			Mark(ierr.ErrValidation)
	}

	f, err := header.Open()
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			Mark(ierr.ErrValidation)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the uploaded file").
			Mark(ierr.ErrValidation)
	}

	return &storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
