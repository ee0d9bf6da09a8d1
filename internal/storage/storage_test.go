package storage

import (
	"strings"
	"testing"

	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
	pdfHeader = []byte("%PDF-1.7\n%")
)

func TestValidateProof(t *testing.T) {
	t.Run("png is accepted and renamed", func(t *testing.T) {
		f := &File{Name: "comprovante", ContentType: "application/octet-stream", Data: pngHeader}
		require.NoError(t, ValidateProof(f, 1<<20))
		assert.Equal(t, "image/png", f.ContentType)
		assert.Equal(t, "comprovante.png", f.Name)
	})

	t.Run("pdf is accepted", func(t *testing.T) {
		f := &File{Name: "recibo.pdf", Data: pdfHeader}
		require.NoError(t, ValidateProof(f, 1<<20))
		assert.Equal(t, "application/pdf", f.ContentType)
		assert.Equal(t, "recibo.pdf", f.Name)
	})

	t.Run("plain text is rejected", func(t *testing.T) {
		err := ValidateProof(&File{Name: "a.txt", Data: []byte("hello world")}, 1<<20)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("empty file is rejected", func(t *testing.T) {
		assert.True(t, ierr.IsValidation(ValidateProof(&File{Name: "a.png"}, 1<<20)))
	})

	t.Run("oversized file is rejected", func(t *testing.T) {
		err := ValidateProof(&File{Name: "a.png", Data: pngHeader}, 4)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestProofKey(t *testing.T) {
	key := ProofKey("/comprovantes/", "cob_1", "recibo.pdf")
	assert.True(t, strings.HasPrefix(key, "comprovantes/cob_1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	assert.True(t, strings.HasPrefix(ProofKey("", "lote_1", "x.png"), "lote_1/"))
}
