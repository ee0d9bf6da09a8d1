package router

import (
	"testing"

	ierr "github.com/streamshare/streamshare/internal/errors"
	"github.com/streamshare/streamshare/internal/httpclient"
	"github.com/streamshare/streamshare/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestShouldRetry(t *testing.T) {
	log := logger.NewNoopLogger()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"service unavailable", httpclient.NewError(503, nil), true},
		{"rate limited", httpclient.NewError(429, nil), true},
		{"bad request", httpclient.NewError(400, []byte(`{"error":"bad phone"}`)), false},
		{"validation", ierr.NewError("bad").Mark(ierr.ErrValidation), false},
		{"disabled channel", ierr.NewError("disabled").Mark(ierr.ErrInvalidOperation), false},
		{"unknown", ierr.NewError("boom").Mark(ierr.ErrSystem), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(log, tt.err))
		})
	}
}
