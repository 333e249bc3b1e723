package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/cra-planner/internal/feed"
	"github.com/andresuchdata/cra-planner/internal/planning"
	"github.com/andresuchdata/cra-planner/internal/repository"
	"github.com/andresuchdata/cra-planner/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: %q", service.ErrWarehouseNotFound, "X"), http.StatusNotFound},
		{repository.ErrRunNotFound, http.StatusNotFound},
		{service.ErrArchiveDisabled, http.StatusNotFound},
		{fmt.Errorf("%w: 1.2", planning.ErrInvalidCoverage), http.StatusBadRequest},
		{fmt.Errorf("%w: legacy xls", feed.ErrUnsupportedFormat), http.StatusBadRequest},
		{fmt.Errorf("%w: missing", feed.ErrInventoryUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", feed.ErrInventoryUnavailable, feed.ErrUnsupportedFormat), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
