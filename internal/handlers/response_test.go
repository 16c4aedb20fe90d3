package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pathwayhq/pathway-backend/internal/pkg/errors"
)

func TestRespondServiceErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("project x: %w", apperrors.ErrNotFound), want: http.StatusNotFound},
		{name: "forbidden", err: fmt.Errorf("project x: %w", apperrors.ErrForbidden), want: http.StatusForbidden},
		{name: "invalid state", err: fmt.Errorf("status y: %w", apperrors.ErrInvalidState), want: http.StatusUnprocessableEntity},
		{name: "unknown", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			RespondServiceError(c, tc.err)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
