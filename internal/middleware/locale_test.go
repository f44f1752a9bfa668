// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/volunteerhub/internal/i18n"
	"codeberg.org/oliverandrich/volunteerhub/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocale(t *testing.T) {
	require.NoError(t, i18n.Init())
	e := echo.New()

	tests := []struct {
		header string
		want   string
	}{
		{"de-DE,de;q=0.9", "de"},
		{"en-US", "en"},
		{"fr-FR", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", tt.header)
			c := e.NewContext(req, httptest.NewRecorder())

			var got string
			require.NoError(t, middleware.Locale()(func(c echo.Context) error {
				got = i18n.GetLocale(c.Request().Context())
				return nil
			})(c))
			assert.Equal(t, tt.want, got)
		})
	}
}
