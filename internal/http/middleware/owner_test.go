package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOwnerApp() *fiber.App {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := fiber.New()
	app.Get("/whoami", OwnerScope(logger), func(c *fiber.Ctx) error {
		return c.SendString(GetOwnerID(c))
	})
	return app
}

func TestOwnerScope(t *testing.T) {
	app := newOwnerApp()

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"header", "/whoami", "alice", fiber.StatusOK, "alice"},
		{"header is trimmed", "/whoami", "  alice  ", fiber.StatusOK, "alice"},
		{"query parameter", "/whoami?owner_id=bob", "", fiber.StatusOK, "bob"},
		{"header wins over query", "/whoami?owner_id=bob", "alice", fiber.StatusOK, "alice"},
		{"missing", "/whoami", "", fiber.StatusBadRequest, "owner id is required"},
		{"blank", "/whoami", "   ", fiber.StatusBadRequest, "owner id is required"},
		{"too long", "/whoami", strings.Repeat("x", maxOwnerIDLen+1), fiber.StatusBadRequest, "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(OwnerHeader, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tt.wantBody)
		})
	}
}

func TestGetOwnerIDWithoutScope(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("[" + GetOwnerID(c) + "]")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", string(body))
}
