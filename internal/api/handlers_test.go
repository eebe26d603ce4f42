package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHealthSemCache(t *testing.T) {
	h := &Handler{}

	// a API sobe sem Redis; o readiness reporta o cache como desligado em
	// vez de quebrar
	saude := h.redisHealth(context.Background())

	assert.Equal(t, "disabled", saude.Status)
	assert.Empty(t, saude.Error)
}

func TestInvalidateCacheSemCache(t *testing.T) {
	h := &Handler{}

	app := fiber.New()
	app.Delete("/admin/cache/:pattern", h.InvalidateCache)

	req := httptest.NewRequest(fiber.MethodDelete, "/admin/cache/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
