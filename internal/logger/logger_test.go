package logger

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" info ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestInitOnce(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var first, second bytes.Buffer
	Init(Options{Level: "debug", Output: &first})
	Init(Options{Level: "error", Output: &second})

	l := Get()
	l.Debug().Msg("hello")

	assert.Contains(t, first.String(), `"message":"hello"`)
	assert.Contains(t, first.String(), `"service":"bbsite"`)
	assert.Empty(t, second.String())
}

func TestGetBeforeInit(t *testing.T) {
	Reset()
	l := Get()
	l.Error().Msg("dropped")
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	app := fiber.New()
	app.Use(RequestLogger(l))
	app.Get("/missing", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/missing", line["path"])
	assert.Equal(t, float64(404), line["status"])
}
