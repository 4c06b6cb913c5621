package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/arbor/internal/compiler"
	"github.com/samcharles93/arbor/internal/errs"
)

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return writeJSON(c, status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// writeCompileError maps a pipeline failure onto a status code. Known
// failure kinds are the caller's fault and reported as 422.
func writeCompileError(c *echo.Context, err error) error {
	kind := errs.KindName(err)
	if kind == "internal" {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", kind)
	}
	param := ""
	var e *errs.Error
	if errors.As(err, &e) {
		param = e.Subject
	}
	return writeError(c, http.StatusUnprocessableEntity, "compile_error", err.Error(), param, kind)
}

// configFor overlays the request's query parameters on the server defaults.
func configFor(c *echo.Context, base compiler.Config) (compiler.Config, error) {
	cfg := base
	ints := []struct {
		name string
		dst  *int
	}{
		{"buffer_length", &cfg.BufferLength},
		{"ports", &cfg.Ports},
		{"mults", &cfg.Mults},
	}
	for _, p := range ints {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, newInvalidRequest(p.name, fmt.Sprintf("%s must be an integer, got %q", p.name, raw))
		}
		*p.dst = v
	}
	if raw := c.QueryParam("debug"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, newInvalidRequest("debug", fmt.Sprintf("debug must be a boolean, got %q", raw))
		}
		cfg.Debug = v
	}
	if err := cfg.Validate(); err != nil {
		return cfg, newInvalidRequest("", err.Error())
	}
	return cfg, nil
}

func checkSeed(c *echo.Context) (uint64, bool, error) {
	raw := c.QueryParam("check")
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, newInvalidRequest("check", fmt.Sprintf("check must be an unsigned seed, got %q", raw))
	}
	return v, true, nil
}
