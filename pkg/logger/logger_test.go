package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLogger_CamposDeOperacion(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Service: "inventario-lotes", Output: &buf})

	log.Named("ledger").WithOperation("reserve", "op-1").Info().Int64("lot_id", 7).Msg("reserva")

	m := decodeLine(t, &buf)
	assert.Equal(t, "inventario-lotes", m["service"])
	assert.Equal(t, "ledger", m["component"])
	assert.Equal(t, "reserve", m["op"])
	assert.Equal(t, "op-1", m["operation_id"])
	assert.Equal(t, float64(7), m["lot_id"])
}

func TestLogger_NivelFiltra(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Output: &buf})
	log.Info().Msg("no debe salir")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("sí")
	assert.Equal(t, "warn", decodeLine(t, &buf)["level"])
}

func TestLogger_NivelInvalidoUsaInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "ruidoso", Output: &buf})
	log.Debug().Msg("no")
	assert.Zero(t, buf.Len())
	log.Info().Msg("sí")
	assert.NotZero(t, buf.Len())
}
