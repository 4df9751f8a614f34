package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func latin1(t *testing.T, s string) []byte {
	t.Helper()
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestReadReceipts_Latin1(t *testing.T) {
	data := latin1(t, "recepcion;linea;bodega;presentacion;lote;fabricacion;vencimiento;cantidad\n"+
		"10;100;1;7;AÑO-01;2026-01-05;2027-01-05;12,5\n"+
		"10;101;1;8;L-02;;2026-12-31;4\n")

	got, err := readReceipts(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "AÑO-01", got[0].LotCode)
	assert.Equal(t, "12.5", got[0].Quantity.String())
	require.NotNil(t, got[0].ManufacturedAt)
	assert.Nil(t, got[1].ManufacturedAt)
	assert.Equal(t, int64(101), got[1].ReceiptLineID)
	assert.Equal(t, seedUser, got[1].UserID)
}

func TestReadReceipts_FilaInvalida(t *testing.T) {
	data := latin1(t, "h1;h2;h3;h4;h5;h6;h7;h8\n10;x;1;7;L;;2027-01-05;1\n")
	_, err := readReceipts(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fila 2")
}
