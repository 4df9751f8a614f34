package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	pkgjwt "github.com/jhoicas/inventario-lotes/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "inventario-lotes-test"
	testExpMin    = 60
)

// tokenForRole genera el header Authorization con un JWT del rol indicado.
func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, testExpMin)
	require.NoError(t, err, "debe generarse un token JWT válido")
	return "Bearer " + tok
}

// rawCall envía la petición con el header Authorization tal cual (vacío = sin header).
func (f *apiFixture) rawCall(t *testing.T, method, path, authHeader, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// dispatchedSale deja una venta despachada de 3 unidades sobre un lote de 10 en la bodega 1.
func (f *apiFixture) dispatchedSale(t *testing.T, saleID int64) int64 {
	t.Helper()
	lot := f.receive(t, 1, "L-1", "2027-01-31", 10)
	f.store.AddSale(saleID, 1)
	resp, body := f.call(t, http.MethodPost, "/api/sales/"+strconv.FormatInt(saleID, 10)+"/dispatch", pkgjwt.RoleVendedor, map[string]interface{}{
		"lines": []map[string]interface{}{{"sale_line_id": 1, "presentation_id": 77, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "%v", body)
	return lot
}

// ──────────────────────────────────────────────────────────────────────────────
// Anulación de ventas: solo admin
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_AnularVentaSoloAdmin(t *testing.T) {
	f := newAPI(t)
	lot := f.dispatchedSale(t, 700)

	for _, role := range []string{pkgjwt.RoleVendedor, pkgjwt.RoleBodeguero, pkgjwt.RoleAuditor} {
		t.Run(role, func(t *testing.T) {
			resp, body := f.call(t, http.MethodPost, "/api/sales/700/cancel", role, map[string]interface{}{"reason": "cliente desiste"})
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "FORBIDDEN", body["code"])
		})
	}
	assert.Equal(t, entity.SaleStatusActive, f.store.Sale(700).Status, "un rol sin permiso no toca la venta")
	assert.Equal(t, "7", f.store.Row(1, lot).Available.String())

	resp, body := f.call(t, http.MethodPost, "/api/sales/700/cancel", pkgjwt.RoleAdmin, map[string]interface{}{"reason": "cliente desiste"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "%v", body)
	assert.Equal(t, entity.SaleStatusCancelled, f.store.Sale(700).Status)
	assert.Equal(t, "10", f.store.Row(1, lot).Available.String())

	// El usuario del token queda como autor del movimiento.
	journal := f.store.Journal()
	require.NotEmpty(t, journal)
	last := journal[len(journal)-1]
	assert.Equal(t, entity.SourceVenta, last.SourceModule)
	assert.Equal(t, testUserID, last.CreatedBy)
}

// ──────────────────────────────────────────────────────────────────────────────
// Conciliación: auditor y admin
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_ConciliacionAuditorYAdmin(t *testing.T) {
	f := newAPI(t)
	f.receive(t, 1, "L-1", "2027-01-31", 10)

	tests := []struct {
		role string
		want int
	}{
		{pkgjwt.RoleAuditor, http.StatusOK},
		{pkgjwt.RoleAdmin, http.StatusOK},
		{pkgjwt.RoleBodeguero, http.StatusForbidden},
		{pkgjwt.RoleVendedor, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			resp, _ := f.rawCall(t, http.MethodPost, "/api/reconcile", tokenForRole(t, tt.role), `{"warehouse_ids":[1]}`)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Token ausente o inválido
// ──────────────────────────────────────────────────────────────────────────────

func TestAuth_TokenAusenteOInvalido(t *testing.T) {
	f := newAPI(t)

	otherSecret, err := pkgjwt.Generate("otro-secret-completamente-distinto", testUserID, pkgjwt.RoleAdmin, testIssuer, testExpMin)
	require.NoError(t, err)
	expired, err := pkgjwt.Generate(testJWTSecret, testUserID, pkgjwt.RoleAdmin, testIssuer, -1)
	require.NoError(t, err)
	noRole, err := pkgjwt.Generate(testJWTSecret, testUserID, "", testIssuer, testExpMin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema distinto", "Basic abc", "INVALID_TOKEN"},
		{"malformado", "Bearer token.invalido.aqui", "INVALID_TOKEN"},
		{"otro secreto", "Bearer " + otherSecret, "INVALID_TOKEN"},
		{"expirado", "Bearer " + expired, "INVALID_TOKEN"},
		{"sin rol", "Bearer " + noRole, "MISSING_ROLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := f.rawCall(t, http.MethodPost, "/api/reconcile", tt.header, `{}`)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}
