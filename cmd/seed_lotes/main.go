// seed_lotes carga recepciones iniciales de lotes desde un CSV exportado del sistema anterior.
//
// Uso: go run ./cmd/seed_lotes [ruta/lotes.csv]
// El archivo viene en ISO-8859-1 con separador ';' y encabezado:
// recepcion;linea;bodega;presentacion;lote;fabricacion;vencimiento;cantidad
// Las fechas van en formato AAAA-MM-DD; fabricacion puede ir vacía.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-lotes/pkg/config"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

const seedUser = "seed_lotes"

func main() {
	csvPath := "lotes.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "seed_lotes"})

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	inputs, err := readReceipts(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	receipts := inventory.NewReceiptUseCase(inventory.Deps{
		TxRunner:   postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		Warehouses: postgres.NewWarehouseRepository(pool),
		Logger:     log,
	})

	var created, skipped int
	for _, in := range inputs {
		_, err := receipts.Receive(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicate):
			// Línea ya cargada en una corrida anterior.
			skipped++
		default:
			log.Fatal().Err(err).Int64("linea", in.ReceiptLineID).Str("lote", in.LotCode).Msg("recepción")
		}
	}
	log.Info().Int("creados", created).Int("omitidos", skipped).Msg("carga de lotes terminada")
}

// readReceipts decodifica el CSV Latin-1 a recepciones.
func readReceipts(r io.Reader) ([]inventory.ReceiptInput, error) {
	cr := csv.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))
	cr.Comma = ';'
	cr.FieldsPerRecord = 8
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]inventory.ReceiptInput, 0, len(records)-1)
	for i, rec := range records[1:] {
		in, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("fila %d: %w", i+2, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func parseRecord(rec []string) (inventory.ReceiptInput, error) {
	var in inventory.ReceiptInput
	ids := make([]int64, 4)
	for i := range ids {
		n, err := strconv.ParseInt(strings.TrimSpace(rec[i]), 10, 64)
		if err != nil {
			return in, fmt.Errorf("columna %d: %w", i+1, err)
		}
		ids[i] = n
	}
	expires, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[6]))
	if err != nil {
		return in, fmt.Errorf("vencimiento: %w", err)
	}
	// El sistema anterior exporta decimales con coma.
	qty, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(rec[7]), ",", "."))
	if err != nil {
		return in, fmt.Errorf("cantidad: %w", err)
	}
	in = inventory.ReceiptInput{
		ReceiptID:      ids[0],
		ReceiptLineID:  ids[1],
		WarehouseID:    ids[2],
		PresentationID: ids[3],
		LotCode:        strings.TrimSpace(rec[4]),
		ExpiresAt:      expires,
		Quantity:       qty,
		UserID:         seedUser,
	}
	if s := strings.TrimSpace(rec[5]); s != "" {
		mfg, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return in, fmt.Errorf("fabricacion: %w", err)
		}
		in.ManufacturedAt = &mfg
	}
	return in, nil
}
