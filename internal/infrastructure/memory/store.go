// Package memory implementa los puertos del motor de inventario en memoria.
// Cada Run serializa la transacción completa y revierte a una copia si fn falla.
package memory

import (
	"context"
	"sync"
	"time"

	appinv "github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	"github.com/shopspring/decimal"
)

type rowKey struct{ warehouse, lot int64 }

type resKey struct{ deposit, presentation, warehouse int64 }

type state struct {
	lots         map[int64]*entity.Lot
	stock        map[rowKey]*entity.StockRow
	journal      []*entity.MovementEntry
	reservations map[resKey]*entity.ReservationDetail
	transfers    map[int64]*entity.Transfer
	consumptions []*entity.SaleLotConsumption
	sales        map[int64]*entity.Sale
	paid         map[int64]bool
	seq          int64
}

func newState() *state {
	return &state{
		lots:         make(map[int64]*entity.Lot),
		stock:        make(map[rowKey]*entity.StockRow),
		reservations: make(map[resKey]*entity.ReservationDetail),
		transfers:    make(map[int64]*entity.Transfer),
		sales:        make(map[int64]*entity.Sale),
		paid:         make(map[int64]bool),
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, v := range s.lots {
		l := *v
		c.lots[k] = &l
	}
	for k, v := range s.stock {
		r := *v
		c.stock[k] = &r
	}
	c.journal = append(c.journal, s.journal...)
	for k, v := range s.reservations {
		d := *v
		c.reservations[k] = &d
	}
	for k, v := range s.transfers {
		c.transfers[k] = copyTransfer(v)
	}
	c.consumptions = append(c.consumptions, s.consumptions...)
	for k, v := range s.sales {
		sl := *v
		c.sales[k] = &sl
	}
	for k, v := range s.paid {
		c.paid[k] = v
	}
	return c
}

// LockEvent una fila bloqueada por GetForUpdate o LockOrCreate, en el orden en que se pidió.
type LockEvent struct {
	WarehouseID int64
	LotID       int64
}

// interleave simula una transacción ajena que confirma cambios sobre una fila
// justo antes de que la transacción en curso obtenga su bloqueo.
type interleave struct {
	left   int
	mutate func(row *entity.StockRow)
}

// Store almacén en memoria con semántica transaccional.
type Store struct {
	mu           sync.Mutex
	st           *state
	warehouses   map[int64]*entity.Warehouse
	busy         int
	failAppend   bool
	readOnlyRuns int
	hook         *interleave
	committed    []func(st *state) // cambios ajenos que sobreviven al rollback de la tx en curso
	trace        []LockEvent
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{st: newState(), warehouses: make(map[int64]*entity.Warehouse)}
}

// Run implementa TxRunner.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos appinv.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy > 0 {
		s.busy--
		return domain.ErrBusy
	}
	snapshot := s.st.clone()
	s.committed = nil
	if err := fn(ctx, s.repos(s.st)); err != nil {
		s.st = snapshot
		for _, apply := range s.committed {
			apply(s.st)
		}
		s.committed = nil
		return err
	}
	s.committed = nil
	return nil
}

// RunReadOnly implementa TxRunner. fn trabaja sobre una copia: lo que escriba se descarta.
func (s *Store) RunReadOnly(ctx context.Context, fn func(ctx context.Context, repos appinv.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy > 0 {
		s.busy--
		return domain.ErrBusy
	}
	s.readOnlyRuns++
	return fn(ctx, s.repos(s.st.clone()))
}

// ReadOnlyRuns cuántas transacciones de solo lectura se han ejecutado.
func (s *Store) ReadOnlyRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readOnlyRuns
}

// InterleaveOnLock aplica mutate a la fila en los próximos times bloqueos de existencia,
// antes de entregarla, como si otra transacción hubiera confirmado en ese instante.
// El cambio persiste aunque la transacción en curso se revierta.
func (s *Store) InterleaveOnLock(times int, mutate func(row *entity.StockRow)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = &interleave{left: times, mutate: mutate}
}

// LockTrace devuelve y limpia la secuencia de bloqueos de existencia registrada.
func (s *Store) LockTrace() []LockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.trace
	s.trace = nil
	return out
}

// locked se llama con mu tomado desde el repositorio de existencias de la tx en curso.
func (s *Store) locked(st *state, k rowKey) {
	s.trace = append(s.trace, LockEvent{WarehouseID: k.warehouse, LotID: k.lot})
	h := s.hook
	if h == nil || h.left <= 0 {
		return
	}
	row, ok := st.stock[k]
	if !ok {
		return
	}
	h.left--
	h.mutate(row)
	s.committed = append(s.committed, func(st *state) {
		if r, ok := st.stock[k]; ok {
			h.mutate(r)
		}
	})
}

func (s *Store) repos(st *state) appinv.TxRepos {
	return appinv.TxRepos{
		Lots:         &lotRepo{st: st},
		Stock:        &stockRepo{st: st, s: s},
		Journal:      &journalRepo{st: st, fail: s.failAppend},
		Reservations: &reservationRepo{st: st},
		Transfers:    &transferRepo{st: st},
		Consumptions: &consumptionRepo{st: st},
		Sales:        &saleRepo{st: st},
		Receivables:  &receivableRepo{st: st},
		Warehouses:   &txWarehouseRepo{s: s},
	}
}

// InjectBusy hace que las próximas n transacciones fallen con ErrBusy.
func (s *Store) InjectBusy(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = n
}

// FailJournalAppend hace fallar cada escritura al kardex.
func (s *Store) FailJournalAppend(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = fail
}

// AddWarehouse registra una bodega activa.
func (s *Store) AddWarehouse(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.warehouses[id] = &entity.Warehouse{ID: id, Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
}

// DeactivateWarehouse marca la bodega como inactiva.
func (s *Store) DeactivateWarehouse(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.warehouses[id]; ok {
		w.Active = false
	}
}

// AddSale registra la cabecera de una venta activa.
func (s *Store) AddSale(id, warehouseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.sales[id] = &entity.Sale{ID: id, WarehouseID: warehouseID, Status: entity.SaleStatusActive}
}

// MarkPaid simula pagos aplicados a la cuenta por cobrar de la venta.
func (s *Store) MarkPaid(saleID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.paid[saleID] = true
}

// Sale devuelve una copia de la cabecera de la venta.
func (s *Store) Sale(id int64) *entity.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.st.sales[id]
	if !ok {
		return nil
	}
	c := *sl
	return &c
}

// Row devuelve una copia de la fila (cero si no existe).
func (s *Store) Row(warehouseID, lotID int64) *entity.StockRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.st.stock[rowKey{warehouseID, lotID}]; ok {
		c := *r
		return &c
	}
	return entity.ZeroStockRow(warehouseID, lotID)
}

// Journal devuelve una copia del kardex completo.
func (s *Store) Journal() []*entity.MovementEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.MovementEntry, len(s.st.journal))
	for i, e := range s.st.journal {
		c := *e
		out[i] = &c
	}
	return out
}

// CorruptRow escribe una fila sin pasar por el kardex (solo pruebas de conciliación).
func (s *Store) CorruptRow(warehouseID, lotID int64, available, reserved decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := rowKey{warehouseID, lotID}
	r, ok := s.st.stock[k]
	if !ok {
		r = entity.ZeroStockRow(warehouseID, lotID)
		r.Exists = true
		s.st.stock[k] = r
	}
	r.Available = available
	r.Reserved = reserved
}

// Warehouses devuelve el repositorio de bodegas.
func (s *Store) Warehouses() *WarehouseRepo {
	return &WarehouseRepo{s: s}
}

// txWarehouseRepo lee bodegas dentro de Run, que ya tiene mu tomado.
type txWarehouseRepo struct {
	s *Store
}

func (r *txWarehouseRepo) GetByID(_ context.Context, id int64) (*entity.Warehouse, error) {
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

func (r *txWarehouseRepo) ListActive(_ context.Context) ([]*entity.Warehouse, error) {
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		if w.Active {
			c := *w
			out = append(out, &c)
		}
	}
	sortWarehouses(out)
	return out, nil
}

// WarehouseRepo implementa repository.WarehouseRepository.
type WarehouseRepo struct {
	s *Store
}

func (r *WarehouseRepo) GetByID(_ context.Context, id int64) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

func (r *WarehouseRepo) ListActive(_ context.Context) ([]*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.Warehouse
	for _, w := range r.s.warehouses {
		if w.Active {
			c := *w
			out = append(out, &c)
		}
	}
	sortWarehouses(out)
	return out, nil
}
