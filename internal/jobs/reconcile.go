package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/pkg/logger"
)

const (
	// QueueDefault cola por defecto de las tareas del motor.
	QueueDefault = "default"
	// TaskInventoryReconcile concilia kardex contra existencias.
	TaskInventoryReconcile = "inventory:reconcile"
)

// ReconcilePayload bodegas a conciliar; vacío = todas las activas.
type ReconcilePayload struct {
	WarehouseIDs []int64 `json:"warehouse_ids,omitempty"`
}

// NewReconcileTask construye la tarea asynq de conciliación.
func NewReconcileTask(warehouseIDs ...int64) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{WarehouseIDs: warehouseIDs})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryReconcile, body, asynq.Queue(QueueDefault)), nil
}

// Reconciler lo implementa *inventory.ReconcileUseCase.
type Reconciler interface {
	ReconcileAll(ctx context.Context, warehouseIDs []int64) ([]*inventory.ReconcileReport, error)
}

// ReconcileJob handler asynq de la conciliación.
type ReconcileJob struct {
	uc  Reconciler
	log *logger.Logger
}

// NewReconcileJob construye el job.
func NewReconcileJob(uc Reconciler, log *logger.Logger) *ReconcileJob {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileJob{uc: uc, log: log.Named("jobs")}
}

// Handle ejecuta la conciliación. Un payload ilegible no se reintenta; las discrepancias se
// registran pero no hacen fallar la tarea.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("reconcile: payload inválido: %v: %w", err, asynq.SkipRetry)
		}
	}
	reports, err := j.uc.ReconcileAll(ctx, payload.WarehouseIDs)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	total := 0
	for _, r := range reports {
		total += len(r.Discrepancies)
	}
	ev := j.log.Info()
	if total > 0 {
		ev = j.log.Warn()
	}
	ev.Int("warehouses", len(reports)).Int("discrepancies", total).Msg("tarea de conciliación terminada")
	return nil
}
