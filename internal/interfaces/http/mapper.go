package http

import (
	"sort"

	"github.com/jhoicas/inventario-lotes/internal/application/dto"
	"github.com/jhoicas/inventario-lotes/internal/application/inventory"
	"github.com/jhoicas/inventario-lotes/internal/domain/entity"
	dinv "github.com/jhoicas/inventario-lotes/internal/domain/inventory"
)

func toStockRowResponse(r *entity.StockRow) dto.StockRowResponse {
	out := dto.StockRowResponse{
		WarehouseID:  r.WarehouseID,
		LotID:        r.LotID,
		Available:    r.Available,
		Reserved:     r.Reserved,
		MinThreshold: r.MinThreshold,
		Exists:       r.Exists,
	}
	if r.Exists && !r.LastUpdatedAt.IsZero() {
		t := r.LastUpdatedAt
		out.LastUpdatedAt = &t
	}
	return out
}

func toPlanDTO(p dinv.Plan) dto.PlanDTO {
	out := dto.PlanDTO{
		Pool:      p.Pool.String(),
		Requested: p.Requested,
		Covered:   p.Covered,
		Shortfall: p.Shortfall,
		Lines:     make([]dto.PlanLineDTO, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		out.Lines = append(out.Lines, dto.PlanLineDTO{LotID: l.LotID, Quantity: l.Quantity, ExpiresAt: l.ExpiresAt})
	}
	return out
}

func toDetailDTO(d *entity.ReservationDetail) dto.ReservationDetailDTO {
	return dto.ReservationDetailDTO{
		DepositID:      d.DepositID,
		PresentationID: d.PresentationID,
		WarehouseID:    d.WarehouseID,
		RequestedQty:   d.RequestedQty,
		ReservedQty:    d.ReservedQty,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toDetailDTOs(ds []*entity.ReservationDetail) []dto.ReservationDetailDTO {
	out := make([]dto.ReservationDetailDTO, 0, len(ds))
	for _, d := range ds {
		out = append(out, toDetailDTO(d))
	}
	return out
}

func toReservationResponse(r *inventory.ReservationResult) dto.ReservationResponse {
	out := dto.ReservationResponse{
		OperationID: r.OperationID,
		Lines:       make([]dto.LotQtyDTO, 0, len(r.Lines)),
		Moved:       r.Moved,
		Shortfall:   r.Shortfall,
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, dto.LotQtyDTO{LotID: l.LotID, Quantity: l.Quantity})
	}
	if r.Detail != nil {
		d := toDetailDTO(r.Detail)
		out.Detail = &d
	}
	return out
}

func toReleaseAllResponse(r *inventory.ReleaseAllResult) dto.ReleaseAllResponse {
	out := dto.ReleaseAllResponse{
		OperationID: r.OperationID,
		Released:    make([]dto.ReleasedRowDTO, 0, len(r.Released)),
		Details:     toDetailDTOs(r.Details),
	}
	for k, q := range r.Released {
		out.Released = append(out.Released, dto.ReleasedRowDTO{WarehouseID: k.WarehouseID, LotID: k.LotID, Quantity: q})
	}
	sort.Slice(out.Released, func(i, j int) bool {
		a, b := out.Released[i], out.Released[j]
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.LotID < b.LotID
	})
	return out
}

func toConsumptionDTOs(cs []*entity.SaleLotConsumption) []dto.ConsumptionDTO {
	out := make([]dto.ConsumptionDTO, 0, len(cs))
	for _, c := range cs {
		out = append(out, dto.ConsumptionDTO{
			ID:          c.ID,
			SaleLineID:  c.SaleLineID,
			WarehouseID: c.WarehouseID,
			LotID:       c.LotID,
			Quantity:    c.Quantity,
			Pool:        c.Pool.String(),
			DepositID:   c.DepositID,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out
}

func toTransferResponse(t *entity.Transfer) dto.TransferResponse {
	out := dto.TransferResponse{
		ID:                t.ID,
		OriginWarehouseID: t.OriginWarehouseID,
		DestWarehouseID:   t.DestWarehouseID,
		State:             t.State.Name(),
		Lines:             make([]dto.TransferLineDTO, 0, len(t.Lines)),
		Notes:             t.Notes,
		CancelReason:      t.CancelReason,
		CreatedBy:         t.CreatedBy,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
	for _, l := range t.Lines {
		out.Lines = append(out.Lines, dto.TransferLineDTO{LotID: l.LotID, Quantity: l.Quantity})
	}
	return out
}

func toMovementDTOs(ms []*entity.MovementEntry) []dto.MovementDTO {
	out := make([]dto.MovementDTO, 0, len(ms))
	for _, m := range ms {
		d := dto.MovementDTO{
			ID:                m.ID,
			OperationID:       m.OperationID,
			Timestamp:         m.Timestamp,
			Kind:              m.Kind.Name(),
			OriginWarehouseID: m.OriginWarehouseID,
			DestWarehouseID:   m.DestWarehouseID,
			LotID:             m.LotID,
			Quantity:          m.Quantity,
			SourceModule:      string(m.SourceModule),
			SourceID:          m.SourceID,
			Notes:             m.Notes,
			CreatedBy:         m.CreatedBy,
		}
		if m.Pool != "" {
			d.Pool = m.Pool.String()
		}
		out = append(out, d)
	}
	return out
}

func toReconcileReportDTOs(reports []*inventory.ReconcileReport) []dto.ReconcileReportDTO {
	out := make([]dto.ReconcileReportDTO, 0, len(reports))
	for _, r := range reports {
		d := dto.ReconcileReportDTO{
			WarehouseID:   r.WarehouseID,
			RowsChecked:   r.RowsChecked,
			OK:            r.OK(),
			Discrepancies: make([]dto.DiscrepancyDTO, 0, len(r.Discrepancies)),
			CheckedAt:     r.CheckedAt,
		}
		for _, x := range r.Discrepancies {
			d.Discrepancies = append(d.Discrepancies, dto.DiscrepancyDTO{
				WarehouseID: x.WarehouseID,
				LotID:       x.LotID,
				Expected:    dto.BalanceDTO{Available: x.Expected.Available, Reserved: x.Expected.Reserved},
				Actual:      dto.BalanceDTO{Available: x.Actual.Available, Reserved: x.Actual.Reserved},
			})
		}
		out = append(out, d)
	}
	return out
}
