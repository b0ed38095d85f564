package repository

import (
	"context"
	"database/sql"
	"fmt"

	"asset-ledger/internal/models"
)

// ReportRepository consultas agregadas de solo lectura sobre los movimientos
type ReportRepository interface {
	SumDeliveredPurchases(ctx context.Context, filter models.MovementFilter) (int, error)
	SumCompletedTransfersIn(ctx context.Context, filter models.MovementFilter) (int, error)
	SumCompletedTransfersOut(ctx context.Context, filter models.MovementFilter) (int, error)

	// Listados con el mismo criterio que las sumas, con nombre y tipo del activo
	ListDeliveredPurchases(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error)
	ListCompletedTransfersIn(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error)
	ListCompletedTransfersOut(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error)

	CountAssets(ctx context.Context, filter models.MovementFilter) (int, error)
	CountPurchases(ctx context.Context, filter models.MovementFilter) (int, error)
	CountPendingTransfers(ctx context.Context, filter models.MovementFilter) (int, error)
	CountAssignments(ctx context.Context, filter models.MovementFilter) (int, error)
	CountExpenditures(ctx context.Context, filter models.MovementFilter) (int, error)
}

type reportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

// movementQuery describe una agregación: tabla, columna de base, columna de fecha y filtro fijo
type movementQuery struct {
	selectExpr string
	table      string
	baseColumn string
	dateColumn string
	status     string
}

// filter arma el WHERE; alias califica las columnas cuando la consulta hace join
func (q movementQuery) filter(filter models.MovementFilter, alias string) *filterBuilder {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}

	b := &filterBuilder{}
	if q.status != "" {
		b.add(col("status")+" = ?", q.status)
	}
	if filter.BaseID != "" {
		b.add(col(q.baseColumn)+" = ?", filter.BaseID)
	}
	if filter.StartDate != nil {
		b.add(col(q.dateColumn)+" >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		b.add(col(q.dateColumn)+" <= ?", filter.EndDate.UTC())
	}
	return b
}

func (r *reportRepository) scalar(ctx context.Context, q movementQuery, filter models.MovementFilter) (int, error) {
	b := q.filter(filter, "")
	query := "SELECT " + q.selectExpr + " FROM " + q.table + b.where()

	var value int
	if err := r.db.QueryRowContext(ctx, query, b.args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to aggregate %s: %w", q.table, err)
	}
	return value, nil
}

// list devuelve las filas del movimiento unidas a assets; columns debe
// producir id, asset_id, name, type, from, to, quantity, status, fecha.
func (r *reportRepository) list(ctx context.Context, q movementQuery, columns string, filter models.MovementFilter) ([]models.MovementRecord, error) {
	b := q.filter(filter, "m")
	query := "SELECT " + columns + " FROM " + q.table + " m JOIN assets a ON a.asset_id = m.asset_id" +
		b.where() + " ORDER BY m." + q.dateColumn + " DESC, m.id"

	rows, err := r.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", q.table, err)
	}
	defer rows.Close()

	records := []models.MovementRecord{}
	for rows.Next() {
		var rec models.MovementRecord
		var assetType string
		var date sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.AssetID, &rec.AssetName, &assetType,
			&rec.FromBaseID, &rec.ToBaseID, &rec.Quantity, &rec.Status, &date,
		); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", q.table, err)
		}
		rec.AssetType = models.AssetType(assetType)
		rec.Date = date.Time
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", q.table, err)
	}
	return records, nil
}

const sumQuantity = "COALESCE(SUM(quantity), 0)"

// Las transferencias cuentan en la ventana en que se completaron
var (
	deliveredPurchases = movementQuery{
		selectExpr: sumQuantity, table: "purchases", baseColumn: "base_id",
		dateColumn: "purchase_date", status: string(models.PurchaseStatusDelivered),
	}
	completedTransfersIn = movementQuery{
		selectExpr: sumQuantity, table: "transfers", baseColumn: "to_base_id",
		dateColumn: "completed_at", status: string(models.TransferStatusCompleted),
	}
	completedTransfersOut = movementQuery{
		selectExpr: sumQuantity, table: "transfers", baseColumn: "from_base_id",
		dateColumn: "completed_at", status: string(models.TransferStatusCompleted),
	}
)

const (
	purchaseRecordColumns = `m.id, m.asset_id, a.name, a.type, '', m.base_id, m.quantity, m.status, m.purchase_date`
	transferRecordColumns = `m.id, m.asset_id, a.name, a.type, m.from_base_id, m.to_base_id, m.quantity, m.status, m.completed_at`
)

func (r *reportRepository) SumDeliveredPurchases(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, deliveredPurchases, filter)
}

func (r *reportRepository) SumCompletedTransfersIn(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, completedTransfersIn, filter)
}

func (r *reportRepository) SumCompletedTransfersOut(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, completedTransfersOut, filter)
}

func (r *reportRepository) ListDeliveredPurchases(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error) {
	return r.list(ctx, deliveredPurchases, purchaseRecordColumns, filter)
}

func (r *reportRepository) ListCompletedTransfersIn(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error) {
	return r.list(ctx, completedTransfersIn, transferRecordColumns, filter)
}

func (r *reportRepository) ListCompletedTransfersOut(ctx context.Context, filter models.MovementFilter) ([]models.MovementRecord, error) {
	return r.list(ctx, completedTransfersOut, transferRecordColumns, filter)
}

func (r *reportRepository) CountAssets(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, movementQuery{
		selectExpr: "COUNT(*)", table: "assets", baseColumn: "base_id", dateColumn: "created_at",
	}, filter)
}

func (r *reportRepository) CountPurchases(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, movementQuery{
		selectExpr: "COUNT(*)", table: "purchases", baseColumn: "base_id", dateColumn: "purchase_date",
	}, filter)
}

// CountPendingTransfers cuenta transferencias pendientes salientes de la base
func (r *reportRepository) CountPendingTransfers(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, movementQuery{
		selectExpr: "COUNT(*)", table: "transfers", baseColumn: "from_base_id",
		dateColumn: "transfer_date", status: string(models.TransferStatusPending),
	}, filter)
}

func (r *reportRepository) CountAssignments(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, movementQuery{
		selectExpr: "COUNT(*)", table: "assignments", baseColumn: "base_id", dateColumn: "assigned_date",
	}, filter)
}

func (r *reportRepository) CountExpenditures(ctx context.Context, filter models.MovementFilter) (int, error) {
	return r.scalar(ctx, movementQuery{
		selectExpr: "COUNT(*)", table: "expenditures", baseColumn: "base_id", dateColumn: "expenditure_date",
	}, filter)
}
