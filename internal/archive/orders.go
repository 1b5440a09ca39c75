package archive

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

const ordersSchema = `
	id TEXT PRIMARY KEY,
	client_id TEXT,
	exchange TEXT,
	pair TEXT,
	side TEXT,
	order_type TEXT,
	quantity DOUBLE,
	price DOUBLE,
	status TEXT,
	filled_quantity DOUBLE,
	average_fill_price DOUBLE,
	fee DOUBLE,
	strategy_id TEXT,
	reason TEXT,
	reason_message TEXT,
	created_at TIMESTAMP,
	updated_at TIMESTAMP
`

var orderColumns = []string{
	"id", "client_id", "exchange", "pair", "side", "order_type", "quantity", "price", "status",
	"filled_quantity", "average_fill_price", "fee", "strategy_id", "reason", "reason_message",
	"created_at", "updated_at",
}

// OrderWriter archives orders to a parquet file. Writing the same order id again
// replaces its mutable fields.
type OrderWriter struct {
	*table
}

func NewOrderWriter(outputPath string) *OrderWriter {
	return &OrderWriter{table: newTable("orders", ordersSchema, "created_at ASC", outputPath)}
}

// Open creates the table, loading any rows already exported to the output path.
func (w *OrderWriter) Open() error {
	return w.open()
}

// WriteOrder upserts order and exports the archive.
func (w *OrderWriter) WriteOrder(order types.Order) error {
	var price any
	if order.Price.IsSome() {
		price = order.Price.Unwrap()
	}

	insert := w.sq.
		Insert(w.name).
		Columns(orderColumns...).
		Values(
			order.ID, order.ClientID, order.Exchange, order.Pair, string(order.Side), string(order.Type),
			order.Quantity, price, string(order.Status), order.FilledQuantity, order.AverageFillPrice,
			order.Fee, order.StrategyID, order.Reason.Reason, order.Reason.Message,
			order.CreatedAt, order.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			filled_quantity = excluded.filled_quantity,
			average_fill_price = excluded.average_fill_price,
			fee = excluded.fee,
			updated_at = excluded.updated_at`)

	return w.exec(insert)
}

// Orders returns archived orders matching filter, oldest first. limit 0 returns all.
func (w *OrderWriter) Orders(filter types.PositionFilter, limit uint64) ([]types.Order, error) {
	var orders []types.Order

	err := w.query(func(db *sql.DB) error {
		query := w.sq.Select(orderColumns...).From(w.name).Where(filterClause(filter)).OrderBy("created_at ASC")
		if limit > 0 {
			query = query.Limit(limit)
		}

		rows, err := query.RunWith(db).Query()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return err
			}

			orders = append(orders, order)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query orders", err)
	}

	return orders, nil
}

// Count returns the number of archived orders.
func (w *OrderWriter) Count() (int, error) {
	return w.count()
}

func (w *OrderWriter) Flush() error {
	return w.flush()
}

func (w *OrderWriter) Close() error {
	return w.close()
}

// OutputPath returns the parquet file path.
func (w *OrderWriter) OutputPath() string {
	return w.outputPath
}

func scanOrder(rows *sql.Rows) (types.Order, error) {
	var (
		order                   types.Order
		side, orderType, status string
		price                   sql.NullFloat64
		createdAt, updatedAt    time.Time
	)

	err := rows.Scan(
		&order.ID, &order.ClientID, &order.Exchange, &order.Pair, &side, &orderType,
		&order.Quantity, &price, &status, &order.FilledQuantity, &order.AverageFillPrice,
		&order.Fee, &order.StrategyID, &order.Reason.Reason, &order.Reason.Message,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return types.Order{}, err
	}

	order.Side = types.OrderSide(side)
	order.Type = types.OrderType(orderType)
	order.Status = types.OrderStatus(status)
	order.Price = optional.None[float64]()
	if price.Valid {
		order.Price = optional.Some(price.Float64)
	}

	order.StopLoss = optional.None[float64]()
	order.TakeProfit = optional.None[float64]()
	order.CreatedAt = createdAt.UTC()
	order.UpdatedAt = updatedAt.UTC()

	return order, nil
}

func filterClause(filter types.PositionFilter) squirrel.Eq {
	clause := squirrel.Eq{}
	if filter.Exchange != "" {
		clause["exchange"] = filter.Exchange
	}

	if filter.Pair != "" {
		clause["pair"] = filter.Pair
	}

	if filter.StrategyID != "" {
		clause["strategy_id"] = filter.StrategyID
	}

	return clause
}
