package archive

import (
	"database/sql"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

const tradesSchema = `
	id TEXT,
	order_id TEXT,
	exchange TEXT,
	pair TEXT,
	side TEXT,
	quantity DOUBLE,
	price DOUBLE,
	fee DOUBLE,
	realized_pnl DOUBLE,
	strategy_id TEXT,
	reason TEXT,
	timestamp TIMESTAMP
`

var tradeColumns = []string{
	"id", "order_id", "exchange", "pair", "side", "quantity", "price", "fee", "realized_pnl",
	"strategy_id", "reason", "timestamp",
}

// TradeWriter appends executed trades to a parquet file.
type TradeWriter struct {
	*table
}

func NewTradeWriter(outputPath string) *TradeWriter {
	return &TradeWriter{table: newTable("trades", tradesSchema, "timestamp ASC", outputPath)}
}

func (w *TradeWriter) Open() error {
	return w.open()
}

// WriteTrade appends trade and exports the archive.
func (w *TradeWriter) WriteTrade(trade types.Trade) error {
	insert := w.sq.
		Insert(w.name).
		Columns(tradeColumns...).
		Values(
			trade.ID, trade.OrderID, trade.Exchange, trade.Pair, string(trade.Side), trade.Quantity,
			trade.Price, trade.Fee, trade.RealizedPnL, trade.StrategyID, trade.Reason, trade.Timestamp,
		)

	return w.exec(insert)
}

// Trades returns archived trades matching filter, oldest first. limit 0 returns all.
func (w *TradeWriter) Trades(filter types.PositionFilter, limit uint64) ([]types.Trade, error) {
	var trades []types.Trade

	err := w.query(func(db *sql.DB) error {
		query := w.sq.Select(tradeColumns...).From(w.name).Where(filterClause(filter)).OrderBy("timestamp ASC")
		if limit > 0 {
			query = query.Limit(limit)
		}

		rows, err := query.RunWith(db).Query()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				trade     types.Trade
				side      string
				timestamp time.Time
			)

			err := rows.Scan(
				&trade.ID, &trade.OrderID, &trade.Exchange, &trade.Pair, &side, &trade.Quantity,
				&trade.Price, &trade.Fee, &trade.RealizedPnL, &trade.StrategyID, &trade.Reason, &timestamp,
			)
			if err != nil {
				return err
			}

			trade.Side = types.OrderSide(side)
			trade.Timestamp = timestamp.UTC()
			trades = append(trades, trade)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}

	return trades, nil
}

// Count returns the number of archived trades.
func (w *TradeWriter) Count() (int, error) {
	return w.count()
}

// TotalPnL returns the sum of realized PnL over archived trades.
func (w *TradeWriter) TotalPnL() (float64, error) {
	return w.sum("realized_pnl")
}

// TotalFees returns the sum of fees over archived trades.
func (w *TradeWriter) TotalFees() (float64, error) {
	return w.sum("fee")
}

func (w *TradeWriter) Flush() error {
	return w.flush()
}

func (w *TradeWriter) Close() error {
	return w.close()
}

// OutputPath returns the parquet file path.
func (w *TradeWriter) OutputPath() string {
	return w.outputPath
}
