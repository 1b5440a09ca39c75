package archive

import (
	"database/sql"
	"time"

	"github.com/rxtech-lab/argo-execution/internal/types"
	"github.com/rxtech-lab/argo-execution/pkg/errors"
)

const marksSchema = `
	signal_id TEXT,
	strategy_id TEXT,
	exchange TEXT,
	pair TEXT,
	signal_type TEXT,
	direction TEXT,
	strength DOUBLE,
	volatility DOUBLE,
	outcome TEXT,
	reason TEXT,
	order_id TEXT,
	timestamp TIMESTAMP
`

var markColumns = []string{
	"signal_id", "strategy_id", "exchange", "pair", "signal_type", "direction", "strength",
	"volatility", "outcome", "reason", "order_id", "timestamp",
}

// MarkWriter records every signal decision, admitted or dropped.
type MarkWriter struct {
	*table
}

func NewMarkWriter(outputPath string) *MarkWriter {
	return &MarkWriter{table: newTable("marks", marksSchema, "timestamp ASC", outputPath)}
}

func (w *MarkWriter) Open() error {
	return w.open()
}

// WriteMark appends mark and exports the archive.
func (w *MarkWriter) WriteMark(mark types.Mark) error {
	insert := w.sq.
		Insert(w.name).
		Columns(markColumns...).
		Values(
			mark.SignalID, mark.StrategyID, mark.Exchange, mark.Pair, string(mark.SignalType),
			string(mark.Direction), mark.Strength, mark.Volatility, mark.Outcome, mark.Reason,
			mark.OrderID, mark.Timestamp,
		)

	return w.exec(insert)
}

// Marks returns marks matching filter and, when outcome is not empty, that outcome. Oldest first.
func (w *MarkWriter) Marks(filter types.PositionFilter, outcome string) ([]types.Mark, error) {
	var marks []types.Mark

	err := w.query(func(db *sql.DB) error {
		clause := filterClause(filter)
		if outcome != "" {
			clause["outcome"] = outcome
		}

		rows, err := w.sq.Select(markColumns...).From(w.name).Where(clause).OrderBy("timestamp ASC").RunWith(db).Query()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				mark       types.Mark
				signalType string
				direction  string
				timestamp  time.Time
			)

			err := rows.Scan(
				&mark.SignalID, &mark.StrategyID, &mark.Exchange, &mark.Pair, &signalType, &direction,
				&mark.Strength, &mark.Volatility, &mark.Outcome, &mark.Reason, &mark.OrderID, &timestamp,
			)
			if err != nil {
				return err
			}

			mark.SignalType = types.SignalType(signalType)
			mark.Direction = types.Direction(direction)
			mark.Timestamp = timestamp.UTC()
			marks = append(marks, mark)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query marks", err)
	}

	return marks, nil
}

func (w *MarkWriter) Count() (int, error) {
	return w.count()
}

func (w *MarkWriter) Close() error {
	return w.close()
}
