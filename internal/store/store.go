// README: Run store backed by PostgreSQL: persists run configs, metrics
// reports, and exported order records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxisim/internal/modules/analysis"
	"taxisim/internal/modules/order"
	"taxisim/internal/modules/sim"
	"taxisim/internal/types"
)

var ErrRunNotFound = errors.New("run not found")

const (
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// Run is one persisted simulation run.
type Run struct {
	ID        int64             `json:"id"`
	Status    string            `json:"status"`
	Config    sim.Config        `json:"config"`
	Report    *analysis.Metrics `json:"report,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateRun inserts a new run in the running state and returns its id.
func (s *Store) CreateRun(ctx context.Context, cfg sim.Config) (int64, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal run config: %w", err)
	}
	var id int64
	row := s.db.QueryRow(ctx, `
		INSERT INTO sim_runs (status, config, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id`,
		RunStatusRunning, cfgJSON,
	)
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// FinishRun stores the metrics report and flips the run to finished.
func (s *Store) FinishRun(ctx context.Context, id int64, report analysis.Metrics) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE sim_runs
		SET status = $1, report = $2
		WHERE id = $3`,
		RunStatusFinished, reportJSON, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrRunNotFound
	}
	return nil
}

// FailRun marks a run failed with the given reason.
func (s *Store) FailRun(ctx context.Context, id int64, reason string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sim_runs
		SET status = $1, failure_reason = $2
		WHERE id = $3`,
		RunStatusFailed, reason, id,
	)
	return err
}

// SaveOrders persists one run's exported order records in a single batch.
func (s *Store) SaveOrders(ctx context.Context, runID int64, records map[string]order.ExportRecord) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO sim_run_orders (
				run_id, order_id, pickup_node, dropoff_node, request_time,
				assigned_taxi, assigned_time, pickup_time, dropoff_time, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			runID,
			int(r.OrderID),
			int(r.PickupNode),
			int(r.DropoffNode),
			r.RequestTime,
			taxiPtr(r.AssignedTaxi),
			r.AssignedTime,
			r.PickupTime,
			r.DropoffTime,
			string(r.Status),
		)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetRun returns a run with its report, if any.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, status, config, report, created_at
		FROM sim_runs
		WHERE id = $1`, id,
	)
	var r Run
	var cfgJSON []byte
	var reportJSON []byte
	err := row.Scan(&r.ID, &r.Status, &cfgJSON, &reportJSON, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfgJSON, &r.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}
	if len(reportJSON) > 0 {
		var report analysis.Metrics
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		r.Report = &report
	}
	return &r, nil
}

// GetRunOrders reloads a run's exported order records, keyed by order id
// string like the JSON export.
func (s *Store) GetRunOrders(ctx context.Context, runID int64) (map[string]order.ExportRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT order_id, pickup_node, dropoff_node, request_time,
		       assigned_taxi, assigned_time, pickup_time, dropoff_time, status
		FROM sim_run_orders
		WHERE run_id = $1`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]order.ExportRecord)
	for rows.Next() {
		var r order.ExportRecord
		var assignedTaxi *int
		if err := rows.Scan(
			&r.OrderID, &r.PickupNode, &r.DropoffNode, &r.RequestTime,
			&assignedTaxi, &r.AssignedTime, &r.PickupTime, &r.DropoffTime, &r.Status,
		); err != nil {
			return nil, err
		}
		if assignedTaxi != nil {
			t := types.TaxiID(*assignedTaxi)
			r.AssignedTaxi = &t
		}
		out[fmt.Sprintf("%d", r.OrderID)] = r
	}
	return out, rows.Err()
}

func taxiPtr(v *types.TaxiID) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
