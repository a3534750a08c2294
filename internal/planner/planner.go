// Package planner computes ordered, risk-annotated migration plans from a
// pair of schema snapshots. Plan generation never mutates the database: the
// only live queries it issues are the lightweight orphaned-row probes used
// for foreign-key risk classification, and those run read-only.
package planner

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftline/driftline/database"
	"github.com/driftline/driftline/internal/schema"
)

// Planner generates migration plans against a live database. The connection
// supplies the current snapshot and the orphaned-row probes; everything else
// is pure computation.
type Planner struct {
	DB     *sql.DB
	Driver database.Driver
}

func New(db *sql.DB, driver database.Driver) *Planner {
	return &Planner{DB: db, Driver: driver}
}

// GenerateMigrationPlan introspects the current schema and plans the
// operations that transform it into desired.
func (p *Planner) GenerateMigrationPlan(ctx context.Context, desired *database.Snapshot) (*Plan, error) {
	current, err := p.Driver.Snapshot(ctx, p.DB)
	if err != nil {
		return nil, fmt.Errorf("introspecting current schema: %w", err)
	}
	probe := func(ctx context.Context, fk database.ForeignKey) (bool, error) {
		return p.Driver.OrphanedRowsExist(ctx, p.DB, fk)
	}
	return Generate(ctx, current, desired, probe)
}

// Generate computes the plan that transforms current into desired. It is a
// pure function of its snapshot inputs apart from the probe: the same pair
// of snapshots always yields an identical plan. probe may be nil for
// offline planning, in which case foreign-key additions are classified low
// with an explanatory note.
func Generate(ctx context.Context, current, desired *database.Snapshot, probe ProbeFunc) (*Plan, error) {
	if issues := schema.CheckIntegrity(desired); len(issues) > 0 {
		return nil, &InvalidDesiredSchemaError{Issues: issues}
	}

	ops := diffSnapshots(current, desired)
	if ops == nil {
		ops = []Operation{}
	}
	for i := range ops {
		if err := classifyRisk(ctx, &ops[i], current, probe); err != nil {
			return nil, err
		}
	}
	ops = orderOperations(ops, current, desired)

	sourceHash, err := schema.ComputeSnapshotHash(current)
	if err != nil {
		return nil, fmt.Errorf("hashing current schema: %w", err)
	}

	plan := &Plan{
		Migrations:      ops,
		Summary:         Summarize(ops),
		Risks:           []Operation{},
		EstimatedTimeMs: estimateTimeMs(ops, current),
		SourceHash:      sourceHash,
	}
	for _, op := range ops {
		if op.RiskLevel.AtLeast(RiskMedium) {
			plan.Risks = append(plan.Risks, op)
		}
	}
	return plan, nil
}
