package planner

import "github.com/driftline/driftline/database"

// Cost model constants. Metadata-only changes settle around the base cost;
// operations that rewrite table storage or build index structures scale
// with the estimated row count.
const (
	baseOperationMs     = 10
	perRowRewriteMicros = 50
	perRowIndexMicros   = 20
)

func estimateTimeMs(ops []Operation, current *database.Snapshot) int64 {
	var total int64
	for i := range ops {
		total += estimateOperationMs(&ops[i], current)
	}
	return total
}

func estimateOperationMs(op *Operation, current *database.Snapshot) int64 {
	cost := int64(baseOperationMs)
	rows := tableRows(current, op.Table)

	switch op.Type {
	case OpAddColumn:
		col := op.Details.Column
		if !col.IsNullable && col.DefaultValue == nil {
			cost += rows * perRowRewriteMicros / 1000
		}
	case OpModifyColumn:
		if op.RiskLevel == RiskHigh {
			cost += rows * perRowRewriteMicros / 1000
		}
	case OpAddIndex:
		cost += rows * perRowIndexMicros / 1000
	case OpDropColumn, OpDropTable:
		// Drops reclaim storage lazily; cost stays at the base.
	}
	return cost
}
