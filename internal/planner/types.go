package planner

import (
	"github.com/driftline/driftline/database"
)

// OperationType identifies one kind of structural change.
type OperationType string

const (
	OpCreateTable    OperationType = "create_table"
	OpAddColumn      OperationType = "add_column"
	OpModifyColumn   OperationType = "modify_column"
	OpDropColumn     OperationType = "drop_column"
	OpAddIndex       OperationType = "add_index"
	OpDropIndex      OperationType = "drop_index"
	OpAddForeignKey  OperationType = "add_foreign_key"
	OpDropForeignKey OperationType = "drop_foreign_key"
	OpDropTable      OperationType = "drop_table"
)

// RiskLevel classifies how destructive an operation can be.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskBlocking RiskLevel = "blocking"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskBlocking: 3,
}

// AtLeast reports whether r is at least as severe as other.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// Details carries the typed payload of one operation. Exactly the fields
// relevant to the operation type are set.
type Details struct {
	TableDef   *database.Table      `json:"tableDef,omitempty"`   // create_table, drop_table
	Columns    []database.Column    `json:"columns,omitempty"`    // create_table
	Column     *database.Column     `json:"column,omitempty"`     // add/modify/drop column
	FromColumn *database.Column     `json:"fromColumn,omitempty"` // modify_column
	Changes    []string             `json:"changes,omitempty"`    // modify_column: type, nullable, default
	Index      *database.Index      `json:"index,omitempty"`      // add/drop index
	ForeignKey *database.ForeignKey `json:"foreignKey,omitempty"` // add/drop foreign key
	Notes      []string             `json:"notes,omitempty"`      // risk classification notes
}

// Operation is one step of a migration plan. Immutable once produced.
type Operation struct {
	Type      OperationType `json:"type"`
	Table     string        `json:"table"`
	Details   Details       `json:"details"`
	RiskLevel RiskLevel     `json:"riskLevel"`
}

// DetailKey returns the identifying key of the entity the operation touches,
// used for deterministic ordering within a tier.
func (op Operation) DetailKey() string {
	switch {
	case op.Details.Column != nil:
		return op.Details.Column.Name
	case op.Details.Index != nil:
		return op.Details.Index.Name
	case op.Details.ForeignKey != nil:
		return op.Details.ForeignKey.Name
	default:
		return ""
	}
}

// Summary aggregates a plan for audit records and operator review.
type Summary struct {
	TotalOperations int                   `json:"totalOperations"`
	CountsByType    map[OperationType]int `json:"countsByType"`
}

// Plan is the ordered, risk-annotated set of operations that transforms the
// current schema into the desired schema. A plan is a pure function of its
// two input snapshots and is never mutated after generation.
type Plan struct {
	Migrations      []Operation `json:"migrations"`
	Summary         Summary     `json:"summary"`
	Risks           []Operation `json:"risks"`
	EstimatedTimeMs int64       `json:"estimatedTimeMs"`

	// SourceHash is the canonical hash of the snapshot the plan was computed
	// against, used for cheap drift detection before execution.
	SourceHash string `json:"sourceHash,omitempty"`
}

// Summarize builds the summary for a list of operations.
func Summarize(ops []Operation) Summary {
	s := Summary{
		TotalOperations: len(ops),
		CountsByType:    make(map[OperationType]int),
	}
	for _, op := range ops {
		s.CountsByType[op.Type]++
	}
	return s
}
