package planner

import (
	"fmt"

	"github.com/driftline/driftline/database"
)

// RenderSQL composes the structural statement for one operation. It is a
// pure function of the operation and the generator, so dry-run output and
// the statement actually executed are always the same text.
func RenderSQL(op Operation, gen database.SQLGenerator) (sql string, description string, err error) {
	d := op.Details
	switch op.Type {
	case OpCreateTable:
		if d.TableDef == nil {
			return "", "", missingDetail(op, "tableDef")
		}
		sql, description = gen.CreateTable(*d.TableDef, d.Columns)
	case OpDropTable:
		if d.TableDef == nil {
			return "", "", missingDetail(op, "tableDef")
		}
		sql, description = gen.DropTable(*d.TableDef)
	case OpAddColumn:
		if d.Column == nil {
			return "", "", missingDetail(op, "column")
		}
		sql, description = gen.AddColumn(*d.Column)
	case OpModifyColumn:
		if d.Column == nil || d.FromColumn == nil {
			return "", "", missingDetail(op, "column")
		}
		sql, description = gen.ModifyColumn(*d.FromColumn, *d.Column)
	case OpDropColumn:
		if d.Column == nil {
			return "", "", missingDetail(op, "column")
		}
		sql, description = gen.DropColumn(*d.Column)
	case OpAddIndex:
		if d.Index == nil {
			return "", "", missingDetail(op, "index")
		}
		sql, description = gen.AddIndex(*d.Index)
	case OpDropIndex:
		if d.Index == nil {
			return "", "", missingDetail(op, "index")
		}
		sql, description = gen.DropIndex(*d.Index)
	case OpAddForeignKey:
		if d.ForeignKey == nil {
			return "", "", missingDetail(op, "foreignKey")
		}
		sql, description = gen.AddForeignKey(*d.ForeignKey)
	case OpDropForeignKey:
		if d.ForeignKey == nil {
			return "", "", missingDetail(op, "foreignKey")
		}
		sql, description = gen.DropForeignKey(*d.ForeignKey)
	default:
		return "", "", fmt.Errorf("unknown operation type %q", op.Type)
	}
	return sql, description, nil
}

func missingDetail(op Operation, field string) error {
	return fmt.Errorf("%s operation on %s is missing %s detail", op.Type, op.Table, field)
}
