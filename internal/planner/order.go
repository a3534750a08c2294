package planner

import (
	"sort"

	"github.com/driftline/driftline/database"
)

// Execution tiers, per the dependency rules: creations widen the schema
// first, destructive operations run last and in reverse dependency order.
func tier(t OperationType) int {
	switch t {
	case OpCreateTable:
		return 0
	case OpAddColumn:
		return 1
	case OpAddIndex:
		return 2
	case OpAddForeignKey, OpModifyColumn:
		return 3
	case OpDropForeignKey:
		return 4
	case OpDropIndex, OpDropColumn:
		return 5
	case OpDropTable:
		return 6
	}
	return 7
}

// orderOperations arranges the raw diff into the final deterministic plan
// order. Within a tier operations sort lexicographically by (table, type,
// detail key); create_table and drop_table additionally respect foreign-key
// topology.
func orderOperations(ops []Operation, current, desired *database.Snapshot) []Operation {
	sort.SliceStable(ops, func(i, j int) bool {
		ti, tj := tier(ops[i].Type), tier(ops[j].Type)
		if ti != tj {
			return ti < tj
		}
		if ops[i].Table != ops[j].Table {
			return ops[i].Table < ops[j].Table
		}
		if ops[i].Type != ops[j].Type {
			return ops[i].Type < ops[j].Type
		}
		return ops[i].DetailKey() < ops[j].DetailKey()
	})

	sortCreates(ops, desired)
	sortDrops(ops, current)
	return hoistReplacements(ops)
}

// hoistReplacements moves the drop half of a redefinition (drop plus add of
// an index or foreign key with the same name) to just before its replacement
// add, so the old definition is gone before the new one claims the name.
// Drops with no matching add keep their tier position.
func hoistReplacements(ops []Operation) []Operation {
	dropTypeFor := func(t OperationType) (OperationType, bool) {
		switch t {
		case OpAddIndex:
			return OpDropIndex, true
		case OpAddForeignKey:
			return OpDropForeignKey, true
		}
		return "", false
	}

	hoisted := make(map[int]int) // add position -> drop position
	taken := make(map[int]bool)
	for i, op := range ops {
		dt, ok := dropTypeFor(op.Type)
		if !ok {
			continue
		}
		for j := i + 1; j < len(ops); j++ {
			if ops[j].Type == dt && ops[j].Table == op.Table &&
				ops[j].DetailKey() == op.DetailKey() && !taken[j] {
				hoisted[i] = j
				taken[j] = true
				break
			}
		}
	}
	if len(hoisted) == 0 {
		return ops
	}

	out := make([]Operation, 0, len(ops))
	for i, op := range ops {
		if taken[i] {
			continue
		}
		if j, ok := hoisted[i]; ok {
			out = append(out, ops[j])
		}
		out = append(out, op)
	}
	return out
}

// sortCreates reorders the contiguous create_table run so that referenced
// tables come before the tables whose foreign keys point at them.
func sortCreates(ops []Operation, desired *database.Snapshot) {
	start, end := opRange(ops, OpCreateTable)
	if end-start < 2 {
		return
	}
	names := make([]string, 0, end-start)
	for _, op := range ops[start:end] {
		names = append(names, op.Table)
	}
	sorted := topoSort(names, fkEdges(desired, names))
	byName := make(map[string]Operation, end-start)
	for _, op := range ops[start:end] {
		byName[op.Table] = op
	}
	for i, name := range sorted {
		ops[start+i] = byName[name]
	}
}

// sortDrops reorders the contiguous drop_table run into the reverse of the
// creation order implied by the current schema's foreign keys.
func sortDrops(ops []Operation, current *database.Snapshot) {
	start, end := opRange(ops, OpDropTable)
	if end-start < 2 {
		return
	}
	names := make([]string, 0, end-start)
	for _, op := range ops[start:end] {
		names = append(names, op.Table)
	}
	sorted := topoSort(names, fkEdges(current, names))
	byName := make(map[string]Operation, end-start)
	for _, op := range ops[start:end] {
		byName[op.Table] = op
	}
	for i := range sorted {
		ops[start+i] = byName[sorted[len(sorted)-1-i]]
	}
}

func opRange(ops []Operation, t OperationType) (int, int) {
	start, end := -1, -1
	for i, op := range ops {
		if op.Type == t {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return 0, 0
	}
	return start, end
}

// fkEdges returns, for each table in names, the set of peer tables it
// references via foreign keys. Self-references and references outside the
// set are ignored.
func fkEdges(snap *database.Snapshot, names []string) map[string][]string {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}
	edges := make(map[string][]string)
	for _, fk := range snap.ForeignKeys {
		if fk.TableName == fk.ReferencedTable {
			continue
		}
		if inSet[fk.TableName] && inSet[fk.ReferencedTable] {
			edges[fk.TableName] = append(edges[fk.TableName], fk.ReferencedTable)
		}
	}
	return edges
}

// topoSort orders names so that every table precedes the tables that
// reference it, breaking ties lexicographically. If the edges contain a
// cycle the remaining members are appended in lexicographic order so
// planning still terminates deterministically.
func topoSort(names []string, deps map[string][]string) []string {
	indegree := make(map[string]int, len(names))
	dependents := make(map[string][]string)
	for _, n := range names {
		indegree[n] = 0
	}
	for table, refs := range deps {
		for _, ref := range refs {
			indegree[table]++
			dependents[ref] = append(dependents[ref], table)
		}
	}

	ready := make([]string, 0, len(names))
	for _, n := range names {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	out := make([]string, 0, len(names))
	done := make(map[string]bool, len(names))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		out = append(out, n)
		done[n] = true
		var freed []string
		for _, dep := range dependents[n] {
			indegree[dep]--
			if indegree[dep] == 0 {
				freed = append(freed, dep)
			}
		}
		if len(freed) > 0 {
			ready = append(ready, freed...)
			sort.Strings(ready)
		}
	}

	if len(out) < len(names) {
		var rest []string
		for _, n := range names {
			if !done[n] {
				rest = append(rest, n)
			}
		}
		sort.Strings(rest)
		out = append(out, rest...)
	}
	return out
}
