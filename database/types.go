package database

import "sort"

// Snapshot is a normalized, dialect-agnostic view of a database's structure
// at one point in time. It is the document shape used for baseline capture
// and desired schemas, and is immutable once captured.
type Snapshot struct {
	Tables      []Table      `json:"tables"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`

	// Warnings lists tables whose metadata could not be read and were
	// omitted from the snapshot (permissions, transient errors).
	Warnings []string `json:"warnings,omitempty"`
}

// Table describes one base table.
type Table struct {
	Name             string `json:"name"`
	Engine           string `json:"engine,omitempty"`
	RowCountEstimate int64  `json:"rowCountEstimate"`
}

// Column describes one table column. A column is uniquely identified by
// (TableName, Name) within a snapshot.
type Column struct {
	TableName    string  `json:"tableName"`
	Name         string  `json:"name"`
	DataType     string  `json:"dataType"`
	ColumnType   string  `json:"columnType"`
	MaxLength    *int64  `json:"maxLength,omitempty"`
	IsNullable   bool    `json:"isNullable"`
	DefaultValue *string `json:"defaultValue,omitempty"`
	Position     int     `json:"position"`
}

// Index describes one secondary index, uniquely identified by
// (TableName, Name) within a snapshot.
type Index struct {
	TableName string   `json:"tableName"`
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	Unique    bool     `json:"unique"`
}

// ForeignKey describes one foreign key constraint.
type ForeignKey struct {
	Name             string `json:"name"`
	TableName        string `json:"tableName"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referencedTable"`
	ReferencedColumn string `json:"referencedColumn"`
	OnDelete         string `json:"onDelete,omitempty"`
}

// TableDetail bundles the structural metadata of a single table.
type TableDetail struct {
	Table       Table        `json:"table"`
	Columns     []Column     `json:"columns"`
	Indexes     []Index      `json:"indexes"`
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

// SizeInfo is an aggregate storage statistic used for estimation only.
type SizeInfo struct {
	TotalBytes int64 `json:"totalBytes"`
	TableCount int   `json:"tableCount"`
}

// Table returns the table with the given name, or nil.
func (s *Snapshot) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column identified by (table, name), or nil.
func (s *Snapshot) Column(table, name string) *Column {
	for i := range s.Columns {
		if s.Columns[i].TableName == table && s.Columns[i].Name == name {
			return &s.Columns[i]
		}
	}
	return nil
}

// Index returns the index identified by (table, name), or nil.
func (s *Snapshot) Index(table, name string) *Index {
	for i := range s.Indexes {
		if s.Indexes[i].TableName == table && s.Indexes[i].Name == name {
			return &s.Indexes[i]
		}
	}
	return nil
}

// ForeignKey returns the foreign key identified by (table, name), or nil.
func (s *Snapshot) ForeignKey(table, name string) *ForeignKey {
	for i := range s.ForeignKeys {
		if s.ForeignKeys[i].TableName == table && s.ForeignKeys[i].Name == name {
			return &s.ForeignKeys[i]
		}
	}
	return nil
}

// TableColumns returns the columns of a table ordered by position.
func (s *Snapshot) TableColumns(table string) []Column {
	var cols []Column
	for _, c := range s.Columns {
		if c.TableName == table {
			cols = append(cols, c)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].Name < cols[j].Name
	})
	return cols
}

// TableIndexes returns the indexes of a table ordered by name.
func (s *Snapshot) TableIndexes(table string) []Index {
	var idxs []Index
	for _, idx := range s.Indexes {
		if idx.TableName == table {
			idxs = append(idxs, idx)
		}
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name < idxs[j].Name })
	return idxs
}

// TableForeignKeys returns the foreign keys of a table ordered by name.
func (s *Snapshot) TableForeignKeys(table string) []ForeignKey {
	var fks []ForeignKey
	for _, fk := range s.ForeignKeys {
		if fk.TableName == table {
			fks = append(fks, fk)
		}
	}
	sort.Slice(fks, func(i, j int) bool { return fks[i].Name < fks[j].Name })
	return fks
}

// TableNames returns all table names sorted lexicographically.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Detail assembles the TableDetail for one table, or nil if the table is not
// part of the snapshot.
func (s *Snapshot) Detail(table string) *TableDetail {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	return &TableDetail{
		Table:       *t,
		Columns:     s.TableColumns(table),
		Indexes:     s.TableIndexes(table),
		ForeignKeys: s.TableForeignKeys(table),
	}
}
