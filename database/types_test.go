package database

import (
	"reflect"
	"testing"
)

func TestDetectDriver(t *testing.T) {
	cases := []struct {
		connStr string
		want    string
		wantErr bool
	}{
		{"postgres://user:pw@localhost:5432/app", "postgres", false},
		{"postgresql://localhost/app", "postgres", false},
		{"mysql://user:pw@localhost:3306/app", "mysql", false},
		{"user:pw@tcp(localhost:3306)/app", "mysql", false},
		{"user@unix(/tmp/mysql.sock)/app", "mysql", false},
		{"/var/lib/data.db", "", true},
	}
	for _, tc := range cases {
		got, err := DetectDriver(tc.connStr)
		if tc.wantErr {
			if err == nil {
				t.Errorf("DetectDriver(%q) expected error, got %q", tc.connStr, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("DetectDriver(%q) failed: %v", tc.connStr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("DetectDriver(%q) = %q, want %q", tc.connStr, got, tc.want)
		}
	}
}

func TestNormalizeDSN(t *testing.T) {
	if got := NormalizeDSN("mysql", "mysql://user:pw@tcp(h:3306)/db"); got != "user:pw@tcp(h:3306)/db" {
		t.Errorf("mysql scheme not stripped: %q", got)
	}
	if got := NormalizeDSN("postgres", "postgres://h/db"); got != "postgres://h/db" {
		t.Errorf("postgres DSN must pass through: %q", got)
	}
}

func TestSnapshotLookups(t *testing.T) {
	snap := &Snapshot{
		Tables: []Table{{Name: "b"}, {Name: "a"}},
		Columns: []Column{
			{TableName: "a", Name: "second", Position: 2},
			{TableName: "a", Name: "first", Position: 1},
			{TableName: "b", Name: "other", Position: 1},
		},
		Indexes: []Index{
			{TableName: "a", Name: "z_idx", Columns: []string{"first"}},
			{TableName: "a", Name: "a_idx", Columns: []string{"second"}},
		},
	}

	if got := snap.TableNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("TableNames not sorted: %v", got)
	}

	cols := snap.TableColumns("a")
	if len(cols) != 2 || cols[0].Name != "first" {
		t.Errorf("TableColumns not ordered by position: %+v", cols)
	}

	idxs := snap.TableIndexes("a")
	if len(idxs) != 2 || idxs[0].Name != "a_idx" {
		t.Errorf("TableIndexes not sorted by name: %+v", idxs)
	}

	if snap.Column("a", "missing") != nil {
		t.Error("lookup of a missing column should be nil")
	}
	if snap.Table("c") != nil {
		t.Error("lookup of a missing table should be nil")
	}
}
