package mysql

import (
	"strings"
	"testing"

	"github.com/driftline/driftline/database"
)

func strPtr(s string) *string { return &s }

func TestCreateTableCarriesEngine(t *testing.T) {
	gen := NewGenerator()

	sql, _ := gen.CreateTable(database.Table{Name: "members", Engine: "MyISAM"}, []database.Column{
		{TableName: "members", Name: "id", DataType: "int", ColumnType: "int", IsNullable: false},
	})
	if !strings.Contains(sql, "ENGINE=MyISAM") {
		t.Errorf("engine not carried through: %s", sql)
	}

	sql, _ = gen.CreateTable(database.Table{Name: "members"}, nil)
	if !strings.Contains(sql, "ENGINE=InnoDB") {
		t.Errorf("expected InnoDB default: %s", sql)
	}
}

func TestAddColumnDefinition(t *testing.T) {
	gen := NewGenerator()

	sql, _ := gen.AddColumn(database.Column{
		TableName: "users", Name: "status",
		DataType: "varchar", ColumnType: "varchar(20)",
		IsNullable: false, DefaultValue: strPtr("active"),
	})
	want := "ALTER TABLE `users` ADD COLUMN `status` varchar(20) NOT NULL DEFAULT 'active'"
	if sql != want {
		t.Errorf("unexpected statement:\n got %s\nwant %s", sql, want)
	}
}

func TestModifyColumnReplacesDefinition(t *testing.T) {
	gen := NewGenerator()

	from := database.Column{TableName: "users", Name: "email", DataType: "varchar", ColumnType: "varchar(255)", IsNullable: true}
	to := database.Column{TableName: "users", Name: "email", DataType: "varchar", ColumnType: "varchar(100)", IsNullable: false}

	sql, desc := gen.ModifyColumn(from, to)
	if sql != "ALTER TABLE `users` MODIFY COLUMN `email` varchar(100) NOT NULL" {
		t.Errorf("unexpected statement: %s", sql)
	}
	if !strings.Contains(desc, "varchar(255)") || !strings.Contains(desc, "varchar(100)") {
		t.Errorf("description should show both definitions: %s", desc)
	}
}

func TestAddForeignKeyWithOnDelete(t *testing.T) {
	gen := NewGenerator()

	sql, _ := gen.AddForeignKey(database.ForeignKey{
		Name: "fk_posts_user", TableName: "posts", Column: "user_id",
		ReferencedTable: "users", ReferencedColumn: "id", OnDelete: "CASCADE",
	})
	want := "ALTER TABLE `posts` ADD CONSTRAINT `fk_posts_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`) ON DELETE CASCADE"
	if sql != want {
		t.Errorf("unexpected statement:\n got %s\nwant %s", sql, want)
	}
}

func TestFormatDefault(t *testing.T) {
	cases := []struct {
		col  database.Column
		want string
	}{
		{database.Column{DataType: "int", DefaultValue: strPtr("0")}, "0"},
		{database.Column{DataType: "varchar", DefaultValue: strPtr("pending")}, "'pending'"},
		{database.Column{DataType: "varchar", DefaultValue: strPtr("it's")}, "'it''s'"},
		{database.Column{DataType: "timestamp", DefaultValue: strPtr("CURRENT_TIMESTAMP")}, "CURRENT_TIMESTAMP"},
		{database.Column{DataType: "timestamp", DefaultValue: strPtr("NULL")}, "NULL"},
	}
	for _, tc := range cases {
		if got := formatDefault(tc.col); got != tc.want {
			t.Errorf("formatDefault(%q) = %q, want %q", *tc.col.DefaultValue, got, tc.want)
		}
	}
}

func TestQuoteIdentifierEscapesBackticks(t *testing.T) {
	if got := quoteIdentifier("we`ird"); got != "`we``ird`" {
		t.Errorf("unexpected quoting: %s", got)
	}
}
