package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/driftline/driftline/database"
)

func TestSnapshotCollectsAllEntities(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	defer db.Close()
	intro := NewIntrospector()

	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ENGINE", "TABLE_ROWS"}).
			AddRow("users", "InnoDB", int64(150)))

	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{
			"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "CHARACTER_MAXIMUM_LENGTH",
			"IS_NULLABLE", "COLUMN_DEFAULT", "ORDINAL_POSITION",
		}).
			AddRow("id", "int", "int", nil, "NO", nil, 1).
			AddRow("email", "varchar", "varchar(255)", int64(255), "YES", "none", 2))

	mock.ExpectQuery("FROM information_schema.STATISTICS").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE"}).
			AddRow("idx_users_email", "email", 1).
			AddRow("idx_users_pair", "id", 0).
			AddRow("idx_users_pair", "email", 0))

	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{
			"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "DELETE_RULE",
		}).AddRow("fk_users_org", "org_id", "orgs", "id", "CASCADE"))

	snap, err := intro.Snapshot(context.Background(), db)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if len(snap.Tables) != 1 || snap.Tables[0].RowCountEstimate != 150 {
		t.Errorf("unexpected tables: %+v", snap.Tables)
	}

	email := snap.Column("users", "email")
	if email == nil {
		t.Fatal("email column missing")
	}
	if !email.IsNullable || email.MaxLength == nil || *email.MaxLength != 255 {
		t.Errorf("email column attributes wrong: %+v", email)
	}
	if email.DefaultValue == nil || *email.DefaultValue != "none" {
		t.Errorf("email default wrong: %+v", email.DefaultValue)
	}

	pair := snap.Index("users", "idx_users_pair")
	if pair == nil {
		t.Fatal("multi-column index missing")
	}
	if !pair.Unique || len(pair.Columns) != 2 || pair.Columns[0] != "id" {
		t.Errorf("multi-column index grouped wrong: %+v", pair)
	}

	fk := snap.ForeignKey("users", "fk_users_org")
	if fk == nil {
		t.Fatal("foreign key missing")
	}
	if fk.OnDelete != "CASCADE" || fk.ReferencedTable != "orgs" {
		t.Errorf("foreign key attributes wrong: %+v", fk)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSnapshotOmitsUnreadableTableWithWarning(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	defer db.Close()
	intro := NewIntrospector()

	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ENGINE", "TABLE_ROWS"}).
			AddRow("broken", "InnoDB", int64(0)).
			AddRow("users", "InnoDB", int64(10)))

	// Metadata for "broken" fails; the table is skipped, not fatal.
	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("broken").
		WillReturnError(errors.New("SELECT command denied"))

	mock.ExpectQuery("FROM information_schema.COLUMNS").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{
			"COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE", "CHARACTER_MAXIMUM_LENGTH",
			"IS_NULLABLE", "COLUMN_DEFAULT", "ORDINAL_POSITION",
		}).AddRow("id", "int", "int", nil, "NO", nil, 1))
	mock.ExpectQuery("FROM information_schema.STATISTICS").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"INDEX_NAME", "COLUMN_NAME", "NON_UNIQUE"}))
	mock.ExpectQuery("FROM information_schema.KEY_COLUMN_USAGE").
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{
			"CONSTRAINT_NAME", "COLUMN_NAME", "REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME", "DELETE_RULE",
		}))

	snap, err := intro.Snapshot(context.Background(), db)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Tables) != 1 || snap.Tables[0].Name != "users" {
		t.Errorf("expected only users to survive, got %+v", snap.Tables)
	}
	if len(snap.Warnings) != 1 {
		t.Errorf("expected one warning for the omitted table, got %v", snap.Warnings)
	}
}

func TestSnapshotFailsWhenCatalogUnreachable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	defer db.Close()
	intro := NewIntrospector()

	mock.ExpectQuery("FROM information_schema.TABLES").
		WillReturnError(errors.New("connection refused"))

	_, err = intro.Snapshot(context.Background(), db)
	if !database.IsSchemaUnavailable(err) {
		t.Errorf("expected SchemaUnavailableError, got %v", err)
	}
}

func TestTableDetailMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	defer db.Close()
	intro := NewIntrospector()

	mock.ExpectQuery("FROM information_schema.TABLES").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ENGINE", "TABLE_ROWS"}))

	detail, err := intro.TableDetail(context.Background(), db, "ghost")
	if err != nil {
		t.Fatalf("TableDetail failed: %v", err)
	}
	if detail != nil {
		t.Errorf("expected nil detail for a missing table, got %+v", detail)
	}
}

func TestTableRowCountFallsBackToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("opening stub connection: %v", err)
	}
	defer db.Close()
	intro := NewIntrospector()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `users`").
		WillReturnError(errors.New("lock wait timeout"))

	if count := intro.TableRowCount(context.Background(), db, "users"); count != 0 {
		t.Errorf("expected 0 on failure, got %d", count)
	}
}
