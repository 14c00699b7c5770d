package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestEnsureSchemaCreatesOnlyMissingTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer conn.Close()

	for _, tbl := range schema {
		q := mock.ExpectQuery("information_schema\\.tables").WithArgs(tbl.table)
		if tbl.table == "users" {
			q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("users"))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + tbl.table).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := EnsureSchema(context.Background(), conn); err != nil {
		t.Fatalf("EnsureSchema error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWhereBuilder(t *testing.T) {
	var w Where
	if w.SQL() != "1=1" {
		t.Fatalf("empty where should be 1=1, got %q", w.SQL())
	}
	w.Add("status=?", "SCHEDULED")
	w.Add("price BETWEEN ? AND ?", 1, 2)
	if got := w.SQL(); got != "status=? AND price BETWEEN ? AND ?" {
		t.Fatalf("unexpected sql %q", got)
	}
	if len(w.Args()) != 3 {
		t.Fatalf("expected 3 args, got %d", len(w.Args()))
	}
	if Placeholders(3) != "?,?,?" {
		t.Fatalf("unexpected placeholders %q", Placeholders(3))
	}
}
