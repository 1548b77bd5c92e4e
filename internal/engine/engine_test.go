package engine

import (
	"path/filepath"
	"strings"
	"testing"

	"minidb/pkg/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngineNewCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	e, err := New(Config{DataDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()
}

func TestEngineCreateTable(t *testing.T) {
	e := newTestEngine(t)

	if err := e.CreateTable("CREATE TABLE users (id INT NOT NULL, name VARCHAR(255) NOT NULL, age INT, is_active BOOL)"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	names := e.TableNames()
	if len(names) != 1 || names[0] != "users" {
		t.Errorf("TableNames() = %v, want [users]", names)
	}
}

func TestEngineCreateTableOverwritesInMemory(t *testing.T) {
	e := newTestEngine(t)

	if err := e.CreateTable("CREATE TABLE t (a INT)"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := e.CreateTable("CREATE TABLE t (a INT, b TEXT)"); err != nil {
		t.Fatalf("second CreateTable() error = %v", err)
	}

	rows, err := e.GetRows("t")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("GetRows() = %d rows, want 0 on a freshly redefined table", len(rows))
	}
}

func TestEngineDropTable(t *testing.T) {
	e := newTestEngine(t)
	e.CreateTable("CREATE TABLE t (a INT)")

	if err := e.DropTable("t"); err != nil {
		t.Fatalf("DropTable() error = %v", err)
	}
	if err := e.DropTable("t"); err == nil {
		t.Error("DropTable() on already-dropped table should error")
	}
}

func usersRow(id int64, name string, age types.Value, active types.Value) types.Row {
	return types.Row{Values: []types.Value{types.NewInt(id), types.NewVarChar(name), age, active}}
}

func newUsersEngine(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	if err := e.CreateTable("CREATE TABLE users (id INT NOT NULL, name VARCHAR(255) NOT NULL, age INT, is_active BOOL)"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	rows := []types.Row{
		usersRow(1, "Alice", types.NewInt(30), types.NullValue(types.Bool)),
		usersRow(2, "Bob", types.NullValue(types.Int64), types.NewBool(false)),
		usersRow(3, "Charlie", types.NewInt(35), types.NewBool(true)),
		usersRow(4, "Dana", types.NewInt(17), types.NewBool(true)),
	}
	for _, row := range rows {
		if err := e.InsertRow("users", row); err != nil {
			t.Fatalf("InsertRow(%v) error = %v", row, err)
		}
	}
	return e
}

func TestEngineInsertAndGetRows(t *testing.T) {
	e := newUsersEngine(t)

	rows, err := e.GetRows("users")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("GetRows() = %d rows, want 4", len(rows))
	}
	if rows[0].Values[1].StrVal != "Alice" {
		t.Errorf("rows[0].name = %q, want Alice", rows[0].Values[1].StrVal)
	}
}

func TestEngineInsertRowValidatesSchema(t *testing.T) {
	e := newTestEngine(t)
	e.CreateTable("CREATE TABLE t (a INT NOT NULL)")

	err := e.InsertRow("t", types.Row{Values: []types.Value{types.NullValue(types.Int64)}})
	if err == nil {
		t.Error("InsertRow() with a null for a NOT NULL column should error")
	}
}

func TestEngineInsertRowUnknownTable(t *testing.T) {
	e := newTestEngine(t)

	err := e.InsertRow("nope", types.Row{})
	if err == nil {
		t.Error("InsertRow() on an unknown table should error")
	}
}

func TestEngineExecuteQuerySelectStar(t *testing.T) {
	e := newUsersEngine(t)

	schema, rows, err := e.ExecuteQuery("SELECT * FROM users")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(schema.Columns) != 4 {
		t.Errorf("len(schema.Columns) = %d, want 4", len(schema.Columns))
	}
	if len(rows) != 4 {
		t.Errorf("len(rows) = %d, want 4", len(rows))
	}
}

func TestEngineExecuteQueryFilterOnNullComparison(t *testing.T) {
	e := newUsersEngine(t)

	_, rows, err := e.ExecuteQuery("SELECT name, age FROM users WHERE age > 25")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (Bob's NULL age drops the row)", len(rows))
	}
	if rows[0].Values[0].StrVal != "Alice" || rows[1].Values[0].StrVal != "Charlie" {
		t.Errorf("rows = %v, want Alice then Charlie", rows)
	}
}

func TestEngineExecuteQueryIsTrue(t *testing.T) {
	e := newUsersEngine(t)

	_, rows, err := e.ExecuteQuery("SELECT id FROM users WHERE is_active IS TRUE")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(rows) != 2 || rows[0].Values[0].IntVal != 3 || rows[1].Values[0].IntVal != 4 {
		t.Errorf("rows = %v, want ids [3 4]", rows)
	}
}

func TestEngineExecuteQueryIsNotNull(t *testing.T) {
	e := newUsersEngine(t)

	_, rows, err := e.ExecuteQuery("SELECT id FROM users WHERE is_active IS NOT NULL")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("len(rows) = %d, want 3", len(rows))
	}
}

func TestEngineExecuteQueryProjectionAlias(t *testing.T) {
	e := newUsersEngine(t)

	schema, rows, err := e.ExecuteQuery("SELECT id, (age + 5) AS age_plus_five FROM users WHERE age IS NOT NULL AND age + 5 > 30")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if schema.Columns[1].Name != "age_plus_five" {
		t.Errorf("alias = %q, want age_plus_five", schema.Columns[1].Name)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Values[0].IntVal != 1 || rows[0].Values[1].IntVal != 35 {
		t.Errorf("rows[0] = %v, want (1, 35)", rows[0])
	}
	if rows[1].Values[0].IntVal != 3 || rows[1].Values[1].IntVal != 40 {
		t.Errorf("rows[1] = %v, want (3, 40)", rows[1])
	}
}

func TestEngineExecuteQueryDivisionByZero(t *testing.T) {
	e := newUsersEngine(t)

	_, _, err := e.ExecuteQuery("SELECT * FROM users WHERE age / 0 = 0")
	if err == nil {
		t.Error("ExecuteQuery() with a division by zero should error")
	}
}

func TestEngineExecuteQueryTableNotFound(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.ExecuteQuery("SELECT * FROM nope")
	if err == nil {
		t.Error("ExecuteQuery() against an unknown table should error")
	}
}

func TestEngineExecuteQueryEmptyResultKeepsSchema(t *testing.T) {
	e := newUsersEngine(t)

	schema, rows, err := e.ExecuteQuery("SELECT id FROM users WHERE id = 999")
	if err != nil {
		t.Fatalf("ExecuteQuery() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("len(rows) = %d, want 0", len(rows))
	}
	if len(schema.Columns) != 1 || schema.Columns[0].Name != "id" {
		t.Errorf("schema = %v, want a single id column even with zero rows", schema.Columns)
	}
}

func TestEngineMultiPageScan(t *testing.T) {
	e := newTestEngine(t)
	if err := e.CreateTable("CREATE TABLE wide (id INT NOT NULL, payload VARCHAR(500) NOT NULL)"); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	filler := make([]byte, 400)
	for i := range filler {
		filler[i] = 'x'
	}
	const n = 40
	for i := 0; i < n; i++ {
		row := types.Row{Values: []types.Value{types.NewInt(int64(i)), types.NewVarChar(string(filler))}}
		if err := e.InsertRow("wide", row); err != nil {
			t.Fatalf("InsertRow(%d) error = %v", i, err)
		}
	}

	rows, err := e.GetRows("wide")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != n {
		t.Fatalf("GetRows() = %d rows, want %d", len(rows), n)
	}
}

func TestEngineErrorMessageCarriesInstanceID(t *testing.T) {
	e := newTestEngine(t)

	_, _, err := e.ExecuteQuery("SELECT * FROM nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), e.id.String()) {
		t.Errorf("error %q should carry instance id %s", err.Error(), e.id)
	}
}
