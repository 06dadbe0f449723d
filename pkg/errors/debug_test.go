package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestDumpCollectsChain(t *testing.T) {
	err := fmt.Errorf("load cart: %w", Wrap(CodeDependency, fmt.Errorf("dial tcp: refused"), "list cart"))
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", d.Code)
	}
	if !d.Retryable {
		t.Fatal("dependency errors are retryable")
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	if _, ok := d.Fields()["sql_state"]; ok {
		t.Fatal("sql fields should be omitted for non-sql errors")
	}
}

func TestDumpPostgresError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "device_kv_pkey", TableName: "device_kv"}
	d := Dump(Wrap(CodeInternal, pgErr, "persist snapshot"))
	if d.SQLState != "23505" || d.SQLTable != "device_kv" {
		t.Fatalf("unexpected sql fields %+v", d)
	}
	if d.Fields()["sql_constraint"] != "device_kv_pkey" {
		t.Fatalf("expected constraint field, got %v", d.Fields())
	}
}

func TestDumpNil(t *testing.T) {
	if d := Dump(nil); d.TopMessage != "" || d.Chain != nil {
		t.Fatalf("expected empty dump, got %+v", d)
	}
}
