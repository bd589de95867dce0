package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMigrationsFor(t *testing.T) {
	pg, err := migrationsFor(DriverPostgres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lite, err := migrationsFor(DriverSQLite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, stmt := range append(pg, lite...) {
		if strings.Contains(stmt, "{{") {
			t.Errorf("placeholder left in statement: %s", stmt)
		}
	}
	if !strings.Contains(pg[0], "BIGSERIAL PRIMARY KEY") {
		t.Error("postgres schema must use BIGSERIAL ids")
	}
	if !strings.Contains(lite[0], "INTEGER PRIMARY KEY AUTOINCREMENT") {
		t.Error("sqlite schema must use AUTOINCREMENT ids")
	}

	if _, err := migrationsFor("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`PRAGMA foreign_keys = ON`).WillReturnResult(sqlmock.NewResult(0, 0))
	for range migrations {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Migrate(context.Background(), db, DriverSQLite); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS bot_configs`).WillReturnError(errors.New("permission denied"))

	if err := Migrate(context.Background(), db, DriverPostgres); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New(`pq: duplicate key value violates unique constraint "x"`), true},
		{errors.New("ERROR 23505"), true},
		{errors.New("UNIQUE constraint failed: trades.order_id"), true},
		{errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
