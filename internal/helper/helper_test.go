package helper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"backend-pameran/internal/apperror"
	"backend-pameran/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestValidateRegisterRequest(t *testing.T) {
	valid := models.RegisterRequest{ExhibitionID: 1, FullName: "Jane Doe", Email: "jane@x.com", Role: "visitor"}

	tests := []struct {
		name      string
		mutate    func(r *models.RegisterRequest)
		wantField string
	}{
		{"Valid visitor", func(r *models.RegisterRequest) {}, ""},
		{"Empty role allowed", func(r *models.RegisterRequest) { r.Role = "" }, ""},
		{"Valid staff", func(r *models.RegisterRequest) { r.Role = "staff"; r.UnitCode = "A1" }, ""},
		{"Zero exhibition", func(r *models.RegisterRequest) { r.ExhibitionID = 0 }, "exhibition_id"},
		{"Negative exhibition", func(r *models.RegisterRequest) { r.ExhibitionID = -3 }, "exhibition_id"},
		{"Missing name", func(r *models.RegisterRequest) { r.FullName = "" }, "full_name"},
		{"Missing email", func(r *models.RegisterRequest) { r.Email = "" }, "email"},
		{"Unknown role", func(r *models.RegisterRequest) { r.Role = "admin" }, "role"},
		{"Staff without unit", func(r *models.RegisterRequest) { r.Role = "staff" }, "unit_code"},
		{"Bad birthdate", func(r *models.RegisterRequest) { r.Birthdate = "12/31/1990" }, "birthdate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := Validate(req)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var appErr *apperror.Error
			if !errors.As(err, &appErr) || appErr.Code != apperror.CodeValidation {
				t.Fatalf("Validate() error = %v, want VALIDATION_ERROR", err)
			}
			if appErr.Details["field"] != tt.wantField {
				t.Errorf("field = %v, want %s", appErr.Details["field"], tt.wantField)
			}
		})
	}
}

func TestWithTx(t *testing.T) {
	t.Run("Commit on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
			_, err := tx.Exec("UPDATE things SET x = 1")
			return err
		})
		if err != nil {
			t.Fatalf("WithTx() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("Rollback keeps original error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		want := apperror.UnitNotFound("Z9")
		err = WithTx(context.Background(), db, func(tx *sql.Tx) error { return want })
		if !errors.Is(err, want) {
			t.Fatalf("WithTx() error = %v, want %v", err, want)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"Duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"Wrapped duplicate", fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062}), true},
		{"Other mysql error", &mysql.MySQLError{Number: 1452}, false},
		{"Plain error", errors.New("boom"), false},
		{"Nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.expected {
				t.Errorf("IsDuplicateKey(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestHasRole(t *testing.T) {
	if !HasRole("staff", "user", "staff") {
		t.Error("HasRole(staff) = false")
	}
	if HasRole("user", "staff") {
		t.Error("HasRole(user, staff) = true")
	}
	if !IsStaff("staff") || IsStaff("user") {
		t.Error("IsStaff mismatch")
	}
}
