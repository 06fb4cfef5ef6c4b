package relational

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/phenrril/comprarapida/internal/adapters/repo/repotest"
	"github.com/phenrril/comprarapida/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", "file:"+filepath.Join(t.TempDir(), "test.db"), gormlogger.Discard)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestBackend_SQLite(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repotest.Backend {
		db := openTestDB(t)
		return repotest.Backend{
			Customers: NewCustomerRepo(db),
			Purchases: NewPurchaseRepo(db),
			Stats:     NewStatsRepo(db),
		}
	})
}

func TestConstraints_BackstopPreChecks(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	ana := customerRow{ID: "c1", Name: "Ana", TaxID: "12345678900", Phone: "11987654321", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&ana).Error; err != nil {
		t.Fatal(err)
	}

	dup := customerRow{ID: "c2", Name: "Outra", TaxID: "12345678900", Phone: "1133334444", CreatedAt: now, UpdatedAt: now}
	if err := translate("insert", db.Create(&dup).Error, nil); !errors.Is(err, domain.ErrDuplicateTaxID) {
		t.Errorf("unique index: expected ErrDuplicateTaxID, got %v", err)
	}

	orphan := purchaseRow{ID: "p0", Date: now, Amount: decimal.NewFromInt(10), PaymentMethod: "pix", CustomerID: "missing", CreatedAt: now, UpdatedAt: now}
	err := translate("insert", db.Omit(clause.Associations).Create(&orphan).Error, domain.ErrCustomerNotFound)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("foreign key: expected ErrCustomerNotFound, got %v", err)
	}

	free := purchaseRow{ID: "p1", Date: now, Amount: decimal.Zero, PaymentMethod: "pix", CustomerID: "c1", CreatedAt: now, UpdatedAt: now}
	if err := translate("insert", db.Omit(clause.Associations).Create(&free).Error, nil); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("check constraint: expected ErrInvalidAmount, got %v", err)
	}

	paid := purchaseRow{ID: "p2", Date: now, Amount: decimal.NewFromInt(10), PaymentMethod: "pix", CustomerID: "c1", CreatedAt: now, UpdatedAt: now}
	if err := db.Omit(clause.Associations).Create(&paid).Error; err != nil {
		t.Fatal(err)
	}
	err = translate("delete", db.Delete(&customerRow{}, "id = ?", "c1").Error, domain.ErrCustomerHasPurchases)
	if !errors.Is(err, domain.ErrCustomerHasPurchases) {
		t.Errorf("restrict: expected ErrCustomerHasPurchases, got %v", err)
	}
	var n int64
	if err := db.Model(&customerRow{}).Where("id = ?", "c1").Count(&n).Error; err != nil || n != 1 {
		t.Errorf("restricted customer must survive, count=%d err=%v", n, err)
	}
}

func TestOpen_SQLiteLowerFoldsUnicode(t *testing.T) {
	db := openTestDB(t)
	var got string
	if err := db.Raw("SELECT LOWER(?)", "JOÃO Érico").Row().Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != "joão érico" {
		t.Errorf("LOWER = %q, want %q", got, "joão érico")
	}
}

func TestViolationOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want violation
	}{
		{"gorm duplicate", gorm.ErrDuplicatedKey, uniqueViolation},
		{"gorm foreign key", fmt.Errorf("insert: %w", gorm.ErrForeignKeyViolated), foreignKeyViolation},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, uniqueViolation},
		{"postgres foreign key", &pgconn.PgError{Code: "23503"}, foreignKeyViolation},
		{"postgres check", &pgconn.PgError{Code: "23514"}, checkViolation},
		{"postgres other", &pgconn.PgError{Code: "42P01"}, noViolation},
		{"mysql unique", &mysqldrv.MySQLError{Number: 1062}, uniqueViolation},
		{"mysql parent row", &mysqldrv.MySQLError{Number: 1451}, foreignKeyViolation},
		{"mysql child row", &mysqldrv.MySQLError{Number: 1452}, foreignKeyViolation},
		{"mysql check", &mysqldrv.MySQLError{Number: 3819}, checkViolation},
		{"sqlite unique", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}, uniqueViolation},
		{"sqlite foreign key", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey}, foreignKeyViolation},
		{"sqlite restrict", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintTrigger}, foreignKeyViolation},
		{"sqlite check", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintCheck}, checkViolation},
		{"plain", errors.New("connection refused"), noViolation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := violationOf(tc.err); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	cause := errors.New("connection refused")
	err := translate("list customers", cause, nil)
	if !errors.Is(err, domain.ErrBackendUnavailable) || !errors.Is(err, cause) {
		t.Errorf("expected unavailable wrapping cause, got %v", err)
	}
	if err := translate("op", domain.ErrCustomerHasPurchases, nil); err != domain.ErrCustomerHasPurchases {
		t.Errorf("classified errors must pass through, got %v", err)
	}
	if err := translate("op", nil, nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := translate("op", gorm.ErrForeignKeyViolated, nil); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("unexpected foreign key violation should be unavailable, got %v", err)
	}
}

func TestWithParam(t *testing.T) {
	cases := []struct{ dsn, want string }{
		{"file:test.db", "file:test.db?_foreign_keys=on"},
		{"file:test.db?cache=shared", "file:test.db?cache=shared&_foreign_keys=on"},
		{"file:test.db?_foreign_keys=off", "file:test.db?_foreign_keys=off"},
	}
	for _, tc := range cases {
		if got := withParam(tc.dsn, "_foreign_keys", "on"); got != tc.want {
			t.Errorf("withParam(%q) = %q, want %q", tc.dsn, got, tc.want)
		}
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x", nil); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
