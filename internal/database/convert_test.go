package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestNumericRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("12345.678")

	n := ToNumeric(d, MoneyPlaces)
	if !n.Valid {
		t.Fatal("expected valid numeric")
	}
	if got := ToDecimal(n).StringFixed(2); got != "12345.68" {
		t.Errorf("money: got %s, want 12345.68", got)
	}

	q := ToNumeric(d, QuantityPlaces)
	if got := ToDecimal(q); !got.Equal(d) {
		t.Errorf("quantity: got %s, want %s", got, d)
	}
}

func TestToDecimal_InvalidIsZero(t *testing.T) {
	if !ToDecimal(pgtype.Numeric{}).IsZero() {
		t.Error("NULL numeric should be zero")
	}
	if !ToDecimal(pgtype.Numeric{NaN: true, Valid: true}).IsZero() {
		t.Error("NaN numeric should be zero")
	}
}

func TestTextAndUUID(t *testing.T) {
	if Text("").Valid {
		t.Error("empty string should be NULL")
	}
	if tx := Text("x"); !tx.Valid || tx.String != "x" {
		t.Errorf("Text(x): got %+v", tx)
	}
	if UUID(uuid.Nil).Valid {
		t.Error("nil uuid should be NULL")
	}
	id := uuid.New()
	if u := UUID(id); !u.Valid || uuid.UUID(u.Bytes) != id {
		t.Errorf("UUID: got %+v", u)
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   bool
	}{
		{"999999999.999", QuantityPlaces, true},
		{"999999999.9996", QuantityPlaces, false},
		{"1e9", QuantityPlaces, false},
		{"-999999999", QuantityPlaces, true},
		{"9999999999.99", MoneyPlaces, true},
		{"10000000000", MoneyPlaces, false},
		{"0.0004", QuantityPlaces, true},
	}
	for _, tt := range tests {
		if got := Fits(decimal.RequireFromString(tt.value), tt.places); got != tt.want {
			t.Errorf("Fits(%s, %d) = %v, want %v", tt.value, tt.places, got, tt.want)
		}
	}
}

func TestIsViolation(t *testing.T) {
	err := fmt.Errorf("adjust stock: %w", &pgconn.PgError{Code: CheckViolation, ConstraintName: "inventory_items_current_stock_check"})

	if !IsViolation(err, CheckViolation, "inventory_items_current_stock_check") {
		t.Error("wrapped check violation should match")
	}
	if !IsViolation(err, CheckViolation, "") {
		t.Error("empty constraint should match any constraint")
	}
	if IsViolation(err, UniqueViolation, "") {
		t.Error("different code should not match")
	}
	if IsViolation(errors.New("boom"), CheckViolation, "") {
		t.Error("plain errors never match")
	}
}
