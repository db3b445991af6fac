package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Decimal places for stored amounts.
const (
	MoneyPlaces    = 2
	QuantityPlaces = 3
)

// numericPrecision is the total digits of every amount column, numeric(12,p).
const numericPrecision = 12

// Fits reports whether d, rounded to places, fits a numeric(12,places) column.
func Fits(d decimal.Decimal, places int32) bool {
	limit := decimal.New(1, numericPrecision-places)
	return d.Round(places).Abs().LessThan(limit)
}

// ToDecimal converts a NUMERIC column value. NULL, NaN and infinities become zero.
func ToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// ToNumeric converts d to a NUMERIC rounded to the given places.
func ToNumeric(d decimal.Decimal, places int32) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(places))
	return n
}

// Text returns a NULL text for the empty string.
func Text(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// UUID wraps a non-nil id; uuid.Nil becomes NULL.
func UUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
