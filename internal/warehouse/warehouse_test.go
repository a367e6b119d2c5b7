package warehouse

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      pgtype.Text
		want    string
		null    bool
		wantErr bool
	}{
		{in: pgtype.Text{String: "4.99", Valid: true}, want: "4.99"},
		{in: pgtype.Text{String: "0", Valid: true}, want: "0"},
		{in: pgtype.Text{String: "-1.50", Valid: true}, want: "-1.5"},
		{in: pgtype.Text{}, null: true},
		{in: pgtype.Text{String: "abc", Valid: true}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAmount(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if got.Valid == tt.null {
			t.Errorf("ParseAmount(%v) validity = %v", tt.in, got.Valid)
		}
		if !tt.null && !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%v) = %s, want %s", tt.in, got.Decimal, tt.want)
		}
	}
}
