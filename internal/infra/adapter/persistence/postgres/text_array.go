package postgres

import (
	"database/sql/driver"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// textArray maps a Go string slice to a PostgreSQL TEXT[] column through the
// pgtype codecs. NULL scans as an empty slice.
type textArray []string

func (a textArray) Value() (driver.Value, error) {
	values := []string(a)
	if values == nil {
		values = []string{}
	}
	buf, err := pgtype.NewMap().Encode(pgtype.TextArrayOID, pgtype.TextFormatCode, values, nil)
	if err != nil {
		return nil, fmt.Errorf("encode text[]: %w", err)
	}
	return string(buf), nil
}

func (a *textArray) Scan(src any) error {
	var values []string
	if src != nil {
		if err := pgtype.NewMap().SQLScanner(&values).Scan(src); err != nil {
			return fmt.Errorf("scan text[]: %w", err)
		}
	}
	if values == nil {
		values = []string{}
	}
	*a = values
	return nil
}
