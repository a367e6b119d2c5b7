// Package fingerprint computes xxh3 fingerprints of compiled SQL and of
// relation contents.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"

	"github.com/zeebo/xxh3"
)

// Cell is one value in a row. Null cells are distinct from empty strings.
type Cell struct {
	Value string
	Null  bool
}

// Str returns a non-null cell.
func Str(v string) Cell { return Cell{Value: v} }

// Null returns a null cell.
func Null() Cell { return Cell{Null: true} }

// SQL fingerprints a SQL string. Runs of whitespace are collapsed first so
// formatting changes do not alter the fingerprint.
func SQL(sql string) string {
	return format(xxh3.HashString(strings.Join(strings.Fields(sql), " ")))
}

// Row hashes one row.
func Row(row []Cell) uint64 {
	buf := make([]byte, 0, 64)
	for _, c := range row {
		if c.Null {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		buf = binary.AppendUvarint(buf, uint64(len(c.Value)))
		buf = append(buf, c.Value...)
	}
	return xxh3.Hash(buf)
}

// Ordered fingerprints rows where row order matters.
func Ordered(rows [][]Cell) string {
	hashes := make([]uint64, len(rows))
	for i, r := range rows {
		hashes[i] = Row(r)
	}
	return combine(hashes)
}

// Unordered fingerprints rows as a multiset.
func Unordered(rows [][]Cell) string {
	hashes := make([]uint64, len(rows))
	for i, r := range rows {
		hashes[i] = Row(r)
	}
	slices.Sort(hashes)
	return combine(hashes)
}

func combine(hashes []uint64) string {
	buf := make([]byte, 0, 8*(len(hashes)+1))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(hashes)))
	for _, h := range hashes {
		buf = binary.LittleEndian.AppendUint64(buf, h)
	}
	return format(xxh3.Hash(buf))
}

func format(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
