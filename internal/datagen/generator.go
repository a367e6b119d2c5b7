package datagen

import (
	"fmt"
	"math"
	"strings"

	"github.com/pgEdge/pgedge-dvdrent/internal/logging"
)

// CopyConfig configures how generated rows are streamed into tables.
type CopyConfig struct {
	// BatchSize is the number of rows per COPY.
	BatchSize int

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64
}

// DefaultCopyConfig returns the default copy configuration.
func DefaultCopyConfig() CopyConfig {
	return CopyConfig{
		BatchSize:        5000,
		ProgressInterval: 100000,
	}
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	tableName        string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(tableName string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = 1
	}
	return &ProgressReporter{
		tableName:        tableName,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rowsInserted int64) {
	oldRow := p.currentRow
	p.currentRow += rowsInserted

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(max(p.totalRows, 1)) * 100
		logging.Info().
			Str("table", p.tableName).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Seeding table")
	}
}

// Rows returns the number of rows reported so far.
func (p *ProgressReporter) Rows() int64 {
	return p.currentRow
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("table", p.tableName).
		Int64("rows", p.currentRow).
		Msg("Table complete")
}

// SizeCalculator derives row counts from a target database size.
type SizeCalculator struct {
	tables []TableSizeInfo
}

// TableSizeInfo holds size information for a table.
type TableSizeInfo struct {
	Name        string
	BaseRowSize int64   // Average row size in bytes
	ScaleRatio  float64 // Ratio relative to base table
	IndexFactor float64 // Estimated index overhead (e.g., 1.3 = 30% overhead)
}

const defaultIndexFactor = 1.3

// NewSizeCalculator creates a new size calculator.
func NewSizeCalculator(tables []TableSizeInfo) *SizeCalculator {
	return &SizeCalculator{tables: tables}
}

func (t TableSizeInfo) indexFactor() float64 {
	if t.IndexFactor == 0 {
		return defaultIndexFactor
	}
	return t.IndexFactor
}

// CalculateRowCounts calculates row counts for each table given a target size.
// Counts round up, so the estimated size reaches the target. Every table gets
// at least one row.
func (c *SizeCalculator) CalculateRowCounts(targetSize int64) map[string]int64 {
	var sizePerUnit float64
	for _, t := range c.tables {
		sizePerUnit += float64(t.BaseRowSize) * t.ScaleRatio * t.indexFactor()
	}

	if sizePerUnit == 0 {
		return make(map[string]int64)
	}

	scaleFactor := float64(targetSize) / sizePerUnit

	rowCounts := make(map[string]int64, len(c.tables))
	for _, t := range c.tables {
		rowCounts[t.Name] = max(int64(math.Ceil(scaleFactor*t.ScaleRatio)), 1)
	}
	return rowCounts
}

// EstimatedSize returns the estimated size for given row counts.
func (c *SizeCalculator) EstimatedSize(rowCounts map[string]int64) int64 {
	var total int64
	for _, t := range c.tables {
		total += int64(float64(rowCounts[t.Name]) * float64(t.BaseRowSize) * t.indexFactor())
	}
	return total
}

const (
	KB = 1024
	MB = KB * 1024
	GB = MB * 1024
	TB = GB * 1024
)

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ParseSize parses a size such as "10MB", "1.5GB" or "512kb".
func ParseSize(s string) (int64, error) {
	var value float64
	var unit string

	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f%s", &value, &unit)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %s", s)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive: %s", s)
	}

	var multiplier int64
	switch strings.ToUpper(unit) {
	case "B":
		multiplier = 1
	case "KB", "K":
		multiplier = KB
	case "MB", "M":
		multiplier = MB
	case "GB", "G":
		multiplier = GB
	case "TB", "T":
		multiplier = TB
	default:
		return 0, fmt.Errorf("unknown size unit: %s", unit)
	}

	return int64(value * float64(multiplier)), nil
}
