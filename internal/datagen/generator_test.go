package datagen

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100B", 100, false},
		{"1KB", 1024, false},
		{"10MB", 10 * MB, false},
		{"1.5GB", GB + GB/2, false},
		{"2tb", 2 * TB, false},
		{"512k", 512 * KB, false},
		{"10", 0, true},
		{"MB", 0, true},
		{"10XB", 0, true},
		{"-1MB", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2 * KB, "2.00 KB"},
		{3 * MB / 2, "1.50 MB"},
		{GB, "1.00 GB"},
		{TB, "1.00 TB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCalculateRowCounts(t *testing.T) {
	calc := NewSizeCalculator([]TableSizeInfo{
		{Name: "base", BaseRowSize: 100, ScaleRatio: 1, IndexFactor: 1},
		{Name: "half", BaseRowSize: 100, ScaleRatio: 0.5, IndexFactor: 1},
		{Name: "tiny", BaseRowSize: 100, ScaleRatio: 0.0000001, IndexFactor: 1},
	})
	counts := calc.CalculateRowCounts(150 * 1000)
	if counts["base"] != 1000 {
		t.Errorf("Expected 1000 base rows, got %d", counts["base"])
	}
	if counts["half"] != 500 {
		t.Errorf("Expected 500 half rows, got %d", counts["half"])
	}
	if counts["tiny"] != 1 {
		t.Errorf("Expected at least one row, got %d", counts["tiny"])
	}
	if est := calc.EstimatedSize(counts); est < 150*1000 {
		t.Errorf("Estimated size %d below target", est)
	}
}

func TestCalculateRowCountsReachesTarget(t *testing.T) {
	calc := NewSizeCalculator([]TableSizeInfo{
		{Name: "rental", BaseRowSize: 60, ScaleRatio: 1, IndexFactor: 1},
		{Name: "payment", BaseRowSize: 50, ScaleRatio: 0.9, IndexFactor: 1},
		{Name: "film", BaseRowSize: 120, ScaleRatio: 0.07, IndexFactor: 1},
	})
	for _, target := range []int64{KB, 7 * KB, MB, 3*MB + 17, 100 * MB} {
		if est := calc.EstimatedSize(calc.CalculateRowCounts(target)); est < target {
			t.Errorf("Estimated size %d below target %d", est, target)
		}
	}
}

func TestCalculateRowCountsEmpty(t *testing.T) {
	if got := NewSizeCalculator(nil).CalculateRowCounts(MB); len(got) != 0 {
		t.Errorf("Expected no counts, got %v", got)
	}
}
