package mtrl

import "testing"

func TestRowLookupBoundaries(t *testing.T) {
	for _, rows := range []int{LegacyRows, StandardRows} {
		lo := RowLookup(0, rows)
		if lo.Previous != 0 || lo.Stepped != 0 || lo.Weight != 0 {
			t.Errorf("rows %d: input 0 = %+v", rows, lo)
		}
		hi := RowLookup(1, rows)
		if hi.Next != rows-1 || hi.Stepped != rows-1 {
			t.Errorf("rows %d: input 1 = %+v", rows, hi)
		}
	}
}

func TestRowLookupCentres(t *testing.T) {
	for _, rows := range []int{LegacyRows, StandardRows} {
		scale := float32(rows - 1)
		for k := 0; k < rows; k++ {
			got := RowLookup(float32(k)/scale, rows)
			if got.Weight != 0 || got.Previous != k || got.Stepped != k {
				t.Errorf("rows %d centre %d = %+v", rows, k, got)
			}
		}
	}
}

func TestRowLookupBetweenRows(t *testing.T) {
	tests := []struct {
		name  string
		input float32
		prev  int
		next  int
	}{
		// 2.5 rows in: the even half interpolates.
		{"even pair", 2.5 / 15, 2, 3},
		// 3.25 rows in: the odd half snaps to the nearest row.
		{"odd pair snaps", 3.25 / 15, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RowLookup(tt.input, LegacyRows)
			if got.Previous != tt.prev || got.Next != tt.next {
				t.Errorf("RowLookup(%v) = %+v, want prev %d next %d", tt.input, got, tt.prev, tt.next)
			}
		})
	}
}

func TestBlendedPair(t *testing.T) {
	set := &ColorTableSet{Rows: make([]ColorTableRow, StandardRows)}
	for i := range set.Rows {
		set.Rows[i].Diffuse = [3]float32{float32(i), 0, 0}
	}
	tests := []struct {
		red, green uint8
		want       float32
	}{
		{0, 255, 0},
		{0, 0, 1},
		{17, 255, 2},
		{34, 0, 5},
		{255, 255, 30},
	}
	for _, tt := range tests {
		got := set.BlendedPair(tt.red, tt.green).Diffuse[0]
		if got != tt.want {
			t.Errorf("BlendedPair(%d, %d) = %v, want %v", tt.red, tt.green, got, tt.want)
		}
	}
}
