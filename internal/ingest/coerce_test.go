package ingest

import "testing"

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"", 0, false},
		{"   ", 0, false},
		{"n/a", 0, false},
		{"N/A", 0, false},
		{"na", 0, false},
		{"-", 0, false},
		{"<0.5", 0, true},
		{"< 0.02", 0, true},
		{"0.034", 0.034, true},
		{"12", 12, true},
		{"1,200", 1200, true},
		{"µg/l 5.2", 5.2, true},
		{"157 mg/l", 157, true},
		{"no digits here", 0, false},
	}

	for _, tt := range tests {
		got, ok := Coerce(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Coerce(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	t.Parallel()

	if got := CoerceInt("52 samples"); got == nil || *got != 52 {
		t.Fatalf("CoerceInt(%q) = %v, want 52", "52 samples", got)
	}
	if got := CoerceInt("none"); got != nil {
		t.Fatalf("CoerceInt(%q) = %v, want nil", "none", got)
	}
	if got := CoerceInt(""); got != nil {
		t.Fatalf("CoerceInt(\"\") = %v, want nil", got)
	}
}

func TestHardnessLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []RawRecord
		want    string
	}{
		{
			name:    "soft at boundary",
			records: []RawRecord{{Parameter: "Total Hardness", Mean: "100"}},
			want:    HardnessSoft,
		},
		{
			name:    "moderately hard at boundary",
			records: []RawRecord{{Parameter: "Hardness as CaCO3", Mean: "200"}},
			want:    HardnessModerate,
		},
		{
			name:    "hard above boundary",
			records: []RawRecord{{Parameter: "hardness", Mean: "257.3"}},
			want:    HardnessHard,
		},
		{
			name: "unusable mean keeps scanning",
			records: []RawRecord{
				{Parameter: "Hardness", Mean: "n/a"},
				{Parameter: "Total hardness", Mean: "42"},
			},
			want: HardnessSoft,
		},
		{
			name:    "no hardness parameter",
			records: []RawRecord{{Parameter: "Lead", Mean: "0.2"}},
			want:    HardnessUnknown,
		},
		{
			name:    "empty records",
			records: nil,
			want:    HardnessUnknown,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := HardnessLabel(tt.records); got != tt.want {
				t.Fatalf("HardnessLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}
