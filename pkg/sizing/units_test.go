package sizing

import "testing"

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "bare bytes", input: "512B", want: 512},
		{name: "decimal gigabytes", input: "30GB", want: 30 * GB},
		{name: "binary gibibytes", input: "2GiB", want: 2 * GiB},
		{name: "binary mebibytes", input: "512MiB", want: 512 * MiB},
		{name: "decimal terabytes", input: "2TB", want: 2 * TB},
		{name: "short suffix is binary", input: "4G", want: 4 * GiB},
		{name: "whitespace tolerated", input: " 100GB ", want: 100 * GB},
		{name: "no suffix means bytes", input: "1048576", want: 1048576},
		{name: "zero", input: "0GB", want: 0},
		{name: "fractional rejected", input: "1.5GB", wantErr: true},
		{name: "negative rejected", input: "-1GB", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
		{name: "garbage rejected", input: "lots", wantErr: true},
		{name: "overflow rejected", input: "99999999999TB", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseQuantity(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseQuantity(%q) returned error: %v", tt.input, err)
			}
			if got.Bytes() != tt.want {
				t.Errorf("ParseQuantity(%q) = %d, want %d", tt.input, got.Bytes(), tt.want)
			}
		})
	}
}

func TestParseQuantityDecimalBinaryDiffer(t *testing.T) {
	decimal, err := ParseQuantity("1GB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	binary, err := ParseQuantity("1GiB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decimal.Bytes() != 1_000_000_000 {
		t.Errorf("1GB = %d, want 1000000000", decimal.Bytes())
	}
	if binary.Bytes() != 1_073_741_824 {
		t.Errorf("1GiB = %d, want 1073741824", binary.Bytes())
	}
	if decimal >= binary {
		t.Error("1GB should be smaller than 1GiB")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size uint64
		want string
	}{
		{512, "512B"},
		{2 * KiB, "2.0KiB"},
		{512 * MiB, "512.0MiB"},
		{GiB + GiB/2, "1.5GiB"},
		{2 * TiB, "2.0TiB"},
	}

	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFormatPosition(t *testing.T) {
	if got := FormatPosition(50*GB, 100*GB); got != "50% (46.6GiB)" {
		t.Errorf("FormatPosition = %q", got)
	}
	if got := FormatPosition(512, 0); got != "512B" {
		t.Errorf("FormatPosition with zero total = %q", got)
	}
}

func TestAlignment(t *testing.T) {
	if !IsAligned(2*MiB, Alignment) {
		t.Error("2MiB should be aligned")
	}
	if IsAligned(MiB+1, Alignment) {
		t.Error("MiB+1 should not be aligned")
	}

	if got := AlignUp(MiB+1, Alignment); got != 2*MiB {
		t.Errorf("AlignUp(MiB+1) = %d, want %d", got, 2*MiB)
	}
	if got := AlignUp(2*MiB, Alignment); got != 2*MiB {
		t.Errorf("AlignUp of aligned value changed it: %d", got)
	}
	if got := AlignDown(2*MiB-1, Alignment); got != MiB {
		t.Errorf("AlignDown(2MiB-1) = %d, want %d", got, MiB)
	}
	if got := AlignDown(2*MiB, Alignment); got != 2*MiB {
		t.Errorf("AlignDown of aligned value changed it: %d", got)
	}
}
