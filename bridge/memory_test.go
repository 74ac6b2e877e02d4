package bridge

import (
	"errors"
	"testing"
)

func TestSelectMemoryType(t *testing.T) {
	local := MemoryType{Properties: MemoryDeviceLocal}
	host := MemoryType{Properties: MemoryHostVisible | MemoryHostCoherent}
	both := MemoryType{Properties: MemoryDeviceLocal | MemoryHostVisible}

	tests := []struct {
		name     string
		types    []MemoryType
		bits     uint32
		want     uint32
		wantFail bool
	}{
		{"first local", []MemoryType{local, local}, 0b11, 0, false},
		{"skips host visible", []MemoryType{host, local}, 0b11, 1, false},
		{"respects mask", []MemoryType{local, host, local}, 0b110, 2, false},
		{"local and host visible counts", []MemoryType{host, both}, 0b11, 1, false},
		{"no host fallback", []MemoryType{host, host}, 0b11, 0, true},
		{"mask excludes local", []MemoryType{local, host}, 0b10, 0, true},
		{"empty mask", []MemoryType{local}, 0, 0, true},
		{"no types", nil, 0xffffffff, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMemoryType(tt.types, tt.bits)
			if tt.wantFail {
				var allocErr *AllocationError
				if !errors.As(err, &allocErr) {
					t.Fatalf("err = %v, want *AllocationError", err)
				}
				if !errors.Is(err, ErrNoDeviceLocalMemory) {
					t.Errorf("err = %v, want ErrNoDeviceLocalMemory", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectMemoryType = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectMemoryTypeIgnoresTypesPastBit31(t *testing.T) {
	types := make([]MemoryType, 40)
	types[35] = MemoryType{Properties: MemoryDeviceLocal}
	if _, err := SelectMemoryType(types, 0xffffffff); err == nil {
		t.Error("expected failure when only type 35 is device local")
	}
}
