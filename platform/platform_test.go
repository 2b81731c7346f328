package platform

import (
	"errors"
	"testing"
)

func TestVKCode(t *testing.T) {
	tests := []struct {
		key  string
		want int
	}{
		{"", 0},
		{"g", 0x47},
		{"m", 0x4D},
		{"f12", 0x7B},
		{"`", 0xC0},
	}
	for _, tt := range tests {
		got, err := VKCode(tt.key)
		if err != nil {
			t.Errorf("VKCode(%q) error: %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("VKCode(%q) = %#x, want %#x", tt.key, got, tt.want)
		}
	}
}

func TestVKCodeUnknown(t *testing.T) {
	_, err := VKCode("hyper")
	var unknown *UnknownKeyError
	if !errors.As(err, &unknown) || unknown.Key != "hyper" {
		t.Errorf("VKCode error = %v", err)
	}
}
