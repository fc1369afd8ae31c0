package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    interface{}
		expected interface{}
	}{
		{name: "bytes", input: []byte("Premium"), expected: "Premium"},
		{name: "time", input: ts, expected: "2024-03-15T10:30:00Z"},
		{name: "time pointer", input: &ts, expected: "2024-03-15T10:30:00Z"},
		{name: "nil time pointer", input: (*time.Time)(nil), expected: nil},
		{name: "int64 untouched", input: int64(42), expected: int64(42)},
		{name: "float untouched", input: 1250.75, expected: 1250.75},
		{name: "nil", input: nil, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeValue(tt.input))
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{name: "nil", input: nil, expected: "NULL"},
		{name: "string", input: "completed", expected: "completed"},
		{name: "bool", input: true, expected: "true"},
		{name: "int64", input: int64(-7), expected: "-7"},
		{name: "int", input: 100, expected: "100"},
		{name: "int32", input: int32(200), expected: "200"},
		{name: "uint8 falls back", input: uint8(255), expected: "255"},
		{name: "uint64", input: uint64(1000), expected: "1000"},
		{name: "float64", input: 1250.5, expected: "1250.5"},
		{name: "float32", input: float32(2.5), expected: "2.5"},
		{name: "bytes", input: []byte("x"), expected: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.input))
		})
	}
}
