package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Id:   "doc-1",
				Text: "Hello world",
			},
			wantErr: nil,
		},
		{
			name: "valid document with empty vector",
			doc: &Document{
				Id:     "doc-1",
				Text:   "Hello world",
				Vector: nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty id",
			doc: &Document{
				Id:   "",
				Text: "Hello world",
			},
			wantErr: ErrEmptyID,
		},
		{
			name: "empty text",
			doc: &Document{
				Id:   "doc-1",
				Text: "",
			},
			wantErr: ErrEmptyText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateVector(t *testing.T) {
	tests := []struct {
		name    string
		vector  []float32
		wantErr error
	}{
		{
			name:    "valid vector",
			vector:  []float32{0.1, 0.2, 0.3},
			wantErr: nil,
		},
		{
			name:    "zero vector is structurally valid",
			vector:  []float32{0, 0, 0},
			wantErr: nil,
		},
		{
			name:    "empty vector",
			vector:  []float32{},
			wantErr: ErrDegenerateVector,
		},
		{
			name:    "nil vector",
			vector:  nil,
			wantErr: ErrDegenerateVector,
		},
		{
			name:    "NaN component",
			vector:  []float32{0.1, float32(math.NaN()), 0.3},
			wantErr: ErrDegenerateVector,
		},
		{
			name:    "positive infinity component",
			vector:  []float32{0.1, float32(math.Inf(1))},
			wantErr: ErrDegenerateVector,
		},
		{
			name:    "negative infinity component",
			vector:  []float32{float32(math.Inf(-1)), 0.1},
			wantErr: ErrDegenerateVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVector(tt.vector)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateVector() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateVector() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsZeroNorm(t *testing.T) {
	if !IsZeroNorm([]float32{0, 0, 0}) {
		t.Error("IsZeroNorm() = false for zero vector")
	}
	if !IsZeroNorm(nil) {
		t.Error("IsZeroNorm() = false for nil vector")
	}
	if IsZeroNorm([]float32{0, 0.001, 0}) {
		t.Error("IsZeroNorm() = true for non-zero vector")
	}
}
