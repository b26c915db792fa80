package containerfs

import (
	"bytes"
	"testing"
)

func TestCompress_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"small", []byte("hello")},
		{"repetitive", bytes.Repeat([]byte("accounting data "), 10000)},
		{"binary", []byte{0x00, 0xff, 0x10, 0x20, 0x00, 0x00, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var compressed bytes.Buffer
			if err := Compress(&compressed, bytes.NewReader(tt.data)); err != nil {
				t.Fatalf("Compress failed: %v", err)
			}

			var decompressed bytes.Buffer
			if err := Decompress(&decompressed, bytes.NewReader(compressed.Bytes())); err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}

			if !bytes.Equal(decompressed.Bytes(), tt.data) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestCompress_Shrinks(t *testing.T) {
	data := bytes.Repeat([]byte("the same line over and over\n"), 1000)

	var compressed bytes.Buffer
	if err := Compress(&compressed, bytes.NewReader(data)); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	if compressed.Len() >= len(data) {
		t.Errorf("repetitive input did not shrink: %d -> %d", len(data), compressed.Len())
	}
}

func TestDecompress_Garbage(t *testing.T) {
	var out bytes.Buffer
	if err := Decompress(&out, bytes.NewReader([]byte("this is not a gzip stream"))); err == nil {
		t.Error("Decompress of garbage should fail")
	}
}
