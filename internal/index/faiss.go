package index

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// FAISS flat index fourcc codes.
const (
	fourccFlatIP = "IxFI"
	fourccFlatL2 = "IxF2"
	fourccFlat   = "IxFl"
)

// FAISS metric types.
const (
	metricInnerProduct int32 = 0
	metricL2           int32 = 1
)

// faissHeaderDummy is the value FAISS writes into the first reserved header field.
const faissHeaderDummy int64 = 1 << 20

// ReadFlat reads the stored vectors of a FAISS IndexFlat (IP or L2) file.
// Only flat indexes are supported: they are the only kind whose vectors can be
// recovered exactly.
func ReadFlat(path string) (*Vectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	v, err := decodeFlat(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func decodeFlat(data []byte) (*Vectors, error) {
	r := bytes.NewReader(data)

	var fourcc [4]byte
	if _, err := io.ReadFull(r, fourcc[:]); err != nil {
		return nil, corrupt("fourcc", err)
	}
	switch string(fourcc[:]) {
	case fourccFlatIP, fourccFlatL2, fourccFlat:
	default:
		return nil, fmt.Errorf("%w: unsupported index type %q", domain.ErrCorruptIndex, fourcc[:])
	}

	var hdr struct {
		Dim       int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("header", err)
	}
	if hdr.Dim <= 0 || hdr.NTotal < 0 {
		return nil, fmt.Errorf("%w: bad header d=%d ntotal=%d", domain.ErrCorruptIndex, hdr.Dim, hdr.NTotal)
	}
	if hdr.Metric > metricL2 {
		var arg float32
		if err := binary.Read(r, binary.LittleEndian, &arg); err != nil {
			return nil, corrupt("metric arg", err)
		}
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, corrupt("vector count", err)
	}
	if count != uint64(hdr.Dim)*uint64(hdr.NTotal) {
		return nil, fmt.Errorf("%w: %d floats stored for %d vectors of dim %d",
			domain.ErrCorruptIndex, count, hdr.NTotal, hdr.Dim)
	}
	if count*4 > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: truncated vector data", domain.ErrCorruptIndex)
	}

	raw := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, corrupt("vector data", err)
	}
	return NewVectors(int(hdr.Dim), raw)
}

// WriteFlatIP writes vectors as a FAISS IndexFlatIP file. Row-major, len(data) == dim*n.
func WriteFlatIP(path string, dim int, data []float32) error {
	if dim <= 0 || len(data)%dim != 0 {
		return fmt.Errorf("%d floats do not form vectors of dim %d", len(data), dim)
	}

	var buf bytes.Buffer
	buf.WriteString(fourccFlatIP)
	hdr := []any{
		int32(dim),
		int64(len(data) / dim),
		faissHeaderDummy,
		faissHeaderDummy,
		uint8(1),
		metricInnerProduct,
		uint64(len(data)),
		data,
	}
	for _, v := range hdr {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encode index: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", path, err)
	}
	return nil
}

func corrupt(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrCorruptIndex, what, err)
}

// Vectors is a row-major matrix of L2-normalized float32 vectors.
type Vectors struct {
	Dim  int
	Data []float32
}

// NewVectors validates the shape and L2-normalizes every row in place.
func NewVectors(dim int, data []float32) (*Vectors, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrCorruptIndex, dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("%w: %d floats do not form vectors of dim %d", domain.ErrCorruptIndex, len(data), dim)
	}
	v := &Vectors{Dim: dim, Data: data}
	for i := range v.Len() {
		normalizeL2(v.Row(i))
	}
	return v, nil
}

// Len returns the number of vectors.
func (v *Vectors) Len() int {
	if v == nil || v.Dim == 0 {
		return 0
	}
	return len(v.Data) / v.Dim
}

// Row returns the i-th vector, sharing the underlying storage.
func (v *Vectors) Row(i int) []float32 {
	return v.Data[i*v.Dim : (i+1)*v.Dim]
}

// normalizeL2 scales vec to unit length. Zero vectors are left unchanged.
func normalizeL2(vec []float32) {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

// normalizedCopy returns a unit-length copy of vec.
func normalizedCopy(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	normalizeL2(out)
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
