package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
)

// idFilter is a bloom filter over geometry identifiers stored alongside a
// snapshot. It never reports a present id as absent.
type idFilter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// newIDFilter sizes a filter for expected ids at the target false positive
// rate:
//   - m = -n * ln(p) / (ln(2)^2)
//   - k = (m/n) * ln(2)
func newIDFilter(expected int, fpr float64) *idFilter {
	if expected <= 0 {
		expected = 1
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = 0.01
	}

	n := float64(expected)
	m := -n * math.Log(fpr) / (math.Ln2 * math.Ln2)
	k := math.Ceil((m / n) * math.Ln2)

	numWords := (uint64(math.Ceil(m)) + 63) / 64
	if numWords == 0 {
		numWords = 1
	}
	if k < 1 {
		k = 1
	}
	return &idFilter{
		bits:      make([]uint64, numWords),
		numBits:   numWords * 64,
		numHashes: uint64(k),
	}
}

func (f *idFilter) add(id string) {
	h1, h2 := murmur3.Sum128([]byte(id))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

func (f *idFilter) mayContain(id string) bool {
	h1, h2 := murmur3.Sum128([]byte(id))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// marshal encodes the filter as a 24 byte header (numBits, numHashes, count,
// little-endian) followed by the snappy-compressed bit array.
func (f *idFilter) marshal() []byte {
	raw := make([]byte, len(f.bits)*8)
	for i, word := range f.bits {
		binary.LittleEndian.PutUint64(raw[i*8:], word)
	}
	compressed := snappy.Encode(nil, raw)

	buf := make([]byte, 24+len(compressed))
	binary.LittleEndian.PutUint64(buf[0:8], f.numBits)
	binary.LittleEndian.PutUint64(buf[8:16], f.numHashes)
	binary.LittleEndian.PutUint64(buf[16:24], f.count)
	copy(buf[24:], compressed)
	return buf
}

func unmarshalIDFilter(data []byte) (*idFilter, error) {
	if len(data) < 24 {
		return nil, errors.New("id filter: data too short")
	}
	numBits := binary.LittleEndian.Uint64(data[0:8])
	numHashes := binary.LittleEndian.Uint64(data[8:16])
	count := binary.LittleEndian.Uint64(data[16:24])
	if numBits == 0 || numBits%64 != 0 || numHashes == 0 {
		return nil, errors.New("id filter: invalid parameters")
	}

	raw, err := snappy.Decode(nil, data[24:])
	if err != nil {
		return nil, fmt.Errorf("id filter: snappy decode: %w", err)
	}
	numWords := numBits / 64
	if uint64(len(raw)) != numWords*8 {
		return nil, fmt.Errorf("id filter: expected %d bytes, got %d", numWords*8, len(raw))
	}

	bits := make([]uint64, numWords)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return &idFilter{
		bits:      bits,
		numBits:   numBits,
		numHashes: numHashes,
		count:     count,
	}, nil
}
