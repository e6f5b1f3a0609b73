package index

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spaolacci/murmur3"

	"github.com/sommarioni/sommarioni/pkg/types"
)

// digester fingerprints a sequence of (id, record) pairs. Both parts are
// length-prefixed so distinct sequences never hash the same input bytes.
type digester struct {
	h murmur3.Hash128
}

func newDigester() *digester {
	return &digester{h: murmur3.New128()}
}

func (d *digester) add(id string, body []byte) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(id)))
	d.h.Write(n[:])
	d.h.Write([]byte(id))
	binary.LittleEndian.PutUint64(n[:], uint64(len(body)))
	d.h.Write(n[:])
	d.h.Write(body)
}

func (d *digester) sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Digest fingerprints the indexed content: every identifier with its records
// in order. Two indexes answer every lookup identically when their digests
// match; a snapshot stores the digest of the index it was written from.
func (ix *Index) Digest() (string, error) {
	d := newDigester()
	var err error
	ix.Range(func(id string, records []types.Record) bool {
		for i, r := range records {
			body, mErr := json.Marshal(r)
			if mErr != nil {
				err = fmt.Errorf("encode record %s/%d: %w", id, i, mErr)
				return false
			}
			d.add(id, body)
		}
		return true
	})
	if err != nil {
		return "", err
	}
	return d.sum(), nil
}
