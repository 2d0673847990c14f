package store

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
)

// Id is the 128-bit identifier of one cell. The high half carries the
// schema id so one schema's cells share an engine key prefix.
type Id struct {
	High uint64
	Low  uint64
}

// UnitId is the null identifier. Adjacency handles hold it until their
// list is materialized.
var UnitId = Id{}

func (id Id) IsUnit() bool {
	return id.High == 0 && id.Low == 0
}

// Bytes returns the 16-byte big-endian engine key for this id.
func (id Id) Bytes() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], id.High)
	binary.BigEndian.PutUint64(b[8:], id.Low)
	return b
}

func (id Id) String() string {
	return fmt.Sprintf("%016x%016x", id.High, id.Low)
}

// MarshalJSON encodes the id as a fixed 32-char hex string so ids keep
// their identity through the cell payload codec.
func (id Id) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

func (id *Id) UnmarshalJSON(data []byte) error {
	if len(data) != 34 || data[0] != '"' || data[33] != '"' {
		return errors.Wrapf(ErrBadCellData, "invalid id literal %q", data)
	}
	raw, err := hex.DecodeString(string(data[1:33]))
	if err != nil {
		return errors.Wrapf(ErrBadCellData, "invalid id literal %q", data)
	}
	id.High = binary.BigEndian.Uint64(raw[:8])
	id.Low = binary.BigEndian.Uint64(raw[8:])
	return nil
}

// EncodeKey derives the deterministic cell id for (schema, primary key).
// The same schema and key always map to the same cell.
func EncodeKey(schemaID proto.SchemaID, key []byte) Id {
	return Id{
		High: uint64(schemaID),
		Low:  xxhash.Sum64(key),
	}
}

var (
	idSalt uint64
	idSeq  uint64
)

func init() {
	idSalt = rand.New(rand.NewSource(time.Now().UnixNano())).Uint64()
}

// NewId allocates a fresh cell id under the given schema for cells that
// have no natural primary key (edge bodies, list segments).
func NewId(schemaID proto.SchemaID) Id {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], atomic.AddUint64(&idSeq, 1))
	binary.BigEndian.PutUint64(buf[16:], idSalt)
	return Id{
		High: uint64(schemaID),
		Low:  xxhash.Sum64(buf[:]),
	}
}
