package store

import (
	"encoding/binary"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/tiglabs/cellgraph/proto"
	"github.com/tiglabs/cellgraph/util/json"
)

// Cell is a single versioned, schema-typed unit of storage. Body holds
// the encoded payload; Marshal/Unmarshal move typed values in and out.
type Cell struct {
	Id       Id
	SchemaID proto.SchemaID
	Version  uint64
	Body     []byte
}

// NewCell builds an unversioned cell from a typed payload.
func NewCell(id Id, schemaID proto.SchemaID, v interface{}) (*Cell, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(ErrBadCellData, err.Error())
	}
	return &Cell{Id: id, SchemaID: schemaID, Body: body}, nil
}

// Unmarshal decodes the cell payload into v.
func (c *Cell) Unmarshal(v interface{}) error {
	if err := json.Unmarshal(c.Body, v); err != nil {
		return errors.Wrapf(ErrBadCellData, "cell %v: %v", c.Id, err)
	}
	return nil
}

// Engine record layout: 8-byte version, 4-byte schema id, snappy-compressed
// payload. The fixed header lets commit validation read versions without
// decompressing.
const recordHeaderLen = 12

func encodeCellRecord(c *Cell) []byte {
	compressed := snappy.Encode(nil, c.Body)
	rec := make([]byte, recordHeaderLen+len(compressed))
	binary.BigEndian.PutUint64(rec[:8], c.Version)
	binary.BigEndian.PutUint32(rec[8:12], c.SchemaID)
	copy(rec[recordHeaderLen:], compressed)
	return rec
}

func decodeCellRecord(id Id, rec []byte) (*Cell, error) {
	if len(rec) < recordHeaderLen {
		return nil, errors.Wrapf(ErrBadCellData, "cell %v: record too short", id)
	}
	body, err := snappy.Decode(nil, rec[recordHeaderLen:])
	if err != nil {
		return nil, errors.Wrapf(ErrBadCellData, "cell %v: %v", id, err)
	}
	return &Cell{
		Id:       id,
		SchemaID: binary.BigEndian.Uint32(rec[8:12]),
		Version:  binary.BigEndian.Uint64(rec[:8]),
		Body:     body,
	}, nil
}

func recordVersion(rec []byte) uint64 {
	if len(rec) < recordHeaderLen {
		return 0
	}
	return binary.BigEndian.Uint64(rec[:8])
}
