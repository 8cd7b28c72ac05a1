package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

type envelope struct {
	Data      []byte `msgpack:"d"`
	UpdatedAt int64  `msgpack:"u"`
	Checksum  uint64 `msgpack:"h"`
}

// MarshalRecord packs a blob and its modification time into a single value,
// together with an xxhash64 checksum of the blob.
func MarshalRecord(data []byte, updatedAt int64) ([]byte, error) {
	return msgpack.Marshal(&envelope{
		Data:      data,
		UpdatedAt: updatedAt,
		Checksum:  xxhash.Sum64(data),
	})
}

// UnmarshalRecord is the inverse of MarshalRecord. Callers that do not own raw
// (e.g. Bolt's mmap-backed values) must pass a copy.
func UnmarshalRecord(raw []byte) (*Record, error) {
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if sum := xxhash.Sum64(env.Data); sum != env.Checksum {
		return nil, fmt.Errorf("%w: checksum %016x, expected %016x", ErrCorruptRecord, sum, env.Checksum)
	}
	if env.Data == nil {
		env.Data = []byte{}
	}
	return &Record{Data: env.Data, UpdatedAt: env.UpdatedAt}, nil
}
