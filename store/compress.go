package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Compression int

const (
	NoCompression Compression = iota
	Zstd
	LZ4
)

// Compressed blobs start with a tag byte. Encoded indexes start with the high
// byte of their format version, which is zero, so untagged data is read as is.
const (
	tagZstd = 'z'
	tagLZ4  = 'l'
)

// maxBlobSize is the size of the largest encodable index: a 6-byte header
// plus 65535 columns of 65535 four-byte values.
const maxBlobSize = 6 + 65535*65535*4

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", int(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return NoCompression, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

type Compressed struct {
	inner Backend
	c     Compression
	enc   *zstd.Encoder

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
}

// Compress returns a backend that compresses blobs before handing them to b.
// Reads accept both compressed and uncompressed blobs, so compression can be
// switched on for an existing store. Close releases the zstd coders.
func Compress(b Backend, c Compression) (*Compressed, error) {
	cb := &Compressed{inner: b, c: c}
	if c == Zstd {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		cb.enc = enc
	}
	return cb, nil
}

func (b *Compressed) Unwrap() Backend { return b.inner }

// Close releases the zstd encoder and decoder. It does not close the wrapped
// backend.
func (b *Compressed) Close() error {
	b.decOnce.Do(func() {}) // no decoder can be created after Close
	if b.dec != nil {
		b.dec.Close()
	}
	if b.enc != nil {
		return b.enc.Close()
	}
	return nil
}

// decoder is created on first use, because zstd blobs may be read by a
// backend configured for LZ4 or no compression.
func (b *Compressed) decoder() (*zstd.Decoder, error) {
	b.decOnce.Do(func() {
		b.dec, b.decErr = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(maxBlobSize))
	})
	if b.dec == nil && b.decErr == nil {
		return nil, errors.New("zstd: decoder closed")
	}
	return b.dec, b.decErr
}

func (b *Compressed) Get(ctx context.Context, key Key) (*Record, error) {
	rec, err := b.inner.Get(ctx, key)
	if err != nil || rec == nil {
		return rec, err
	}
	rec.Data, err = b.decompress(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", key, err)
	}
	return rec, nil
}

func (b *Compressed) Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) error {
	return b.inner.Upsert(ctx, key, b.compress(data), updatedAt)
}

func (b *Compressed) Delete(ctx context.Context, key Key) error {
	return b.inner.Delete(ctx, key)
}

func (b *Compressed) compress(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	switch b.c {
	case Zstd:
		out := make([]byte, 1, 1+len(data)/2)
		out[0] = tagZstd
		return b.enc.EncodeAll(data, out)
	case LZ4:
		out := make([]byte, 1+binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
		out[0] = tagLZ4
		off := 1 + binary.PutUvarint(out[1:], uint64(len(data)))
		n, err := lz4.CompressBlock(data, out[off:], nil)
		if err != nil || n == 0 {
			// incompressible
			return data
		}
		return out[:off+n]
	default:
		return data
	}
}

func (b *Compressed) decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	switch data[0] {
	case tagZstd:
		if len(data) == 1 {
			return nil, fmt.Errorf("%w: zstd: empty frame", ErrCorruptRecord)
		}
		dec, err := b.decoder()
		if err != nil {
			return nil, err
		}
		out, err := dec.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorruptRecord, err)
		}
		return out, nil
	case tagLZ4:
		size, n := binary.Uvarint(data[1:])
		if n <= 0 {
			return nil, fmt.Errorf("%w: lz4: invalid size", ErrCorruptRecord)
		}
		// an lz4 block expands at most 255:1
		if size > maxBlobSize || size > 255*uint64(len(data)) {
			return nil, fmt.Errorf("%w: lz4: size %d out of range", ErrCorruptRecord, size)
		}
		out := make([]byte, size)
		m, err := lz4.UncompressBlock(data[1+n:], out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorruptRecord, err)
		}
		if uint64(m) != size {
			return nil, fmt.Errorf("%w: lz4: got %d bytes, expected %d", ErrCorruptRecord, m, size)
		}
		return out, nil
	default:
		return data, nil
	}
}
