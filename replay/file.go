package replay

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// File layout: magic, format version, msgpack body, xxhash64 of the body
// (little endian).
var magic = [4]byte{'R', 'V', 'R', 'P'}

const formatVersion = 1

var (
	ErrBadMagic = errors.New("replay: not a recording")
	ErrVersion  = errors.New("replay: unsupported format version")
	ErrChecksum = errors.New("replay: checksum mismatch")
)

// Encode writes rec to w.
func Encode(w io.Writer, rec *Recording) error {
	body, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}

	bw := bufio.NewWriter(w)
	bw.Write(magic[:])
	bw.WriteByte(formatVersion)
	bw.Write(body)
	var sum [8]byte
	binary.LittleEndian.PutUint64(sum[:], xxhash.Sum64(body))
	bw.Write(sum[:])
	return bw.Flush()
}

// Decode reads a recording written by Encode.
func Decode(r io.Reader) (*Recording, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < len(magic)+1+8 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	body := data[len(magic)+1 : len(data)-8]
	sum := binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(body) != sum {
		return nil, ErrChecksum
	}

	var rec Recording
	if err := msgpack.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	return &rec, nil
}

func WriteFile(path string, rec *Recording) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, rec); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func ReadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rec, nil
}
