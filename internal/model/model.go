// Package model loads word2vec binary dumps into an immutable lookup table.
//
// The format is an ASCII header "<words> <dim>\n" followed by records of
// the form <word><' '><dim little-endian float32s>. There are no record
// delimiters or checksums; record boundaries come from counting float bytes.
// Newlines between records are tolerated and skipped.
//
// A Model is never mutated after Load returns. It carries no locks, so it
// must be owned by a single goroutine (see package worker).
package model

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"wordvec/internal/vecmath"
)

// Vector is a word vector of length Dim.
type Vector = vecmath.Vector

const (
	readBufferSize = 1 << 20

	// caps on preallocation so a bogus header cannot force a huge alloc;
	// storage grows with the bytes actually read
	maxPrealloc = 1 << 20
	chunkFloats = 1 << 14
)

// Model is the in-memory word→vector table.
type Model struct {
	totalWords int
	dim        int
	vectors    map[string]Vector
}

// TotalWords is the word count announced by the header.
func (m *Model) TotalWords() int { return m.totalWords }

// Dim is the dimensionality shared by every vector.
func (m *Model) Dim() int { return m.dim }

// Len is the number of words actually loaded.
func (m *Model) Len() int { return len(m.vectors) }

// Load opens path and decodes it. Paths ending in ".gz" are decompressed.
func Load(path string) (*Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrOpen, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedHeader, path, err)
		}
		defer gz.Close()
		r = gz
	}
	return Decode(r)
}

// Decode parses a model from r.
//
// Only a bad header is an error. Decoding stops after the announced number
// of records, at end of stream, or at the first read error; a record cut
// short by any of these is dropped and the complete ones are kept.
func Decode(r io.Reader) (*Model, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	total, dim, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	m := &Model{
		totalWords: total,
		dim:        dim,
		vectors:    make(map[string]Vector, min(total, maxPrealloc)),
	}

	raw := make([]byte, 4*min(dim, chunkFloats))
	word := make([]byte, 0, 64)
	for records := 0; records < total; records++ {
		word, err = readWord(br, word[:0])
		if err != nil {
			break
		}
		var vec Vector
		if vec, err = readVector(br, dim, raw); err != nil {
			break
		}
		m.vectors[string(word)] = vec
	}
	return m, nil
}

func readHeader(br *bufio.Reader) (int, int, error) {
	line, err := br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedHeader, strings.TrimSpace(line))
	}
	total, err := strconv.Atoi(fields[0])
	if err != nil || total <= 0 {
		return 0, 0, fmt.Errorf("%w: bad word count %q", ErrMalformedHeader, fields[0])
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil || dim <= 0 {
		return 0, 0, fmt.Errorf("%w: bad dimensionality %q", ErrMalformedHeader, fields[1])
	}
	return total, dim, nil
}

// readVector reads dim little-endian float32s through raw, one chunk at a
// time.
func readVector(br *bufio.Reader, dim int, raw []byte) (Vector, error) {
	vec := make(Vector, 0, min(dim, chunkFloats))
	for len(vec) < dim {
		n := min(dim-len(vec), len(raw)/4)
		chunk := raw[:4*n]
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			vec = append(vec, math.Float32frombits(binary.LittleEndian.Uint32(chunk[4*i:])))
		}
	}
	return vec, nil
}

// readWord accumulates bytes up to the next space. Newlines are skipped.
func readWord(br *bufio.Reader, buf []byte) ([]byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return buf, err
		}
		switch b {
		case ' ':
			return buf, nil
		case '\n':
		default:
			buf = append(buf, b)
		}
	}
}
