package model

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Entry is one word and its vector, in file order.
type Entry struct {
	Word   string
	Vector Vector
}

// Encode writes entries in the binary format Decode reads, one record per
// line as the reference word2vec tool does.
func Encode(w io.Writer, dim int, entries []Entry) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", len(entries), dim); err != nil {
		return err
	}
	var buf [4]byte
	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("word %q: vector length %d, want %d", e.Word, len(e.Vector), dim)
		}
		if _, err := bw.WriteString(e.Word + " "); err != nil {
			return err
		}
		for _, f := range e.Vector {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
