package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// vectorMagic identifies a vectors.bin file and its layout version.
var vectorMagic = [8]byte{'R', 'A', 'Y', 'V', 'E', 'C', '0', '2'}

// errBadMagic indicates the file is not a vector data file.
var errBadMagic = errors.New("not a vector data file")

// vectorHeader describes the matrix that follows it.
type vectorHeader struct {
	model    string
	dims     int
	count    int
	docstore string // file name of the generation's docstore
}

// writeVectors encodes the header followed by count*dims float32 values.
func writeVectors(w io.Writer, h vectorHeader, vectors [][]float32) error {
	bw := bufio.NewWriter(w)
	dims := h.dims
	if _, err := bw.Write(vectorMagic[:]); err != nil {
		return err
	}
	for _, str := range []string{h.model, h.docstore} {
		if err := writeString(bw, str); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(dims)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(vectors))); err != nil {
		return err
	}

	buf := make([]byte, dims*4)
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), dims)
		}
		for j, f := range v {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(f))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// readVectors decodes a vector data file.
func readVectors(r io.Reader) (vectorHeader, [][]float32, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return h, nil, err
	}

	vectors := make([][]float32, 0, min(h.count, 1<<20))
	buf := make([]byte, h.dims*4)
	for i := 0; i < h.count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return h, nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		v := make([]float32, h.dims)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vectors = append(vectors, v)
	}
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return h, nil, errors.New("trailing data after vectors")
	}
	return h, vectors, nil
}

// writeString writes a length-prefixed string.
func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

// readString reads a length-prefixed string of at most 4096 bytes.
func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > 4096 {
		return "", fmt.Errorf("implausible string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// readHeader decodes the header preceding the vectors.
func readHeader(br *bufio.Reader) (vectorHeader, error) {
	var h vectorHeader

	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return h, fmt.Errorf("read magic: %w", err)
	}
	if magic != vectorMagic {
		return h, errBadMagic
	}

	model, err := readString(br)
	if err != nil {
		return h, fmt.Errorf("read model: %w", err)
	}
	docstore, err := readString(br)
	if err != nil {
		return h, fmt.Errorf("read docstore name: %w", err)
	}
	var dims uint32
	if err := binary.Read(br, binary.LittleEndian, &dims); err != nil {
		return h, fmt.Errorf("read dimensions: %w", err)
	}
	if dims == 0 || dims > 1<<16 {
		return h, fmt.Errorf("implausible dimensions %d", dims)
	}
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return h, fmt.Errorf("read count: %w", err)
	}

	return vectorHeader{model: model, dims: int(dims), count: int(count), docstore: docstore}, nil
}
