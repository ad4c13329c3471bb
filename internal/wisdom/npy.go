package wisdom

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// The embedding matrix is stored in NumPy's .npy format so the files stay
// readable with numpy.load. Only 2-D little-endian float arrays are used.

var npyMagic = []byte("\x93NUMPY")

const (
	maxNPYHeader = 1 << 20
	preallocRows = 4096
	maxNPYDims   = 1 << 16
)

var (
	descrRe   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	fortranRe = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows [][]float32
	Dims int
}

// writeNPY encodes m as a version 1.0 .npy array of '<f4'.
func writeNPY(w io.Writer, m Matrix) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", len(m.Rows), m.Dims)
	// magic(6) + version(2) + header length(2) + header, padded to 64 bytes and ending in '\n'
	total := len(npyMagic) + 4 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"
	if len(header) > math.MaxUint16 {
		return fmt.Errorf("npy header too long: %d bytes", len(header))
	}

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	buf := make([]byte, 4)
	for i, row := range m.Rows {
		if len(row) != m.Dims {
			return fmt.Errorf("row %d has %d values, want %d", i, len(row), m.Dims)
		}
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// readNPY decodes a 2-D '<f4' or '<f8' array in C order. size is the byte
// length of the whole file, or negative when unknown; header sizes that
// cannot fit in it are rejected before anything is allocated.
func readNPY(r io.Reader, size int64) (Matrix, error) {
	br := bufio.NewReader(r)

	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, prefix); err != nil {
		return Matrix{}, fmt.Errorf("read npy preamble: %w", err)
	}
	if !bytes.Equal(prefix[:len(npyMagic)], npyMagic) {
		return Matrix{}, errors.New("not an npy file")
	}

	var headerLen int
	read := int64(len(prefix))
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return Matrix{}, err
		}
		headerLen = int(n)
		read += 2
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return Matrix{}, err
		}
		headerLen = int(n)
		read += 4
	default:
		return Matrix{}, fmt.Errorf("unsupported npy version %d", major)
	}
	if headerLen > maxNPYHeader || (size >= 0 && int64(headerLen) > size-read) {
		return Matrix{}, fmt.Errorf("npy header length %d exceeds file", headerLen)
	}
	read += int64(headerLen)

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return Matrix{}, fmt.Errorf("read npy header: %w", err)
	}
	descr, rows, dims, err := parseNPYHeader(string(header))
	if err != nil {
		return Matrix{}, err
	}

	width := 4
	if descr == "<f8" {
		width = 8
	}
	if rows > 0 && dims == 0 {
		return Matrix{}, fmt.Errorf("npy shape (%d, 0) has no columns", rows)
	}
	if dims > maxNPYDims {
		return Matrix{}, fmt.Errorf("npy row width %d too large", dims)
	}
	rowBytes := int64(width) * int64(dims)
	if rowBytes > 0 && int64(rows) > math.MaxInt64/rowBytes {
		return Matrix{}, fmt.Errorf("npy shape (%d, %d) too large", rows, dims)
	}
	if size >= 0 && int64(rows)*rowBytes != size-read {
		return Matrix{}, fmt.Errorf("npy shape (%d, %d) needs %d data bytes, file has %d", rows, dims, int64(rows)*rowBytes, size-read)
	}

	// rows grow as they are read, so a lying header fails on EOF instead of
	// reserving memory up front
	m := Matrix{Rows: make([][]float32, 0, min(rows, preallocRows)), Dims: dims}
	buf := make([]byte, width*dims)
	for i := 0; i < rows; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return Matrix{}, fmt.Errorf("read row %d: %w", i, err)
		}
		row := make([]float32, dims)
		for j := range row {
			if width == 4 {
				row[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
			} else {
				row[j] = float32(math.Float64frombits(binary.LittleEndian.Uint64(buf[j*8:])))
			}
		}
		m.Rows = append(m.Rows, row)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return Matrix{}, errors.New("trailing data after npy array")
	}
	return m, nil
}

func parseNPYHeader(h string) (descr string, rows, dims int, err error) {
	d := descrRe.FindStringSubmatch(h)
	f := fortranRe.FindStringSubmatch(h)
	s := shapeRe.FindStringSubmatch(h)
	if d == nil || f == nil || s == nil {
		return "", 0, 0, fmt.Errorf("malformed npy header %q", h)
	}
	descr = d[1]
	if descr != "<f4" && descr != "<f8" {
		return "", 0, 0, fmt.Errorf("unsupported npy dtype %q", descr)
	}
	if f[1] == "True" {
		return "", 0, 0, errors.New("fortran-ordered npy arrays are not supported")
	}

	var shape []int
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return "", 0, 0, fmt.Errorf("bad npy shape %q", s[1])
		}
		shape = append(shape, n)
	}
	switch len(shape) {
	case 2:
		return descr, shape[0], shape[1], nil
	case 1:
		// numpy saves an empty array as shape (0,)
		if shape[0] == 0 {
			return descr, 0, 0, nil
		}
	}
	return "", 0, 0, fmt.Errorf("expected a 2-D npy array, got shape (%s)", s[1])
}
