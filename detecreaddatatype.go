package urinestudy

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// Extensions that wrap a spreadsheet and are removed to find the inner name.
var compressionSuffixes = []string{".gz", ".gzip", ".bz2", ".xz", ".z", ".zip"}

// DetectDataType attempts to detect the data type of a stream by checking
// against a set of known data types.  Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(r io.Reader) (DataType, error) {
	buff := make([]byte, 6)
	n, err := io.ReadFull(r, buff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return DataTypeInvalid, err
	}
	buff = buff[:n]

	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(buff) < len(sig) {
			continue
		}
		for position := range sig {
			if buff[position] != sig[position] {
				continue Outer
			}
		}
		return dt, nil
	}

	return DataTypeNoCompression, nil
}

// WorkbookExtensions are spreadsheet formats that are zip containers
// themselves.
var WorkbookExtensions = []string{".xlsx", ".xlsm"}

// IsWorkbook reports whether name carries one of WorkbookExtensions.
func IsWorkbook(name string) bool {
	ext := filepath.Ext(name)
	for _, w := range WorkbookExtensions {
		if strings.EqualFold(ext, w) {
			return true
		}
	}

	return false
}

// MaybeDecompress sniffs r and, if it is a compressed wrapper, returns the
// fully decompressed contents along with the inner file name. Workbooks are
// never unwrapped.
func MaybeDecompress(r io.ReadSeeker, name string) ([]byte, string, error) {
	if IsWorkbook(name) {
		b, err := io.ReadAll(r)
		return b, name, pfx.Err(err)
	}

	dt, err := DetectDataType(r)
	if err != nil {
		return nil, name, pfx.Err(err)
	}

	// Reset your original reader
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, name, pfx.Err(err)
	}

	inner := trimCompressionSuffix(name)

	var rdr io.Reader
	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, name, pfx.Err(err)
		}
		defer gz.Close()
		rdr = gz
	case DataTypeZip:
		zr := zipstream.NewReader(r)
		hdr, err := zr.Next()
		if err != nil {
			return nil, name, pfx.Err(err)
		}
		inner = filepath.Base(hdr.Name)
		rdr = zr
	case DataTypeBZip2:
		rdr = bzip2.NewReader(r)
	case DataTypeXZ:
		xr, err := xz.NewReader(r, 0)
		if err != nil {
			return nil, name, pfx.Err(err)
		}
		rdr = xr
	case DataTypeZ:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, name, pfx.Err(err)
		}
		defer zr.Close()
		rdr = zr
	case DataTypeNoCompression:
		rdr = r
		inner = name
	default:
		return nil, name, fmt.Errorf("%s: unrecognized data type %s", name, dt)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rdr); err != nil {
		return nil, name, pfx.Err(fmt.Errorf("%s: %v", name, err))
	}

	return buf.Bytes(), inner, nil
}

func trimCompressionSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range compressionSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}

	return name
}
