package urinestudy

import (
	"bytes"
	"compress/gzip"
	"os/user"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandHome(t *testing.T) {
	usr, err := user.Current()
	if err != nil {
		t.Skip(err)
	}

	cases := map[string]string{
		"~":            usr.HomeDir,
		"~/study.xlsx": filepath.Join(usr.HomeDir, "study.xlsx"),
		"/tmp/a.csv":   "/tmp/a.csv",
		"gs://b/a.csv": "gs://b/a.csv",
		"~other/a.csv": "~other/a.csv",
	}

	for in, expected := range cases {
		if got := ExpandHome(in); got != expected {
			t.Errorf("ExpandHome(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestDetectDataType(t *testing.T) {
	cases := []struct {
		data     []byte
		expected DataType
	}{
		{gzipped(t, "a,b\n"), DataTypeGzip},
		{[]byte("BZh91AY"), DataTypeBZip2},
		{[]byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00}, DataTypeZip},
		{[]byte("tube,area\n"), DataTypeNoCompression},
		{[]byte("a"), DataTypeNoCompression},
		{nil, DataTypeNoCompression},
	}

	for i, c := range cases {
		got, err := DetectDataType(bytes.NewReader(c.data))
		if err != nil {
			t.Errorf("Case %d: %v", i, err)
			continue
		}
		if got != c.expected {
			t.Errorf("Case %d: got %s, expected %s", i, got, c.expected)
		}
	}
}

func TestMaybeDecompress(t *testing.T) {
	const content = "Tubo,A/C Arkray\n1,10\n"

	data, inner, err := MaybeDecompress(bytes.NewReader(gzipped(t, content)), "study.csv.gz")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content || inner != "study.csv" {
		t.Errorf("Unexpected gzip result %q %q", data, inner)
	}

	data, inner, err = MaybeDecompress(strings.NewReader(content), "study.csv")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content || inner != "study.csv" {
		t.Errorf("Unexpected plain result %q %q", data, inner)
	}
}

func TestMaybeDecompressKeepsWorkbooks(t *testing.T) {
	// A workbook starts with the zip magic and must come back untouched.
	workbook := []byte{0x50, 0x4b, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00}

	for _, name := range []string{"study.xlsx", "study.xlsm", "STUDY.XLSM"} {
		data, inner, err := MaybeDecompress(bytes.NewReader(workbook), name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if !bytes.Equal(data, workbook) || inner != name {
			t.Errorf("%s: expected the workbook bytes unchanged, got %d bytes named %q", name, len(data), inner)
		}
	}

	if IsWorkbook("study.csv.zip") {
		t.Error("Expected a zipped CSV not to be treated as a workbook")
	}
}

func TestDetermineDelimiter(t *testing.T) {
	cases := map[string]rune{
		"tubo;area;ac\n1;UTI;10\n2;UTI;20\n3;Ward;3\n": ';',
		"tubo\tarea\tac\n1\tUTI\t10\n2\tUTI\t20\n":     '\t',
		"tubo,area,ac\n1,UTI,10\n2,UTI,20\n":           ',',
	}

	for in, expected := range cases {
		if got := DetermineDelimiter(strings.NewReader(in)); got != expected {
			t.Errorf("Got %q, expected %q for %q", got, expected, in)
		}
	}
}

func TestIsGoogleStoragePath(t *testing.T) {
	if !IsGoogleStoragePath("gs://bucket/study.xlsx") {
		t.Error("Expected a gs:// path to be recognized")
	}
	if IsGoogleStoragePath("/data/gs/study.xlsx") {
		t.Error("Expected a local path not to be recognized")
	}
}
