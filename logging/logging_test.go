package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	output = &buf
	Init()

	StdLogger(SourceWeb).Println("listening")
	log.Printf("read %d rows", 3)
	Logger(SourceStudy).Info("processed", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), buf.String())
	}

	expected := [][]string{
		{"source=web", "msg=listening"},
		{"source=app", `msg="read 3 rows"`},
		{"source=study", "msg=processed", "rows=3"},
	}
	for i, parts := range expected {
		for _, e := range parts {
			if !strings.Contains(lines[i], e) {
				t.Errorf("Line %d %q does not contain %q", i, lines[i], e)
			}
		}
	}
}
