package compileinfo

import "testing"

func TestString(t *testing.T) {
	if got := (CompileInfo{}).String(); got != "build information is unavailable" {
		t.Errorf("Unexpected empty string %q", got)
	}

	c := CompileInfo{Package: "github.com/carbocation/urinestudy", Version: "(devel)", GoVersion: "go1.24", Modified: true}
	expected := "github.com/carbocation/urinestudy (devel) built with go1.24 at commit unknown (modified)"
	if got := c.String(); got != expected {
		t.Errorf("Got %q, expected %q", got, expected)
	}

	if kv := c.KeyVals(); len(kv)%2 != 0 {
		t.Errorf("Expected key/value pairs, got %d items", len(kv))
	}
}
