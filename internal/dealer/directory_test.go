package dealer

import (
	"encoding/json"
	"testing"
)

func TestLoadBuiltinDirectory(t *testing.T) {
	dir, err := Load()
	if err != nil {
		t.Fatalf("load dealer directory failed: %v", err)
	}
	if dir.Len() != 116 {
		t.Fatalf("dealer count want 116 got %d", dir.Len())
	}
	if got := dir.Name("9000400467"); got != "SMITHBRIDGE GUAM INC." {
		t.Fatalf("unexpected dealer name %q", got)
	}
}

func TestNameEchoesUnknownCode(t *testing.T) {
	dir := NewDirectory(map[string]string{"D1": "Dealer One"})
	if got := dir.Name("UNKNOWN-9"); got != "UNKNOWN-9" {
		t.Fatalf("unknown code should echo, got %q", got)
	}
	if got := dir.Name(" D1 "); got != "Dealer One" {
		t.Fatalf("lookup should trim code, got %q", got)
	}
	var nilDir *Directory
	if got := nilDir.Name("X"); got != "X" {
		t.Fatalf("nil directory should echo, got %q", got)
	}
}

func TestDirectoryIsImmutableCopy(t *testing.T) {
	src := map[string]string{"A": "Alpha"}
	dir := NewDirectory(src)
	src["A"] = "Changed"
	src["B"] = "Beta"
	if dir.Name("A") != "Alpha" || dir.Len() != 1 {
		t.Fatalf("directory must not observe source mutation")
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(dir.JSON()), &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if decoded["A"] != "Alpha" {
		t.Fatalf("json output want Alpha got %q", decoded["A"])
	}
}
