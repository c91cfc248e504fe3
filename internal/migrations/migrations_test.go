package migrations

import (
	"io"
	"strings"
	"testing"
)

func TestEmbeddedSource(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if first != 1 {
		t.Errorf("First() = %d, want 1", first)
	}

	up, ident, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("ReadUp() error = %v", err)
	}
	defer up.Close()
	if ident != "init" {
		t.Errorf("identifier = %q, want init", ident)
	}
	body, err := io.ReadAll(up)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS users", "CREATE TABLE IF NOT EXISTS candidates", "UNIQUE(user_id)"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("up migration missing %q", want)
		}
	}
}

func TestEmbeddedDownDropsInDependencyOrder(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	down, _, err := src.ReadDown(1)
	if err != nil {
		t.Fatalf("ReadDown() error = %v", err)
	}
	defer down.Close()
	body, _ := io.ReadAll(down)
	text := string(body)

	votes := strings.Index(text, "DROP TABLE IF EXISTS votes")
	users := strings.Index(text, "DROP TABLE IF EXISTS users")
	if votes < 0 || users < 0 || votes > users {
		t.Errorf("votes must be dropped before users:\n%s", text)
	}
}
