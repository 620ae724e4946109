package boundary

import (
	"os"
	"path/filepath"
	"testing"
)

const squareAroundAlton = `{
	"type": "Polygon",
	"coordinates": [[
		[-1.5, 51.0], [-1.5, 51.3], [-0.9, 51.3], [-0.9, 51.0], [-1.5, 51.0]
	]]
}`

func writeTempBoundary(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boundary.geojson")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write boundary fixture: %v", err)
	}
	return path
}

func TestBoundaryContains(t *testing.T) {
	path := writeTempBoundary(t, squareAroundAlton)
	b, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !b.Contains(51.15, -1.2) {
		t.Errorf("expected point inside the square to be contained")
	}
	if b.Contains(0, 0) {
		t.Errorf("expected origin to be outside the square")
	}
}

func TestBoundaryNilContainsEverything(t *testing.T) {
	var b *Boundary
	if !b.Contains(0, 0) {
		t.Errorf("nil boundary should contain everything (no filter configured)")
	}
}

func TestLoadRejectsUnsupportedGeometry(t *testing.T) {
	path := writeTempBoundary(t, `{"type": "Point", "coordinates": [0, 0]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unsupported geometry type")
	}
}
