package identity

import (
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// testStore creates a gallery in a temp dir.
func testStore(t *testing.T, name string) *FileStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func mustTemplate(t *testing.T, label string, v ...float64) Template {
	t.Helper()
	tp, err := NewTemplate(label, v)
	if err != nil {
		t.Fatalf("NewTemplate failed: %v", err)
	}
	return tp
}

func TestNewFileStore_Missing(t *testing.T) {
	store := testStore(t, "gallery.json")

	if store.Count() != 0 {
		t.Errorf("expected empty store, got %d", store.Count())
	}
	templates, err := store.Templates()
	if err != nil {
		t.Fatalf("Templates failed: %v", err)
	}
	if len(templates) != 0 {
		t.Errorf("expected no templates, got %d", len(templates))
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("gallery file should not exist before the first append")
	}
}

func TestNewFileStore_UnsupportedFormat(t *testing.T) {
	_, err := NewFileStore(filepath.Join(t.TempDir(), "gallery.csv"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNewTemplate(t *testing.T) {
	tp := mustTemplate(t, "  alice ", 1, 2)
	if tp.Label != "alice" {
		t.Errorf("label = %q, want trimmed", tp.Label)
	}
	if tp.ID == "" {
		t.Error("expected ID to be generated")
	}
	if tp.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if _, err := NewTemplate("   ", []float64{1}); !errors.Is(err, ErrEmptyLabel) {
		t.Errorf("expected ErrEmptyLabel, got %v", err)
	}
	if _, err := NewTemplate("bob", nil); !errors.Is(err, ErrFeatureLength) {
		t.Errorf("expected ErrFeatureLength, got %v", err)
	}
}

func TestAppend_RoundTrip(t *testing.T) {
	for _, name := range []string{"gallery.json", "gallery.msgpack"} {
		t.Run(name, func(t *testing.T) {
			store := testStore(t, name)

			if err := store.Append(mustTemplate(t, "alice", 1, 2), mustTemplate(t, "alice", 3, 4)); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
			if err := store.Append(mustTemplate(t, "bob", 5, 6)); err != nil {
				t.Fatalf("Append failed: %v", err)
			}

			// A fresh store over the same file sees every row in order.
			reopened, err := NewFileStore(store.Path())
			if err != nil {
				t.Fatalf("reopen failed: %v", err)
			}
			templates, err := reopened.Templates()
			if err != nil {
				t.Fatalf("Templates failed: %v", err)
			}
			if len(templates) != 3 {
				t.Fatalf("expected 3 templates, got %d", len(templates))
			}
			if templates[2].Label != "bob" || templates[2].Features[1] != 6 {
				t.Errorf("unexpected last template %+v", templates[2])
			}

			labels := reopened.Labels()
			if len(labels) != 2 || labels[0] != "alice" || labels[1] != "bob" {
				t.Errorf("Labels() = %v", labels)
			}
		})
	}
}

func TestAppend_LengthMismatch(t *testing.T) {
	store := testStore(t, "gallery.json")
	if err := store.Append(mustTemplate(t, "alice", 1, 2)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	err := store.Append(mustTemplate(t, "bob", 1, 2, 3))
	if !errors.Is(err, ErrFeatureLength) {
		t.Errorf("expected ErrFeatureLength, got %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("rejected append changed the store: %d templates", store.Count())
	}
}

func TestAppend_EmptyLabel(t *testing.T) {
	store := testStore(t, "gallery.json")
	if err := store.Append(Template{Features: []float64{1}}); !errors.Is(err, ErrEmptyLabel) {
		t.Errorf("expected ErrEmptyLabel, got %v", err)
	}
}

func TestTemplates_PicksUpOtherWriter(t *testing.T) {
	reader := testStore(t, "gallery.json")
	writer, err := NewFileStore(reader.Path())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if err := writer.Append(mustTemplate(t, "carol", 7, 8)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	templates, err := reader.Templates()
	if err != nil {
		t.Fatalf("Templates failed: %v", err)
	}
	if len(templates) != 1 || templates[0].Label != "carol" {
		t.Errorf("reader did not see the other writer: %+v", templates)
	}

	// And appends merge rather than overwrite.
	if err := reader.Append(mustTemplate(t, "dave", 9, 10)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	templates, _ = writer.Templates()
	if len(templates) != 2 {
		t.Errorf("expected 2 templates after merge, got %d", len(templates))
	}
}

func TestTemplates_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gallery.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Error("expected error for corrupt gallery")
	}
}

func TestAppend_NoTempFilesLeft(t *testing.T) {
	store := testStore(t, "gallery.msgpack")
	if err := store.Append(mustTemplate(t, "alice", 1)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the gallery file, found %d entries", len(entries))
	}
}

func TestFeatures(t *testing.T) {
	crop := image.NewGray(image.Rect(0, 0, 40, 60))
	for i := range crop.Pix {
		crop.Pix[i] = 200
	}

	v, err := Features(crop, DefaultCropSize)
	if err != nil {
		t.Fatalf("Features failed: %v", err)
	}
	if len(v) != DefaultCropSize*DefaultCropSize {
		t.Fatalf("len = %d, want %d", len(v), DefaultCropSize*DefaultCropSize)
	}
	for i, x := range v {
		if math.Abs(x-200) > 1 {
			t.Fatalf("v[%d] = %v, want ~200 for a flat crop", i, x)
		}
	}

	if _, err := Features(nil, 10); !errors.Is(err, ErrNoCrop) {
		t.Errorf("expected ErrNoCrop, got %v", err)
	}
	if _, err := Features(image.NewGray(image.Rect(0, 0, 0, 0)), 10); !errors.Is(err, ErrNoCrop) {
		t.Errorf("expected ErrNoCrop for empty crop, got %v", err)
	}
}
