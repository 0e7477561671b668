package catalog_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/upload-lab/internal/catalog"
	"github.com/JaimeStill/upload-lab/internal/tracking"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newCatalog(t *testing.T, db *badger.DB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(db, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

var uploaded = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func sample(id, title string, size int64) catalog.Document {
	return catalog.Document{
		ID:         id,
		Title:      title,
		UploadDate: uploaded,
		Status:     catalog.StatusProcessing,
		Type:       "pdf",
		FileURI:    "file:///tmp/" + title,
		FileSize:   size,
		MIMEType:   "application/pdf",
		UploadID:   "up-" + id,
	}
}

func TestSave_RoundTrip(t *testing.T) {
	db := openDB(t)
	c := newCatalog(t, db)

	opened := uploaded.Add(time.Hour)
	doc := sample("d1", "Untitled.pdf", 3_000_000)
	doc.Status = catalog.StatusSynced
	doc.PageCount = 12
	doc.CID = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"
	doc.LastOpened = &opened

	if err := c.Save(doc); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := c.Seed(catalog.SeedDocuments(uploaded)); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	before, err := c.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	reloaded := newCatalog(t, db)
	after, err := reloaded.List()
	if err != nil {
		t.Fatalf("List() after reload failed: %v", err)
	}

	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("reloaded documents mismatch (-want +got):\n%s", diff)
	}

	first, _ := json.Marshal(before)
	second, _ := json.Marshal(after)
	if string(first) != string(second) {
		t.Errorf("re-serialized documents differ:\n%s\n%s", first, second)
	}
}

func TestSave_Upserts(t *testing.T) {
	c := newCatalog(t, openDB(t))

	if err := c.Save(sample("d1", "a.pdf", 1)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := c.Save(sample("d2", "b.pdf", 2)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	changed := sample("d1", "a.pdf", 1)
	changed.Status = catalog.StatusSynced
	if err := c.Save(changed); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	docs, err := c.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List() returned %d documents, want 2", len(docs))
	}
	if docs[0].ID != "d2" || docs[1].Status != catalog.StatusSynced {
		t.Errorf("List() = %+v, want d2 first and d1 synced in place", docs)
	}
}

func TestSave_Invalid(t *testing.T) {
	c := newCatalog(t, openDB(t))

	for _, doc := range []catalog.Document{{Title: "x"}, {ID: "x"}} {
		if err := c.Save(doc); !errors.Is(err, catalog.ErrInvalidDocument) {
			t.Errorf("Save(%+v) error = %v, want %v", doc, err, catalog.ErrInvalidDocument)
		}
	}
}

func TestFindUpdateDelete(t *testing.T) {
	c := newCatalog(t, openDB(t))

	if err := c.Save(sample("d1", "a.pdf", 10)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	updated, err := c.Update("d1", func(d *catalog.Document) {
		d.Status = catalog.StatusSynced
		d.PageCount = 4
		d.ID = "ignored"
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.ID != "d1" || updated.PageCount != 4 {
		t.Errorf("Update() = %+v, want d1 with 4 pages", updated)
	}

	touched, err := c.Touch("d1", uploaded.Add(time.Minute))
	if err != nil {
		t.Fatalf("Touch() failed: %v", err)
	}
	if touched.LastOpened == nil || !touched.LastOpened.Equal(uploaded.Add(time.Minute)) {
		t.Errorf("LastOpened = %v, want %v", touched.LastOpened, uploaded.Add(time.Minute))
	}

	found, err := c.Find("d1")
	if err != nil {
		t.Fatalf("Find() failed: %v", err)
	}
	if found.Status != catalog.StatusSynced {
		t.Errorf("Status = %s, want %s", found.Status, catalog.StatusSynced)
	}

	if err := c.Delete("d1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := c.Find("d1"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Find() after delete error = %v, want %v", err, catalog.ErrNotFound)
	}
	if err := c.Delete("d1"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want %v", err, catalog.ErrNotFound)
	}
	if _, err := c.Update("d1", func(*catalog.Document) {}); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("Update() missing error = %v, want %v", err, catalog.ErrNotFound)
	}
}

func TestFindDuplicate(t *testing.T) {
	c := newCatalog(t, openDB(t))

	if err := c.Save(sample("d1", "Untitled.pdf", 3_000_000)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	tests := []struct {
		name  string
		title string
		size  int64
		want  bool
	}{
		{"same title and size", "Untitled.pdf", 3_000_000, true},
		{"different size", "Untitled.pdf", 3_000_001, false},
		{"different title", "untitled.pdf", 3_000_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, ok, err := c.FindDuplicate(tt.title, tt.size)
			if err != nil {
				t.Fatalf("FindDuplicate() failed: %v", err)
			}
			if ok != tt.want {
				t.Errorf("FindDuplicate() found = %v, want %v", ok, tt.want)
			}
			if ok && doc.ID != "d1" {
				t.Errorf("FindDuplicate() id = %s, want d1", doc.ID)
			}
		})
	}
}

func TestSeed_SkipsExisting(t *testing.T) {
	c := newCatalog(t, openDB(t))
	seed := catalog.SeedDocuments(uploaded)

	added, err := c.Seed(seed)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	if added != len(seed) {
		t.Errorf("Seed() added %d, want %d", added, len(seed))
	}

	added, err = c.Seed(seed)
	if err != nil {
		t.Fatalf("Seed() again failed: %v", err)
	}
	if added != 0 {
		t.Errorf("Seed() again added %d, want 0", added)
	}
}

func TestMigrate_Legacy(t *testing.T) {
	db := openDB(t)

	legacy := `[{"id":"old","title":"Notes.pdf","uploadDate":"2025-01-02T03:04:05Z","status":"synced","type":"pdf","pageCount":7,"fileUri":"file:///notes.pdf","fileSize":1024}]`
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("documents:v1"), []byte(legacy))
	})
	if err != nil {
		t.Fatalf("seed legacy key failed: %v", err)
	}

	c := newCatalog(t, db)

	docs, err := c.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	want := []catalog.Document{{
		ID:         "old",
		Title:      "Notes.pdf",
		UploadDate: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:     catalog.StatusSynced,
		Type:       "pdf",
		PageCount:  7,
		FileURI:    "file:///notes.pdf",
		FileSize:   1024,
		MIMEType:   "application/pdf",
	}}
	if diff := cmp.Diff(want, docs); diff != "" {
		t.Errorf("migrated documents mismatch (-want +got):\n%s", diff)
	}

	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("documents:v1"))
		return err
	})
	if !errors.Is(err, badger.ErrKeyNotFound) {
		t.Errorf("legacy key still present: %v", err)
	}
}

func TestMigrate_CurrentWins(t *testing.T) {
	db := openDB(t)
	c := newCatalog(t, db)

	if err := c.Save(sample("new", "New.pdf", 5)); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("documents:v1"), []byte(`[{"id":"old","title":"Old.pdf"}]`))
	})
	if err != nil {
		t.Fatalf("seed legacy key failed: %v", err)
	}

	docs, err := newCatalog(t, db).List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "new" {
		t.Errorf("List() = %+v, want only the current document", docs)
	}
}

func TestConcurrentSaves(t *testing.T) {
	c := newCatalog(t, openDB(t))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Save(sample(fmt.Sprintf("d%d", i), "f.pdf", int64(i))); err != nil {
				t.Errorf("Save() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	docs, err := c.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(docs) != 20 {
		t.Errorf("List() returned %d documents, want 20", len(docs))
	}
}

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		stage tracking.Stage
		want  catalog.Status
	}{
		{tracking.StageCompleted, catalog.StatusSynced},
		{tracking.StageFailed, catalog.StatusError},
		{tracking.StageProcessing, catalog.StatusProcessing},
		{tracking.StageUploaded, catalog.StatusProcessing},
	}

	for _, tt := range tests {
		if got := catalog.ProjectStatus(tt.stage); got != tt.want {
			t.Errorf("ProjectStatus(%s) = %s, want %s", tt.stage, got, tt.want)
		}
	}
}

func TestOpen_InMemory(t *testing.T) {
	c, err := catalog.Open("", testLogger())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer c.Close()

	docs, err := c.List()
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("List() = %d documents, want 0", len(docs))
	}
}
