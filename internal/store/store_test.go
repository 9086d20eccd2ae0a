package store

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFileName(t *testing.T) {
	if got := FileName(day(2023, 9, 7)); got != "dsos_07.09.2023.json" {
		t.Errorf("FileName = %q", got)
	}
}

func TestCreateAndLoad(t *testing.T) {
	s := New(t.TempDir(), testLogger)
	d := day(2023, 9, 17)

	if _, err := s.Load(d); !errors.Is(err, ErrNotExist) {
		t.Fatalf("Load before Create: err = %v, want ErrNotExist", err)
	}
	if _, err := os.Stat(s.Path(d)); !os.IsNotExist(err) {
		t.Fatalf("file present before Create: %v", err)
	}

	if err := s.Create(d, []byte(`{"M31":{}}`)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := s.Load(d)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != `{"M31":{}}` {
		t.Errorf("Load = %s", got)
	}

	// Write-once: a second Create leaves the first content in place.
	if err := s.Create(d, []byte(`{}`)); !errors.Is(err, ErrExists) {
		t.Fatalf("second Create: err = %v, want ErrExists", err)
	}
	got, _ = s.Load(d)
	if string(got) != `{"M31":{}}` {
		t.Errorf("content replaced: %s", got)
	}

	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 1 {
		t.Errorf("found %d entries, want only the record file", len(entries))
	}
}

func TestCreateConcurrent(t *testing.T) {
	s := New(t.TempDir(), testLogger)
	d := day(2024, 1, 1)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Create(d, []byte{byte('a' + i)})
		}(i)
	}
	wg.Wait()
	close(errs)

	var won int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrExists):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("%d writers succeeded, want exactly 1", won)
	}
}

func TestDates(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, testLogger)

	for _, d := range []time.Time{day(2023, 9, 17), day(2024, 1, 2), day(2023, 12, 31)} {
		if err := s.Create(d, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	// Noise that must be ignored.
	os.WriteFile(filepath.Join(dir, "dsos_garbage.json"), []byte("{}"), 0644)
	os.WriteFile(filepath.Join(dir, "objects.yaml"), []byte("[]"), 0644)

	dates, err := s.Dates()
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{day(2024, 1, 2), day(2023, 12, 31), day(2023, 9, 17)}
	if len(dates) != len(want) {
		t.Fatalf("Dates = %v, want %v", dates, want)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("Dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestDatesMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent"), testLogger)
	dates, err := s.Dates()
	if err != nil || len(dates) != 0 {
		t.Errorf("Dates = %v, %v; want empty, nil", dates, err)
	}
}

func TestLoadPersistenceError(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, testLogger)
	d := day(2023, 9, 17)

	// A directory where the file should be cannot be read as a file.
	if err := os.Mkdir(s.Path(d), 0755); err != nil {
		t.Fatal(err)
	}
	_, err := s.Load(d)
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("err = %v, want ErrPersistence", err)
	}
}
