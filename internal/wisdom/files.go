package wisdom

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rcliao/munger/internal/model"
)

const (
	RecordsFile    = "wisdom_store.json"
	EmbeddingsFile = "wisdom_embeddings.npy"
)

// fileSet is the on-disk pair backing a store: a JSON array of records and
// an .npy matrix whose row N belongs to record N.
type fileSet struct {
	dir    string
	atomic bool
}

func (f fileSet) recordsPath() string    { return filepath.Join(f.dir, RecordsFile) }
func (f fileSet) embeddingsPath() string { return filepath.Join(f.dir, EmbeddingsFile) }

// load reads both files. Missing files mean an empty store.
func (f fileSet) load() ([]model.WisdomRecord, Matrix, error) {
	var records []model.WisdomRecord
	data, err := os.ReadFile(f.recordsPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, Matrix{}, fmt.Errorf("read %s: %w", f.recordsPath(), err)
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, Matrix{}, &CorruptStoreError{Path: f.recordsPath(), Err: err}
		}
	}
	for i, r := range records {
		if !r.Category.Valid() {
			return nil, Matrix{}, &CorruptStoreError{
				Path: f.recordsPath(),
				Err:  fmt.Errorf("record %d: %w %q", i, ErrInvalidCategory, r.Category),
			}
		}
	}

	var m Matrix
	file, err := os.Open(f.embeddingsPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, Matrix{}, fmt.Errorf("open %s: %w", f.embeddingsPath(), err)
	default:
		size := int64(-1)
		if info, statErr := file.Stat(); statErr == nil {
			size = info.Size()
		}
		m, err = readNPY(file, size)
		file.Close()
		if err != nil {
			return nil, Matrix{}, &CorruptStoreError{Path: f.embeddingsPath(), Err: err}
		}
	}

	if len(records) != len(m.Rows) {
		return nil, Matrix{}, &CorruptStoreError{
			Path: f.dir,
			Err:  fmt.Errorf("%d records but %d embedding rows", len(records), len(m.Rows)),
		}
	}
	return records, m, nil
}

// save overwrites both files with the given state.
func (f fileSet) save(records []model.WisdomRecord, m Matrix) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create wisdom dir: %w", err)
	}
	if records == nil {
		records = []model.WisdomRecord{}
	}

	writeRecords := func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	writeMatrix := func(w io.Writer) error { return writeNPY(w, m) }

	if err := f.write(f.recordsPath(), writeRecords); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := f.write(f.embeddingsPath(), writeMatrix); err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}
	return nil
}

// remove deletes both files. Missing files are fine.
func (f fileSet) remove() error {
	for _, p := range []string{f.recordsPath(), f.embeddingsPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func (f fileSet) write(path string, writeFunc func(io.Writer) error) error {
	if f.atomic {
		return writeAtomic(path, writeFunc)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(file)
	if err := writeFunc(bw); err != nil {
		file.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeAtomic writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeAtomic(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0o644)

	bw := bufio.NewWriterSize(tmp, 64*1024)
	if err := writeFunc(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// best effort: make the rename durable
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	tmpName = ""
	return nil
}
