package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"refreshc/internal/trace"
)

type traceFileWriter struct {
	enabled  bool
	path     string
	backends string
}

// newTraceWriter reserves the trace destination by writing an empty trace,
// so even an aborted run leaves a valid document behind.
func newTraceWriter(path, backends string) (*traceFileWriter, error) {
	if path == "" {
		return &traceFileWriter{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	w := &traceFileWriter{enabled: true, path: path, backends: backends}
	if _, err := w.write(trace.ExecutionTrace{Backends: backends}); err != nil {
		return nil, err
	}
	return w, nil
}

// Finalize replaces the trace with everything rec collected and returns
// the digest of the written bytes. A disabled writer returns "".
func (w *traceFileWriter) Finalize(rec *trace.Recorder) (string, error) {
	if w == nil || !w.enabled {
		return "", nil
	}
	return w.write(rec.Trace(w.backends))
}

func (w *traceFileWriter) write(t trace.ExecutionTrace) (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}
	if err := writeFileAtomic(w.path, b, 0o644); err != nil {
		return "", fmt.Errorf("write trace %s: %w", w.path, err)
	}
	return trace.Digest(b), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
