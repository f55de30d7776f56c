package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"refreshc/internal/shader"
)

// Record names an intermediate artifact on disk to embed under a backend
// tag. Payloads are streamed from Path; they are not held in memory.
type Record struct {
	Backend shader.BackendTarget
	Path    string
}

// WriteContainer writes a container for stage with records, in the order
// given, to outputPath.
//
// The file is assembled under a temporary name in the destination
// directory and renamed into place only once every payload has been copied,
// so a failure never leaves a partial container at outputPath. The temporary
// file is removed on every error path.
func WriteContainer(stage shader.StageKind, records []Record, outputPath string) error {
	if !stage.Valid() {
		return fmt.Errorf("write container: invalid stage %s", stage)
	}
	if len(records) == 0 {
		return fmt.Errorf("write container: %w", ErrNoRecords)
	}
	backends := make([]shader.BackendTarget, len(records))
	for i, r := range records {
		if !r.Backend.Valid() {
			return fmt.Errorf("write container: invalid backend %s", r.Backend)
		}
		backends[i] = r.Backend
	}
	if err := checkOrder(backends); err != nil {
		return fmt.Errorf("write container: %w", err)
	}

	dir := filepath.Dir(outputPath)
	base := filepath.Base(outputPath)
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := writeHeader(w, stage); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	for _, r := range records {
		if err := writeRecord(w, r); err != nil {
			return fmt.Errorf("write %s: %w", outputPath, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	_ = tmp.Sync() // best-effort durability
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("rename into %s: %w", outputPath, err)
	}
	committed = true
	return nil
}

func writeHeader(w io.Writer, stage shader.StageKind) error {
	var hdr [headerSize]byte
	copy(hdr[:4], Magic)
	binary.LittleEndian.PutUint32(hdr[4:], stage.Tag())
	_, err := w.Write(hdr[:])
	return err
}

func writeRecord(w io.Writer, r Record) error {
	f, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("open %s artifact: %w", r.Backend, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s artifact: %w", r.Backend, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s artifact %s is not a regular file", r.Backend, r.Path)
	}
	size := info.Size()
	if size > maxPayload {
		return fmt.Errorf("%s artifact %s is %d bytes, exceeds container limit", r.Backend, r.Path, size)
	}

	var hdr [recordHeaderSize]byte
	hdr[0] = r.Backend.Tag()
	binary.LittleEndian.PutUint32(hdr[1:], uint32(size))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	// CopyN fails with io.EOF if the file shrank after Stat, keeping the
	// length field honest.
	if _, err := io.CopyN(w, f, size); err != nil {
		return fmt.Errorf("copy %s artifact: %w", r.Backend, err)
	}
	return nil
}
