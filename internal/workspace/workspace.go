// Package workspace owns the scratch directory holding intermediate
// artifacts (SPIR-V, HLSL) while a run is in progress.
//
// Layout:
//
//	<workdir>/temp/
//	  triangle.vert/triangle.spv
//	  triangle.vert/triangle.hlsl
//	  triangle.frag/triangle.spv
//
// Each source file gets its own subdirectory named after its base name, so
// sources sharing a stem do not overwrite each other's intermediates. The
// root is created lazily on first use, shared by every file of the run, and
// removed once by Release.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"refreshc/internal/shader"
)

// DirName is the scratch directory created under the working directory.
const DirName = "temp"

// DefaultRoot returns <workDir>/temp.
func DefaultRoot(workDir string) string {
	return filepath.Join(workDir, DirName)
}

// Manager owns one scratch root for the lifetime of a run.
type Manager struct {
	root string

	mu       sync.Mutex
	acquired bool
	released bool
}

// New returns a manager for root. Nothing is created until Acquire.
func New(root string) *Manager {
	return &Manager{root: filepath.Clean(root)}
}

// Root returns the scratch directory path.
func (m *Manager) Root() string { return m.root }

// Acquire creates the scratch root if it does not exist. It is idempotent:
// every call in a run yields a handle on the same directory.
func (m *Manager) Acquire() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return nil, errors.New("workspace already released")
	}
	if err := checkRoot(m.root); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	m.acquired = true
	return &Handle{root: m.root}, nil
}

// Acquired reports whether any file has used the workspace.
func (m *Manager) Acquired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Release removes the scratch root recursively unless preserve is set.
// Only the first call has an effect; later calls return nil.
func (m *Manager) Release(preserve bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return nil
	}
	m.released = true
	if preserve {
		return nil
	}
	if err := checkRoot(m.root); err != nil {
		return err
	}
	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("remove temp dir: %w", err)
	}
	return nil
}

func checkRoot(root string) error {
	if root == "" || root == "." || root == string(filepath.Separator) {
		return fmt.Errorf("refusing to use %q as temp dir", root)
	}
	return nil
}

// Handle gives access to per-file artifact locations inside an acquired
// workspace.
type Handle struct {
	root string
}

// Root returns the scratch directory path.
func (h *Handle) Root() string { return h.root }

// Artifacts are the intermediate paths for one source file.
type Artifacts struct {
	Dir      string
	Bytecode string
	Native   string
}

// Artifacts creates the per-file subdirectory for srcPath and returns the
// paths the compilers should write to.
func (h *Handle) Artifacts(srcPath string) (Artifacts, error) {
	stem, ext := shader.SplitName(srcPath)
	if stem == "" && ext == "" {
		return Artifacts{}, fmt.Errorf("no file name in %q", srcPath)
	}
	dir := filepath.Join(h.root, stem+ext)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create temp dir for %s: %w", srcPath, err)
	}
	return Artifacts{
		Dir:      dir,
		Bytecode: filepath.Join(dir, stem+".spv"),
		Native:   filepath.Join(dir, stem+".hlsl"),
	}, nil
}
