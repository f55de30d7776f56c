package shader

import (
	"fmt"
	"path/filepath"
)

// StageKind is the pipeline role of a shader source file.
type StageKind uint32

const (
	StageVertex   StageKind = 0
	StageFragment StageKind = 1
	StageCompute  StageKind = 2
)

var stageByExt = map[string]StageKind{
	".vert": StageVertex,
	".frag": StageFragment,
	".comp": StageCompute,
}

// Tag returns the little-endian wire value written after the container magic.
func (s StageKind) Tag() uint32 { return uint32(s) }

// Valid reports whether s is one of the known stages.
func (s StageKind) Valid() bool {
	switch s {
	case StageVertex, StageFragment, StageCompute:
		return true
	default:
		return false
	}
}

func (s StageKind) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint32(s))
	}
}

// Extension returns the source extension that selects s (".vert", ...).
func (s StageKind) Extension() string {
	for ext, k := range stageByExt {
		if k == s {
			return ext
		}
	}
	return ""
}

// StageFromTag maps a wire tag back to a StageKind.
func StageFromTag(tag uint32) (StageKind, error) {
	s := StageKind(tag)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown stage tag %d", tag)
	}
	return s, nil
}

// DetectStage derives the stage from the final extension of path.
//
// Only the base name is considered. Extensions are matched exactly, so
// "a.VERT" and "a" (no extension) are both rejected with an
// *UnsupportedStageError.
func DetectStage(path string) (StageKind, error) {
	ext := filepath.Ext(filepath.Base(path))
	s, ok := stageByExt[ext]
	if !ok {
		return 0, &UnsupportedStageError{Path: path, Ext: ext}
	}
	return s, nil
}
