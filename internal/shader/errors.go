package shader

import "fmt"

// UnsupportedStageError reports a source file whose extension does not name
// a shader stage.
type UnsupportedStageError struct {
	Path string
	Ext  string
}

func (e *UnsupportedStageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: expected GLSL source file with extension '%s', '%s', or '%s'",
		e.Path, StageVertex.Extension(), StageFragment.Extension(), StageCompute.Extension())
}
