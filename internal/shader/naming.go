package shader

import (
	"path/filepath"
	"strings"
)

// ContainerSuffix is appended to the source name to form the output name.
const ContainerSuffix = ".refresh"

// SplitName splits the base of path into its stem and final extension:
// "dir/triangle.vert" yields ("triangle", ".vert").
func SplitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// ContainerFileName returns the output file name for a source path,
// keeping the stage extension for readability: "triangle.vert.refresh".
func ContainerFileName(srcPath string) string {
	stem, ext := SplitName(srcPath)
	return stem + ext + ContainerSuffix
}
