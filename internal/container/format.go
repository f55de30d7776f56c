// Package container reads and writes the RFSH shader container consumed by
// the graphics runtime.
//
// Format (all integers little-endian):
//
//	offset 0: 4 bytes  magic "RFSH"
//	offset 4: 4 bytes  stage tag (0=vertex, 1=fragment, 2=compute)
//	then, per backend in canonical order (spirv=0 before hlsl=1):
//	  1 byte   backend tag
//	  4 bytes  payload length N (unsigned)
//	  N bytes  payload
//
// There is no version field, checksum or trailer. The file ends after the
// last payload.
package container

import (
	"errors"
	"fmt"
	"math"

	"refreshc/internal/shader"
)

// Magic identifies a container file.
const Magic = "RFSH"

// Suffix is the container file extension.
const Suffix = shader.ContainerSuffix

const (
	headerSize       = 8
	recordHeaderSize = 5
	maxPayload       = math.MaxUint32
)

var (
	ErrBadMagic  = errors.New("not a shader container: bad magic")
	ErrTruncated = errors.New("truncated shader container")
	ErrNoRecords = errors.New("container has no backend records")
)

// OrderError reports records that are duplicated or out of canonical order.
type OrderError struct {
	Prev, Next shader.BackendTarget
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("backend %s must not follow %s", e.Next, e.Prev)
}

// checkOrder enforces strictly increasing backend tags.
func checkOrder(backends []shader.BackendTarget) error {
	for i := 1; i < len(backends); i++ {
		if backends[i] <= backends[i-1] {
			return &OrderError{Prev: backends[i-1], Next: backends[i]}
		}
	}
	return nil
}
