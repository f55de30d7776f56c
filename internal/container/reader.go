package container

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"refreshc/internal/shader"
)

// Payload is one decoded backend record.
type Payload struct {
	Backend shader.BackendTarget
	Data    []byte
}

// Container is a decoded container file.
type Container struct {
	Stage    shader.StageKind
	Payloads []Payload
}

// Backends lists the record tags in file order.
func (c *Container) Backends() []shader.BackendTarget {
	out := make([]shader.BackendTarget, len(c.Payloads))
	for i, p := range c.Payloads {
		out[i] = p.Backend
	}
	return out
}

// Payload returns the data stored for b.
func (c *Container) Payload(b shader.BackendTarget) ([]byte, bool) {
	for _, p := range c.Payloads {
		if p.Backend == b {
			return p.Data, true
		}
	}
	return nil, false
}

// ReadFile decodes the container at path.
func ReadFile(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Read decodes a container. Unknown stage or backend tags, out-of-order or
// duplicate records and short payloads are errors.
func Read(r io.Reader) (*Container, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if string(hdr[:4]) != Magic {
		return nil, ErrBadMagic
	}
	stage, err := shader.StageFromTag(binary.LittleEndian.Uint32(hdr[4:]))
	if err != nil {
		return nil, err
	}

	c := &Container{Stage: stage}
	var rh [recordHeaderSize]byte
	for {
		n, err := io.ReadFull(r, rh[:])
		if n == 0 && errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrTruncated
			}
			return nil, err
		}
		b, err := shader.BackendFromTag(rh[0])
		if err != nil {
			return nil, err
		}
		if k := len(c.Payloads); k > 0 && b <= c.Payloads[k-1].Backend {
			return nil, &OrderError{Prev: c.Payloads[k-1].Backend, Next: b}
		}

		size := int64(binary.LittleEndian.Uint32(rh[1:]))
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, r, size); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrTruncated
			}
			return nil, err
		}
		c.Payloads = append(c.Payloads, Payload{Backend: b, Data: buf.Bytes()})
	}
	if len(c.Payloads) == 0 {
		return nil, ErrNoRecords
	}
	return c, nil
}
