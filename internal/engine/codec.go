package engine

import "strings"

// FakeAddressCodec manufactures a total, reversible address encoding for a
// scripted debuggee, which has no native addresses of its own. It is
// scoped per-Process (not package-global) so two concurrent debuggees never
// collide over file ids.
type FakeAddressCodec struct {
	workingDir string // lower-case, forward-slashed, trailing-slash-terminated

	pathToID map[string]uint64
	idToPath map[uint64]string
	nextID   uint64
}

// NewFakeAddressCodec returns a codec with id 0 reserved for the empty path.
func NewFakeAddressCodec() *FakeAddressCodec {
	c := &FakeAddressCodec{
		pathToID: make(map[string]uint64),
		idToPath: make(map[uint64]string),
		nextID:   1,
	}
	c.pathToID[""] = 0
	c.idToPath[0] = ""
	return c
}

// SetWorkingDir records the working-directory prefix used to compute the
// relative path variant. The first call with a non-empty dir wins (the
// CLI's --working-dir, or else the scripted runtime's first "Attached"
// handshake), and the value is immutable thereafter; later calls are no-ops.
func (c *FakeAddressCodec) SetWorkingDir(dir string) {
	if c.workingDir != "" || dir == "" {
		return
	}
	c.workingDir = normalizeSlashes(dir)
	if !strings.HasSuffix(c.workingDir, "/") {
		c.workingDir += "/"
	}
}

func normalizeSlashes(p string) string {
	p = strings.ToLower(p)
	return strings.ReplaceAll(p, "\\", "/")
}

// relativeVariant computes the working-directory-relative form of a
// normalized path: strip the working-directory prefix if present at
// position 0, else start the relative form at the first occurrence of
// "script/", "source/", or "src/", checked in that order.
func (c *FakeAddressCodec) relativeVariant(normalized string) string {
	if c.workingDir != "" && strings.HasPrefix(normalized, c.workingDir) {
		return strings.TrimPrefix(normalized, c.workingDir)
	}
	for _, marker := range []string{"script/", "source/", "src/"} {
		if idx := strings.Index(normalized, marker); idx >= 0 {
			return normalized[idx:]
		}
	}
	return normalized
}

// idFor returns the id for path, allocating one on first sight. Both the
// full normalized path and its relative variant are registered against the
// same id.
func (c *FakeAddressCodec) idFor(path string) uint64 {
	if path == "" {
		return 0
	}
	normalized := normalizeSlashes(path)
	if id, ok := c.pathToID[normalized]; ok {
		return id
	}
	relative := c.relativeVariant(normalized)
	if id, ok := c.pathToID[relative]; ok {
		c.pathToID[normalized] = id
		return id
	}

	id := c.nextID
	c.nextID++
	c.pathToID[normalized] = id
	c.pathToID[relative] = id
	c.idToPath[id] = normalized
	return id
}

// Encode computes the fake address for (path, line): addr = line*K + id.
func (c *FakeAddressCodec) Encode(path string, line int) uint64 {
	id := c.idFor(path)
	return uint64(line)*FakeAddressDivisor + id
}

// Decode reverses Encode: returns the canonical (normalized, full) path
// registered for the address's file id, and the line number.
func (c *FakeAddressCodec) Decode(addr uint64) (path string, line int) {
	id := addr % FakeAddressDivisor
	line = int(addr / FakeAddressDivisor)
	return c.idToPath[id], line
}
