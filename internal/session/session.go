// Package session implements the breakpoint-session save/restore feature:
// persisting every currently installed breakpoint so a later worker
// instance can reapply the same set against the same (or a recompiled)
// debuggee, rather than requiring the front-end to replay every break
// command by hand.
package session

import (
	"fmt"

	"github.com/Manu343726/npldbgworker/internal/engine"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Entry is one saved breakpoint. For a scripted debuggee it carries the
// decoded (File, Line) pair so the fake address can be re-derived against a
// codec with a different allocation history; for a native debuggee it
// carries the raw address directly, since there is no symbolic form here.
type Entry struct {
	File    string `yaml:"file,omitempty"`
	Line    int    `yaml:"line,omitempty"`
	Address uint64 `yaml:"address,omitempty"`
}

// Document is the on-disk session format.
type Document struct {
	Kind        string  `yaml:"kind"`
	Breakpoints []Entry `yaml:"breakpoints"`
}

// restoreClient is the fixed client token session restores install under;
// a caller that wants ownership of the restored breakpoints should Set
// again under its own token once the session has bound them.
const restoreClient engine.ClientToken = "session-restore"

// Save captures every breakpoint currently installed on p into a Document.
func Save(p *engine.Process) Document {
	doc := Document{Kind: p.Kind.String()}
	for _, addr := range p.Breakpoints.All() {
		if p.Kind == engine.Scripted {
			path, line := p.Codec.Decode(addr)
			doc.Breakpoints = append(doc.Breakpoints, Entry{File: path, Line: line})
			continue
		}
		doc.Breakpoints = append(doc.Breakpoints, Entry{Address: addr})
	}
	return doc
}

// WriteFile marshals doc as YAML to path on fs.
func WriteFile(fs afero.Fs, path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

// ReadFile loads a Document previously written by WriteFile.
func ReadFile(fs afero.Fs, path string) (Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Document{}, fmt.Errorf("session: read %q: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("session: unmarshal: %w", err)
	}
	return doc, nil
}

// Restore re-applies every breakpoint in doc against p, encoding File/Line
// pairs through p's own codec for scripted processes (so the ids match this
// process's allocation, not the one that produced the saved session) and
// using the address directly for native ones. A doc whose Kind does not
// match p's kind is rejected: a session saved against one debuggee kind is
// not meaningful replayed against the other.
func Restore(p *engine.Process, doc Document) error {
	if doc.Kind != p.Kind.String() {
		return fmt.Errorf("session: document is for kind %q, process is %q", doc.Kind, p.Kind)
	}
	for _, entry := range doc.Breakpoints {
		addr := entry.Address
		if p.Kind == engine.Scripted {
			addr = p.Codec.Encode(entry.File, entry.Line)
		}
		if err := p.Breakpoints.Set(addr, restoreClient); err != nil {
			return fmt.Errorf("session: restore breakpoint: %w", err)
		}
	}
	return nil
}
