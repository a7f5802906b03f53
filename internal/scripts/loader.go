// Package scripts runs user-provided Starlark scripts against a workspace.
//
// Scripts live as .star files in a single directory and are named after the
// file stem. Each script defines run(ctx); ctx is the only capability a script
// receives, so scripts can query sources but cannot reach the filesystem or
// network.
package scripts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Ext is the file extension of script files.
const Ext = ".star"

// EntryPoint is the function every script must define.
const EntryPoint = "run"

// ErrNotFound is returned when no script has the requested name.
var ErrNotFound = errors.New("script not found")

// Script is one script file on disk.
type Script struct {
	// Name is the file stem (e.g. "summary" for "summary.star").
	Name string
	// Path is the location of the .star file.
	Path string
}

// Loader finds, reads and writes script files in one directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Dir returns the scripts directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load lists the scripts in the directory, sorted by name.
// A missing directory holds no scripts.
func (l *Loader) Load() ([]*Script, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access scripts directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scripts path is not a directory: %s", l.dir)
	}

	files, err := filepath.Glob(filepath.Join(l.dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scripts directory: %w", err)
	}

	var out []*Script
	for _, file := range files {
		name := nameOf(file)
		if err := validateName(name); err != nil {
			return nil, &LoadError{File: file, Message: err.Error()}
		}
		out = append(out, &Script{Name: name, Path: file})
	}
	return out, nil
}

// Names returns the names of all scripts.
func (l *Loader) Names() ([]string, error) {
	scripts, err := l.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(scripts))
	for i, s := range scripts {
		names[i] = s.Name
	}
	return names, nil
}

// Find returns the script called name.
func (l *Loader) Find(name string) (*Script, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := l.pathOf(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to access script %s: %w", name, err)
	}
	return &Script{Name: name, Path: path}, nil
}

// Read returns the source of the script called name.
func (l *Loader) Read(name string) ([]byte, error) {
	s, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(s.Path) //nolint:gosec // G304: path is built from a validated name inside the scripts directory
	if err != nil {
		return nil, &LoadError{File: s.Path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return src, nil
}

// Save writes src as the script called name, replacing any existing file.
// The source must parse and define run at top level.
func (l *Loader) Save(name string, src []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	path := l.pathOf(name)
	if err := checkSource(path, src); err != nil {
		return &LoadError{File: path, Message: err.Error()}
	}
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}
	if err := os.WriteFile(path, src, 0o600); err != nil {
		return fmt.Errorf("failed to write script %s: %w", name, err)
	}
	return nil
}

// Delete removes the script called name.
func (l *Loader) Delete(name string) error {
	s, err := l.Find(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.Path); err != nil {
		return fmt.Errorf("failed to delete script %s: %w", name, err)
	}
	return nil
}

func (l *Loader) pathOf(name string) string {
	return filepath.Join(l.dir, name+Ext)
}

func nameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}

// checkSource parses src and looks for a top-level def of the entry point.
func checkSource(path string, src []byte) error {
	f, _, err := starlark.SourceProgramOptions(fileOptions, path, src, predeclared.Has)
	if err != nil {
		return err
	}
	for _, stmt := range f.Stmts {
		if def, ok := stmt.(*syntax.DefStmt); ok && def.Name.Name == EntryPoint {
			return nil
		}
	}
	return fmt.Errorf("script must define %s(ctx)", EntryPoint)
}

// validateName checks that a script name is a valid identifier.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("script name cannot be empty")
	}
	for i, r := range name {
		if i == 0 {
			if !isLetter(r) && r != '_' {
				return fmt.Errorf("script name must start with letter or underscore: %s", name)
			}
		} else if !isLetter(r) && !isDigit(r) && r != '_' {
			return fmt.Errorf("script name contains invalid character: %s", name)
		}
	}
	return nil
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// LoadError reports a script file that cannot be used.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("scripts/%s: %s", filepath.Base(e.File), e.Message)
}
