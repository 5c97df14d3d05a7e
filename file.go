package dbmigrator

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ScriptsFromDirectoryPath reads every script in dirPath whose extension is
// one of extensions. Sub-directories are not descended into. The scripts are
// returned in ascending name order.
func ScriptsFromDirectoryPath(dirPath string, extensions []string) (scripts []*Script, err error) {
	scripts = make([]*Script, 0)
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return scripts, fmt.Errorf("failed to read script directory '%s': %w", dirPath, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		script, err := ScriptFromFilePath(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return scripts, err
		}
		scripts = append(scripts, script)
	}
	SortScripts(scripts, Up)
	return scripts, nil
}

// ScriptFromFilePath creates a Script from a path on disk
func ScriptFromFilePath(filename string) (*Script, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read script from '%s': %w", filename, err)
	}
	return ParseScript(filepath.Base(filename), string(contents))
}

// File wraps the standard library io.Read and os.File.Name methods
type File interface {
	Name() string
	Read(b []byte) (n int, err error)
}

// ScriptFromFile builds a script by reading from an open File-like object.
// The script's name will be based on the file's name. The file will *not* be
// closed after being read.
func ScriptFromFile(file File) (*Script, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return ParseScript(filepath.Base(file.Name()), string(content))
}

// FSScripts receives a filesystem (such as an embed.FS) and extracts the
// scripts directly inside dir whose extension is one of extensions.
//
// Example usage:
//
//	FSScripts(embeddedFS, "migrations", Postgres.Extensions())
func FSScripts(filesystem fs.FS, dir string, extensions []string) (scripts []*Script, err error) {
	scripts = make([]*Script, 0)

	entries, err := fs.ReadDir(filesystem, dir)
	if err != nil {
		return scripts, fmt.Errorf("failed to read '%s' in fs.FS: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		data, err := fs.ReadFile(filesystem, path.Join(dir, entry.Name()))
		if err != nil {
			return scripts, err
		}
		script, err := ParseScript(entry.Name(), string(data))
		if err != nil {
			return scripts, err
		}
		scripts = append(scripts, script)
	}
	SortScripts(scripts, Up)
	return scripts, nil
}

func hasExtension(filename string, extensions []string) bool {
	ext := filepath.Ext(filename)
	for _, accepted := range extensions {
		if strings.EqualFold(ext, accepted) {
			return true
		}
	}
	return false
}
