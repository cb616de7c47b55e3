// Package filer is an interface used in the rollerr subpackages.
// You may override this to gain more control of file operations in your app.
package filer

//go:generate mockgen -destination=../mocks/filer.go -package=mocks golift.io/rollerr/filer Filer
//go:generate mockgen -destination=../mocks/fileinfo.go -package=mocks os FileInfo

import (
	"os"
	"path/filepath"
	"strings"
)

// Filer is used to override file-managing procedures.
type Filer interface {
	Remove(fileName string) error
	Rename(fileName, newPath string) error
	Glob(pattern string) ([]string, error)
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(fileName string) (os.FileInfo, error)
}

// Default returns a Filer interface that works, using default procedures.
func Default() Filer {
	return &File{}
}

// File can be embedded in a custom type to provide the missing methods for the Filer interface.
type File struct{}

// Remove provides os.Remove.
func (f *File) Remove(fileName string) error {
	return os.Remove(fileName)
}

// Rename provides os.Rename.
func (f *File) Rename(fileName, newPath string) error {
	return os.Rename(fileName, newPath)
}

// Glob provides filepath.Glob.
func (f *File) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

// MkdirAll provides os.MkdirAll.
func (f *File) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// OpenFile provides os.OpenFile.
func (f *File) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat provides os.Stat.
func (f *File) Stat(fileName string) (os.FileInfo, error) {
	return os.Stat(fileName)
}

// Split breaks a log file path into the directory, the base name without its
// extension, and the extension without its dot. These are the pieces backup
// file names are built from: stem + "." + ext reconstructs the base name
// whenever ext is non-empty. Names without an extension - dotfiles included -
// return an empty ext and the whole base name as the stem.
// Split panics when fileName is empty; the caller owns validation.
func Split(fileName string) (dir, stem, ext string) {
	if fileName == "" {
		panic("filer: Split called with an empty file name")
	}

	base := filepath.Base(fileName)

	ext = filepath.Ext(base)
	if ext == base {
		ext = "" // dotfiles have no extension.
	}

	stem = strings.TrimSuffix(base, ext)

	return filepath.Dir(fileName), stem, strings.TrimPrefix(ext, ".")
}
