package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the problembook home directory.
	DefaultDirName = ".problembook"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the default SQLite database name inside home.
	DatabaseFileName = "problembook.db"

	DefaultResourcesDir = "./resources"
)

// Layout names the data directories. Empty fields fall back to defaults
// under ResourcesDir.
type Layout struct {
	ResourcesDir string
	PreviewDir   string
	OCRCacheDir  string
}

// Dir represents the problembook home directory and the resource layout
// the pipelines read page images from.
type Dir struct {
	path      string
	resources string
	preview   string
	ocrCache  string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.problembook).
func New(path string, layout Layout) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	if layout.ResourcesDir == "" {
		layout.ResourcesDir = DefaultResourcesDir
	}
	if layout.PreviewDir == "" {
		layout.PreviewDir = filepath.Join(layout.ResourcesDir, ".preview")
	}
	if layout.OCRCacheDir == "" {
		layout.OCRCacheDir = filepath.Join(layout.ResourcesDir, ".ocr_cache")
	}

	return &Dir{
		path:      path,
		resources: layout.ResourcesDir,
		preview:   layout.PreviewDir,
		ocrCache:  layout.OCRCacheDir,
	}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the default SQLite database location.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

func (d *Dir) ResourcesDir() string { return d.resources }
func (d *Dir) PreviewDir() string   { return d.preview }
func (d *Dir) OCRCacheDir() string  { return d.ocrCache }

// BookPDFPath returns where an ingested book's PDF is kept.
func (d *Dir) BookPDFPath(bookID string) string {
	return filepath.Join(d.resources, bookID+".pdf")
}

// PreviewImagePath returns the rendered image of a page, 1-indexed:
// {preview_dir}/{book}.pdf_{page}.png.
func (d *Dir) PreviewImagePath(bookID string, pageNum int) string {
	return filepath.Join(d.preview, fmt.Sprintf("%s.pdf_%d.png", bookID, pageNum))
}

// EnsureExists creates the home, preview and OCR cache directories.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.path, d.preview, d.ocrCache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
