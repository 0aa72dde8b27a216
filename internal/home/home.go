// Package home lays out the form32 working directory: config, record
// database, watch inbox and per-patient output folders.
package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultDirName is the default name for the form32 home directory.
	DefaultDirName = ".form32"

	// PatientsDirName is the default root for per-patient output folders.
	PatientsDirName = "patients"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DBFileName is the default record database file name.
	DBFileName = "form32.db"

	// NoDate replaces an exam date that cannot be parsed.
	NoDate = "NO_DATE"
)

// Dir represents the form32 home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.form32).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DBPath returns the default record database path.
func (d *Dir) DBPath() string {
	return filepath.Join(d.path, DBFileName)
}

// PatientsPath returns the default output root.
func (d *Dir) PatientsPath() string {
	return filepath.Join(d.path, PatientsDirName)
}

// InboxPath returns the watch inbox directory.
func (d *Dir) InboxPath() string {
	return filepath.Join(d.path, "inbox")
}

// ArchivePath returns where processed inbox files are moved.
func (d *Dir) ArchivePath() string {
	return filepath.Join(d.path, "archive")
}

// FailedPath returns where inbox files that failed conversion are moved.
func (d *Dir) FailedPath() string {
	return filepath.Join(d.path, "failed")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.PatientsPath(), d.InboxPath(), d.ArchivePath(), d.FailedPath()} {
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

// PatientDirName builds the NAME_CITY_M.D.YY folder name. Spaces in the
// name become underscores; path separators are dropped from every part.
// Missing parts fall back to "Patient", "City" and NO_DATE.
func PatientDirName(patientName, city, examDate string) string {
	name := safePart(patientName, "Patient")
	name = strings.Join(strings.Fields(name), "_")
	c := safePart(city, "City")
	return fmt.Sprintf("%s_%s_%s", name, c, FolderDate(examDate))
}

// PatientDir returns the output folder for a patient under root.
func PatientDir(root, patientName, city, examDate string) string {
	return filepath.Join(root, PatientDirName(patientName, city, examDate))
}

// SourceCopyName is the file name the source PDF is copied to.
func SourceCopyName(patientName string) string {
	return fmt.Sprintf("FORM32 %s.pdf", safePart(patientName, "UNKNOWN"))
}

var separators = strings.NewReplacer("/", "_", "\\", "_")

func safePart(s, fallback string) string {
	s = strings.TrimSpace(separators.Replace(s))
	if s == "" || s == "." || s == ".." {
		return fallback
	}
	return s
}

var dateLayouts = []string{"01/02/2006", "1/2/2006", "2006-01-02", "02/01/2006"}

// ParseDate parses an exam date written as MM/DD/YYYY or YYYY-MM-DD.
// Day-first dates are tried last, so an ambiguous date reads month first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FolderDate formats a date as M.D.YY, or NO_DATE when it cannot be parsed.
func FolderDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return NoDate
	}
	return fmt.Sprintf("%d.%d.%02d", int(t.Month()), t.Day(), t.Year()%100)
}

// ISODate formats a date as YYYY-MM-DD, or "" when it cannot be parsed.
func ISODate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
