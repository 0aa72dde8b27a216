package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-form32")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-form32" {
			t.Errorf("expected path /tmp/test-form32, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-form32")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-form32/config.yaml"},
		{"DBPath", dir.DBPath(), "/tmp/test-form32/form32.db"},
		{"PatientsPath", dir.PatientsPath(), "/tmp/test-form32/patients"},
		{"InboxPath", dir.InboxPath(), "/tmp/test-form32/inbox"},
		{"ArchivePath", dir.ArchivePath(), "/tmp/test-form32/archive"},
		{"FailedPath", dir.FailedPath(), "/tmp/test-form32/failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	dir, err := New(filepath.Join(t.TempDir(), "form32-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Error("directory should not exist before EnsureExists")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	for _, p := range []string{dir.PatientsPath(), dir.InboxPath(), dir.ArchivePath(), dir.FailedPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should exist after EnsureExists: %v", p, err)
		}
	}
	if dir.ConfigExists() {
		t.Error("config should not exist yet")
	}
	// Idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists failed: %v", err)
	}
}

func TestFolderDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"01/23/2024", "1.23.24"},
		{"1/5/2024", "1.5.24"},
		{"2024-11-02", "11.2.24"},
		{"25/12/2023", "12.25.23"},
		{" 03/04/2009 ", "3.4.09"},
		{"", NoDate},
		{"next tuesday", NoDate},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := FolderDate(tt.in); got != tt.want {
				t.Errorf("FolderDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestISODate(t *testing.T) {
	if got := ISODate("01/23/2024"); got != "2024-01-23" {
		t.Errorf("ISODate = %q", got)
	}
	if got := ISODate("garbage"); got != "" {
		t.Errorf("ISODate(garbage) = %q, want empty", got)
	}
}

func TestPatientDirName(t *testing.T) {
	tests := []struct {
		name, patient, city, date string
		want                      string
	}{
		{"full", "JANE  Q DOE", "Austin", "01/23/2024", "JANE_Q_DOE_Austin_1.23.24"},
		{"missing parts", "", "", "", "Patient_City_NO_DATE"},
		{"separators dropped", "A/B", "San Antonio", "2024-02-03", "A_B_San Antonio_2.3.24"},
		{"dot dot", "..", "Waco", "02/03/2024", "Patient_Waco_2.3.24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PatientDirName(tt.patient, tt.city, tt.date); got != tt.want {
				t.Errorf("PatientDirName() = %q, want %q", got, tt.want)
			}
		})
	}
	if got := PatientDir("/out", "JANE DOE", "Austin", "01/23/2024"); got != "/out/JANE_DOE_Austin_1.23.24" {
		t.Errorf("PatientDir() = %q", got)
	}
}

func TestSourceCopyName(t *testing.T) {
	if got := SourceCopyName("JANE DOE"); got != "FORM32 JANE DOE.pdf" {
		t.Errorf("SourceCopyName = %q", got)
	}
	if got := SourceCopyName(""); got != "FORM32 UNKNOWN.pdf" {
		t.Errorf("SourceCopyName(empty) = %q", got)
	}
}
