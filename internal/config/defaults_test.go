package config

import (
	"errors"
	"testing"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	requiredKeys := []string{
		"defaults.llm_provider",
		"defaults.ocr_provider",
		"pipeline.assist_mode",
		"pipeline.render_dpi",
		"examiner.phone",
		"store.path",
	}

	keys := make(map[string]bool)
	for _, e := range entries {
		if err := ValidateKey(e.Key); err != nil {
			t.Errorf("entry key %q invalid: %v", e.Key, err)
		}
		if keys[e.Key] {
			t.Errorf("duplicate entry %q", e.Key)
		}
		if e.Description == "" {
			t.Errorf("entry %q has no description", e.Key)
		}
		keys[e.Key] = true
	}

	for _, key := range requiredKeys {
		if !keys[key] {
			t.Errorf("DefaultEntries() missing required key: %s", key)
		}
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry, err := GetDefault("examiner.license_type")
		if err != nil {
			t.Fatal(err)
		}
		if entry.Value != "D.C." {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, "D.C.")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		_, err := GetDefault("does.not.exist")
		if !errors.Is(err, ErrNoDefault) {
			t.Errorf("GetDefault() err = %v, want ErrNoDefault", err)
		}
	})

	t.Run("invalid_key", func(t *testing.T) {
		_, err := GetDefault("bad key")
		if !errors.Is(err, ErrInvalidKey) {
			t.Errorf("GetDefault() err = %v, want ErrInvalidKey", err)
		}
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"pipeline.render_dpi", false},
		{"llm_providers.open-router.model", false},
		{"", true},
		{".leading", true},
		{"trailing.", true},
		{"has space", true},
		{"has/slash", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
