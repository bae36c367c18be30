package compositor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if err := s.validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if s.DefaultTextSize != 16 {
		t.Errorf("DefaultTextSize = %v, want 16", s.DefaultTextSize)
	}
	if s.BlurPasses != 6 {
		t.Errorf("BlurPasses = %v, want 6", s.BlurPasses)
	}
}

func TestParseSettings(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Settings
		wantErr string
	}{
		{
			name: "empty keeps defaults",
			yaml: "",
			want: DefaultSettings(),
		},
		{
			name: "partial override",
			yaml: "blur_passes: 4\npresent_mode: immediate\n",
			want: Settings{
				DefaultTextSize: 16,
				Antialiasing:    true,
				BlurPasses:      4,
				PresentMode:     "immediate",
			},
		},
		{
			name: "full override",
			yaml: "default_text_size: 14\nantialiasing: false\nblur_passes: 2\npresent_mode: vsync\n",
			want: Settings{
				DefaultTextSize: 14,
				Antialiasing:    false,
				BlurPasses:      2,
				PresentMode:     "vsync",
			},
		},
		{
			name:    "odd blur passes",
			yaml:    "blur_passes: 3\n",
			wantErr: "blur_passes",
		},
		{
			name:    "too few blur passes",
			yaml:    "blur_passes: 0\n",
			wantErr: "blur_passes",
		},
		{
			name:    "bad text size",
			yaml:    "default_text_size: -4\n",
			wantErr: "default_text_size",
		},
		{
			name:    "unknown present mode",
			yaml:    "present_mode: mailbox\n",
			wantErr: "present_mode",
		},
		{
			name:    "malformed yaml",
			yaml:    "blur_passes: [\n",
			wantErr: "parsing settings",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSettings([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("want error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSettings: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSettings = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compositor.yaml")
	if err := os.WriteFile(path, []byte("blur_passes: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.BlurPasses != 8 {
		t.Errorf("BlurPasses = %d, want 8", s.BlurPasses)
	}

	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
