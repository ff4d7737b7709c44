package storage

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"my  new   page", "my-new-page"},
		{`a<b>c:d"e|f?g*h`, "a-b-c-d-e-f-g-h"},
		{"--trim--", "trim"},
		{"tab\there", "tab-here"},
		{"???", ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateName(t *testing.T) {
	s := tempPages(t)
	writeRaw(t, s, "taken.md", "x")
	writeRaw(t, s, "taken-2.md", "x")
	writeRaw(t, s, "dir/.keep", "")

	tests := []struct {
		name            string
		parent, typ, in string
		valid           bool
		suggested       string
		wantMessage     bool
	}{
		{"fresh file", "", "file", "fresh.md", true, "", false},
		{"extension added", "", "file", "fresh", true, "fresh.md", false},
		{"sanitized", "", "file", "my page", true, "my-page.md", false},
		{"collision", "", "file", "taken", false, "taken-3.md", true},
		{"folder collision", "", "folder", "dir", false, "dir-2", true},
		{"folder strips extension", "", "directory", "notes.md", true, "notes", false},
		{"separator", "", "file", "a/b", false, "", true},
		{"empty name", "", "file", " ", false, "", true},
		{"empty type", "", "", "x", false, "", true},
		{"bad type", "", "socket", "x", false, "", true},
		{"missing parent", "nope", "file", "x", false, "", true},
		{"escaping parent", "../", "file", "x", false, "", true},
		{"nothing usable", "", "file", "???", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.ValidateName(tt.parent, tt.typ, tt.in)
			if got.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (%+v)", got.Valid, tt.valid, got)
			}
			if got.SuggestedName != tt.suggested {
				t.Errorf("suggested = %q, want %q", got.SuggestedName, tt.suggested)
			}
			if (got.Message != "") != tt.wantMessage {
				t.Errorf("message = %q", got.Message)
			}
		})
	}
}
