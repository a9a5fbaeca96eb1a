package sanitize

import "testing"

func TestFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Ubuntu22", "Ubuntu22"},
		{"my file.iso", "my.file.iso"},
		{"Café Niño", "Caf..Ni.o"},
		{"a/b\\c", "a.b.c"},
		{"Łódź", "..d."},
	}
	for _, tt := range tests {
		if got := Filename(tt.in); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizer_Table(t *testing.T) {
	s := New(map[string]string{"é": "e", " ": "_", "ab": "ignored"})
	if got := s.Filename("café au lait"); got != "cafe_au_lait" {
		t.Errorf("got %q", got)
	}
	if got := s.Filename("ab-c"); got != "ab.c" {
		t.Errorf("multi-character keys must be ignored, got %q", got)
	}
}
