package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Llamada   con\tcliente ", "Llamada con cliente"},
		{"<b>Enviar</b> propuesta", "Enviar propuesta"},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Hola", "alert(1)Hola"},
		{"línea uno\nlínea  dos", "línea uno\nlínea dos"},
		{"Q&amp;A", "Q&A"},
	}
	for _, tc := range tests {
		if got := Text(tc.in); got != tc.want {
			t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTextPtr(t *testing.T) {
	if TextPtr(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
	in := " <i>x</i> "
	if got := TextPtr(&in); got == nil || *got != "x" {
		t.Fatalf("unexpected result %v", got)
	}
}
