package token

import "testing"

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  TokenType
	}{
		{"module", MODULE},
		{"class", CLASS},
		{"let", LET},
		{"function", FUNCTION},
		{"constant", CONSTANT},
		{"mutable", MUTABLE},
		{"deref", IDENT}, // contextual, not a reserved word
		{"self", IDENT},  // ordinary identifier; meaning is positional
		{"Dog", IDENT},
	}
	for _, tt := range tests {
		if got := LookupIdent(tt.ident); got != tt.want {
			t.Errorf("LookupIdent(%q) = %q, want %q", tt.ident, got, tt.want)
		}
	}
}
