package lint

import "testing"

func TestTokenize_StripsAdjacentPunctuation(t *testing.T) {
	tokens := Tokenize(`He said "word", then left.`)

	var words []Token
	for _, tok := range tokens {
		if tok.Kind == TokenWord {
			words = append(words, tok)
		}
	}

	want := []string{"He", "said", "word", "then", "left"}
	if len(words) != len(want) {
		t.Fatalf("word tokens = %d, want %d (%v)", len(words), len(want), words)
	}
	for i, w := range want {
		if words[i].Text != w {
			t.Errorf("word[%d] = %q, want %q", i, words[i].Text, w)
		}
	}
}

func TestTokenize_Offsets(t *testing.T) {
	tokens := Tokenize("Tihs is a tset.")

	var got []Token
	for _, tok := range tokens {
		if tok.Kind == TokenWord {
			got = append(got, tok)
		}
	}

	want := []struct {
		text  string
		start int
	}{
		{"Tihs", 0},
		{"is", 5},
		{"a", 8},
		{"tset", 10},
	}
	if len(got) != len(want) {
		t.Fatalf("word tokens = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Text != w.text || got[i].Start != w.start {
			t.Errorf("word[%d] = %q@%d, want %q@%d",
				i, got[i].Text, got[i].Start, w.text, w.start)
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); got != nil {
		t.Errorf("Tokenize(\"\") = %v, want nil", got)
	}
	if got := Tokenize("   \t\n "); len(got) != 0 {
		t.Errorf("Tokenize(whitespace) = %v, want empty", got)
	}
}

func TestTokenize_RuneOffsets(t *testing.T) {
	// Multi-byte runes before the word must not skew the rune offset.
	tokens := Tokenize("héllo wörld")
	var words []Token
	for _, tok := range tokens {
		if tok.Kind == TokenWord {
			words = append(words, tok)
		}
	}
	if len(words) != 2 {
		t.Fatalf("word tokens = %d, want 2", len(words))
	}
	if words[1].Start != 6 {
		t.Errorf("second word start = %d, want 6 (rune offset)", words[1].Start)
	}
}

func TestLintable(t *testing.T) {
	tests := []struct {
		text string
		kind TokenKind
		want bool
	}{
		{"hello", TokenWord, true},
		{"Tihs", TokenWord, true},
		{"x", TokenWord, false},       // single letter
		{"HTTP", TokenWord, false},    // acronym
		{"word2vec", TokenWord, false}, // contains digit
		{"42", TokenWord, false},
		{".", TokenPunct, false},
	}
	for _, tt := range tests {
		tok := Token{Text: tt.text, Kind: tt.kind}
		if got := Lintable(tok); got != tt.want {
			t.Errorf("Lintable(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
