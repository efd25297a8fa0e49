package compiler

// Lexer holds the state of a single scanning pass over one Source.
type Lexer struct {
	table *TokenTable
	src   *Source
	pos   int // offset of the next byte to classify
}

func newLexer(table *TokenTable, src *Source) *Lexer {
	if table == nil {
		table = DefaultTokenTable
	}
	return &Lexer{table: table, src: src}
}

func (l *Lexer) token(tt TokenType, start, length, padding int) Token {
	return Token{Type: tt, Start: start, Length: length, Padding: padding, src: l.src}
}

// scanWord finds the end of a number or identifier: the next whitespace,
// anywhere lexeme, or the end of input.
func (l *Lexer) scanWord() int {
	text := l.src.Text
	end := l.pos + 1
	for end < len(text) && !isSpace(text[end]) {
		if _, ok := l.table.matchAnywhere(text[end:]); ok {
			break
		}
		end++
	}
	return end
}

// scanString scans a literal opening at l.pos. A backslash escapes whatever
// follows it, so only an unescaped quote closes the literal.
func (l *Lexer) scanString(padding int) (Token, error) {
	text := l.src.Text
	start := l.pos
	if padding == 0 && start > 0 && text[start-1] == '\\' {
		return Token{}, syntaxErrorf(l.token(QUOTE, start, 1, padding), "unrecognized sequence: \\\"")
	}
	i := start + 1
	for i < len(text) {
		if text[i] == '\\' {
			i += 2
			continue
		}
		if text[i] == '"' {
			break
		}
		i++
	}
	if i >= len(text) {
		return Token{}, syntaxErrorf(l.token(QUOTE, start, 1, padding), "no ending quote")
	}
	l.pos = i + 1
	return l.token(STRING, start, i-start+1, padding), nil
}

// nextToken classifies the text at the current position. At the end of input
// it returns an EOF token.
func (l *Lexer) nextToken() (Token, error) {
	text := l.src.Text
	from := l.pos
	for l.pos < len(text) && isSpace(text[l.pos]) {
		l.pos++
	}
	padding := l.pos - from
	if l.pos >= len(text) {
		return l.token(EOF, l.pos, 0, padding), nil
	}
	rest := text[l.pos:]

	if lx, ok := l.table.matchAnywhere(rest); ok {
		if lx.tt == QUOTE {
			return l.scanString(padding)
		}
		tok := l.token(lx.tt, l.pos, len(lx.text), padding)
		l.pos += len(lx.text)
		return tok, nil
	}

	if lx, ok := l.table.matchKeyword(rest); ok {
		tok := l.token(lx.tt, l.pos, len(lx.text), padding)
		l.pos += len(lx.text)
		return tok, nil
	}

	tt := IDENTIFIER
	if isDigit(rest[0]) || (rest[0] == '.' && len(rest) > 1 && isDigit(rest[1])) {
		tt = NUMBER
	}
	start := l.pos
	l.pos = l.scanWord()
	return l.token(tt, start, l.pos-start, padding), nil
}

// Tokenize splits src into tokens using the table's classification rules.
// Every call starts from scratch. The EOF token is not included.
func (t *TokenTable) Tokenize(src *Source) ([]Token, error) {
	l := newLexer(t, src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		if tok.Type == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Lex tokenises text with the default table.
// It returns a non-nil error on the first malformed string literal.
func Lex(text string) ([]Token, error) {
	return DefaultTokenTable.Tokenize(NewSource(text))
}
