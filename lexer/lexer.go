package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/informatter/flux/diagnostics"
	"github.com/informatter/flux/token"
)

const COMMENT_CHAR = '#'

func isLetter(char rune) bool {
	return rune('a') <= char && char <= rune('z') || rune('A') <= char && char <= rune('Z') || char == rune('_')
}

func isAlphaNumeric(char rune) bool {
	return isLetter(char) || isNumber(char)
}

func isNumber(char rune) bool {
	return rune('0') <= char && char <= rune('9')
}

// Lexer represents a lexical scanner for processing Flux source text into
// tokens. It maintains the current scanning state, including the position
// within the input, the current character, and metadata for line/column
// tracking. The Lexer also records tokens and diagnostics encountered
// during scanning.
type Lexer struct {
	file string

	// rune slice of the input string being scanned.
	characters []rune

	// Total number of runes in the input.
	totalChars int

	// Stores the sequence of tokens produced during lexing.
	tokens []token.Token

	// The index of the character that was previously read.
	position int

	// The current character being examined.
	currentChar rune

	// The index of the next position where the next character will be read.
	readPosition int

	// Tracks the number of lines processed (incremented on newline).
	lineCount int32

	// Tracks the character's position within the current line. Gets reset
	// on every new line back to 0.
	column int

	// interpStack tracks nested `\( ... )` interpolation holes inside a
	// string literal. Each entry is the paren-nesting depth seen so far
	// within that hole; a ')' that brings an entry back to zero closes the
	// hole and resumes scanning string content.
	interpStack []int

	// Stores any scanning diagnostics that occur during lexing.
	errors []diagnostics.Diagnostic
}

// New initializes and returns a new Lexer instance for scanning input,
// attributing any diagnostics to the given file name.
func New(file, input string) *Lexer {
	lexer := &Lexer{
		file:       file,
		characters: []rune(input),
	}
	lexer.totalChars = len(lexer.characters)
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) span() diagnostics.Span {
	return diagnostics.Span{File: lexer.file, Line: lexer.lineCount, Column: lexer.column, Length: 1}
}

// advance moves the Lexer's reading position forward by one character.
func (lexer *Lexer) advance() {
	lexer.position = lexer.readPosition
	lexer.readPosition++
	lexer.column = lexer.readPosition
}

func (lexer *Lexer) isFinished() bool {
	return lexer.readPosition >= lexer.totalChars
}

// readChar reads the character at the Lexer's readPosition. If there are no
// more characters to parse, it sets the Lexer's current character to null.
func (lexer *Lexer) readChar() {
	if lexer.isFinished() {
		lexer.currentChar = rune(0)
	} else {
		lexer.currentChar = lexer.characters[lexer.readPosition]
	}
	lexer.advance()
}

func (lexer *Lexer) readIllegal(startPos int) string {
	for !lexer.isWhiteSpace(lexer.currentChar) && !lexer.isFinished() {
		lexer.readChar()
	}
	return string(lexer.characters[startPos:lexer.readPosition])
}

func (lexer *Lexer) peek() rune {
	if lexer.isFinished() {
		return rune(0)
	}
	return lexer.characters[lexer.readPosition]
}

func (lexer *Lexer) peekNext() rune {
	nextReadPos := lexer.readPosition + 1
	if nextReadPos >= lexer.totalChars {
		return rune(0)
	}
	return lexer.characters[nextReadPos]
}

func (lexer *Lexer) handleComment() {
	for lexer.currentChar != rune('\n') && !lexer.isFinished() {
		lexer.readChar()
	}
}

// handleNumber scans a sequence of digits (and at most one decimal point)
// from the input and creates an integer or floating-point literal token
// accordingly. A decimal point not followed by a digit ends the number (the
// point is then scanned as a DOT token); a second decimal point followed by
// a digit is reported as E072.
func (lexer *Lexer) handleNumber() error {
	initPos := lexer.position
	decimalCount := 0

	for {
		nextChar := lexer.peek()
		if nextChar == rune(0) || nextChar == rune('\n') || !isNumber(nextChar) && nextChar != rune('.') {
			break
		}
		if nextChar == '.' {
			if lexer.peekNext() == rune(0) || !isNumber(lexer.peekNext()) {
				break
			}
			if decimalCount == 1 {
				illegalNumber := lexer.readIllegal(initPos)
				lexer.errors = append(lexer.errors, diagnostics.Errorf("E072", lexer.span(), "invalid number literal %q", illegalNumber))
				return fmt.Errorf("invalid number literal")
			}
			decimalCount++
		}
		lexer.advance()
	}
	number := string(lexer.characters[initPos:lexer.readPosition])
	var tok token.Token

	if decimalCount == 0 {
		result, _ := strconv.ParseInt(number, 0, 64)
		tok = token.CreateLiteralToken(token.INT, result, number, lexer.lineCount, lexer.column)
	} else {
		result, _ := strconv.ParseFloat(number, 64)
		tok = token.CreateLiteralToken(token.FLOAT, result, number, lexer.lineCount, lexer.column)
	}
	lexer.tokens = append(lexer.tokens, tok)
	return nil
}

// handleIdentifier processes an identifier or a language keyword.
func (lexer *Lexer) handleIdentifier() {
	initPos := lexer.position
	for {
		result := lexer.peek()
		if result == rune(0) || !isAlphaNumeric(result) {
			break
		}
		lexer.advance()
	}

	identifier := string(lexer.characters[initPos:lexer.readPosition])
	tokType := token.IDENTIFIER
	if kw, exists := token.KeyWords[identifier]; exists {
		tokType = kw
	}
	lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(tokType, nil, identifier, lexer.lineCount, lexer.column))
}

// handleStringLiteral scans a (possibly interpolated) string literal.
// continuation is true when resuming after an interpolation hole closes.
// Escapes recognized: \n \t \r \" \\ \(. An unterminated literal is
// reported as E076; an unknown escape as E077.
func (lexer *Lexer) handleStringLiteral(continuation bool) error {
	var sb strings.Builder
	closed := false

	for {
		c := lexer.peek()
		if c == 0 || c == '\n' {
			break
		}
		if c == '"' {
			lexer.advance()
			closed = true
			break
		}
		if c == '\\' {
			switch lexer.peekNext() {
			case '(':
				// open an interpolation hole; emit the literal chunk and
				// return control to createToken so the embedded expression
				// tokenizes normally.
				lexer.advance() // consume backslash
				lexer.advance() // consume '('
				tokType := token.STR_INTERP_START
				if continuation {
					tokType = token.STR_INTERP_MID
				}
				lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(tokType, sb.String(), sb.String(), lexer.lineCount, lexer.column))
				lexer.tokens = append(lexer.tokens, token.CreateToken(token.LPA, lexer.lineCount, lexer.column))
				lexer.interpStack = append(lexer.interpStack, 1)
				return nil
			case 'n':
				sb.WriteByte('\n')
				lexer.advance()
				lexer.advance()
				continue
			case 't':
				sb.WriteByte('\t')
				lexer.advance()
				lexer.advance()
				continue
			case 'r':
				sb.WriteByte('\r')
				lexer.advance()
				lexer.advance()
				continue
			case '"':
				sb.WriteByte('"')
				lexer.advance()
				lexer.advance()
				continue
			case '\\':
				sb.WriteByte('\\')
				lexer.advance()
				lexer.advance()
				continue
			default:
				lexer.errors = append(lexer.errors, diagnostics.Errorf("E077", lexer.span(), "unknown escape sequence '\\%c'", lexer.peekNext()))
				return fmt.Errorf("unknown escape sequence")
			}
		}
		sb.WriteRune(c)
		lexer.advance()
	}

	if !closed {
		lexer.errors = append(lexer.errors, diagnostics.Errorf("E076", lexer.span(), "unterminated string literal"))
		return fmt.Errorf("unterminated string literal")
	}

	tokType := token.STRING
	if continuation {
		tokType = token.STR_INTERP_END
	}
	lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(tokType, sb.String(), sb.String(), lexer.lineCount, lexer.column))
	return nil
}

func (lexer *Lexer) isMatch(expected rune) bool {
	if lexer.isFinished() {
		return false
	}
	if lexer.characters[lexer.readPosition] == expected {
		lexer.readPosition++
		return true
	}
	return false
}

// isWhiteSpace determines whether char is whitespace: carriage return,
// tab, newline, or ASCII space. Encountering a newline bumps lineCount and
// resets column to zero.
func (lexer *Lexer) isWhiteSpace(char rune) bool {
	if char == rune(' ') || char == rune('\r') || char == rune('\t') {
		return true
	}
	if lexer.currentChar == rune('\n') {
		lexer.lineCount++
		lexer.column = 0
		return true
	}
	return false
}

func (lexer *Lexer) skipWhiteSpace() {
	for lexer.isWhiteSpace(lexer.currentChar) {
		lexer.readChar()
	}
}

// createToken processes the current character and appends a token, if
// applicable, advancing the scan position.
func (lexer *Lexer) createToken() {
	lexer.skipWhiteSpace()

	// If we're inside an interpolation hole, track paren depth so a ')'
	// that closes the hole resumes string scanning instead of emitting RPA.
	if len(lexer.interpStack) > 0 {
		top := len(lexer.interpStack) - 1
		switch lexer.currentChar {
		case '(':
			lexer.interpStack[top]++
		case ')':
			lexer.interpStack[top]--
			if lexer.interpStack[top] == 0 {
				lexer.interpStack = lexer.interpStack[:top]
				lexer.readChar()
				if err := lexer.handleStringLiteral(true); err != nil {
					return
				}
				lexer.readChar()
				return
			}
		}
	}

	switch lexer.currentChar {
	case rune('('):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LPA, lexer.lineCount, lexer.column))
	case rune(')'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RPA, lexer.lineCount, lexer.column))
	case rune('{'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LCUR, lexer.lineCount, lexer.column))
	case rune('}'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RCUR, lexer.lineCount, lexer.column))
	case rune('['):
		tok := token.CreateToken(token.LBRK, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('|')) {
			tok = token.CreateToken(token.ARRAY_OPEN, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune(']'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.RBRK, lexer.lineCount, lexer.column))
	case rune(','):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.COMMA, lexer.lineCount, lexer.column))
	case rune('*'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.MULT, lexer.lineCount, lexer.column))
	case rune('%'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.MOD, lexer.lineCount, lexer.column))
	case rune('+'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.ADD, lexer.lineCount, lexer.column))
	case rune('-'):
		tok := token.CreateToken(token.SUB, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('>')) {
			tok = token.CreateToken(token.ARROW, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('/'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.DIV, lexer.lineCount, lexer.column))
	case rune(':'):
		tok := token.CreateToken(token.COLON, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune(':')) {
			tok = token.CreateToken(token.CONS, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('.'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.DOT, lexer.lineCount, lexer.column))
	case rune('\\'):
		lexer.tokens = append(lexer.tokens, token.CreateToken(token.LAMBDA, lexer.lineCount, lexer.column))
	case rune('='):
		tok := token.CreateToken(token.ASSIGN, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.EQUAL_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('!'):
		tok := token.CreateToken(token.BANG, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.NOT_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('<'):
		tok := token.CreateToken(token.LESS, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LESS_EQUAL, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('-')) {
			tok = token.CreateToken(token.GEN_ARROW, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('>'):
		tok := token.CreateToken(token.LARGER, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('=')) {
			tok = token.CreateToken(token.LARGER_EQUAL, lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('|'):
		tok := token.CreateToken(token.PIPE_BAR, lexer.lineCount, lexer.column)
		if lexer.isMatch(rune('>')) {
			tok = token.CreateToken(token.PIPE, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune(']')) {
			tok = token.CreateToken(token.ARRAY_CLOSE, lexer.lineCount, lexer.column)
		} else if lexer.isMatch(rune('|')) {
			tok = token.CreateLiteralToken(token.OR, nil, "||", lexer.lineCount, lexer.column)
		}
		lexer.tokens = append(lexer.tokens, tok)
	case rune('&'):
		if lexer.isMatch(rune('&')) {
			lexer.tokens = append(lexer.tokens, token.CreateLiteralToken(token.AND, nil, "&&", lexer.lineCount, lexer.column))
		} else {
			lexer.errors = append(lexer.errors, diagnostics.Errorf("E071", diagnostics.Span{File: lexer.file, Line: lexer.lineCount, Column: lexer.column, Length: 1}, "unexpected character %q", lexer.currentChar))
		}
	case rune(';'):
		// `;` separates statements and produces no token.
	case rune('"'):
		if err := lexer.handleStringLiteral(false); err != nil {
			return
		}
	case rune(COMMENT_CHAR):
		lexer.handleComment()
	default:
		if isLetter(lexer.currentChar) {
			lexer.handleIdentifier()
		} else if isNumber(lexer.currentChar) {
			if err := lexer.handleNumber(); err != nil {
				return
			}
		} else if !lexer.isFinished() {
			position := lexer.position
			column := lexer.column
			currentChar := lexer.currentChar
			illegal := lexer.readIllegal(position)
			lexer.errors = append(lexer.errors, diagnostics.Errorf("E071", diagnostics.Span{File: lexer.file, Line: lexer.lineCount, Column: column, Length: 1}, "unexpected character %q in %q", currentChar, illegal))
			return
		}
	}

	lexer.readChar()
}

// Scan performs lexical analysis on the input and returns the full token
// stream, including a trailing EOF token, plus the first diagnostic
// encountered (if any). Unlike the parser, the lexer stops at its first
// error — a malformed token makes the character stream itself ambiguous.
func (lexer *Lexer) Scan() ([]token.Token, error) {
	for lexer.currentChar != rune(0) {
		lexer.createToken()
		if len(lexer.errors) > 0 {
			return lexer.tokens, lexer.errors[0]
		}
	}
	lexer.tokens = append(lexer.tokens, token.CreateToken(token.EOF, lexer.lineCount, lexer.column))
	return lexer.tokens, nil
}

// Diagnostics returns every diagnostic collected during Scan.
func (lexer *Lexer) Diagnostics() []diagnostics.Diagnostic {
	return lexer.errors
}
