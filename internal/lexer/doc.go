// Package lexer tokenizes fixed-format COBOL source.
//
// Each physical line is split into areas by column:
//
//	1-6    sequence area, ignored
//	7      indicator: '*' or '/' comment, '-' continuation, 'D' debugging line
//	8-72   code area (Area A and Area B)
//	73-    identification area, ignored
//
// The end of the code area is configurable through Config.CodeAreaEnd.
//
// # Tokens
//
// Words are upper-cased and classified as Keyword when reserved, Identifier
// otherwise; all-digit words are Number tokens. Literals keep their quotes
// so that "HI" and HI remain distinguishable downstream:
//
//	s := lexer.New(lexer.DefaultConfig())
//	tokens, err := s.Scan(source)
//	if err != nil {
//	    var perr *types.ParseError
//	    if errors.As(err, &perr) {
//	        fmt.Printf("literal opened at %d:%d\n", perr.Line, perr.Column)
//	    }
//	}
//
// The character-string after PIC or PICTURE is returned as one Identifier
// token, so 9(5)V99 and ZZ,ZZ9.99 are not split on their punctuation.
package lexer
