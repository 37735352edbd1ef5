package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/cobolcontext-mcp/pkg/types"
)

// analyzePicture derives the class, length and scale of a PICTURE
// character-string. Problems are returned rather than failing so the
// caller can report them and keep the partial result.
func analyzePicture(raw string) (*types.PictureClause, []string) {
	pic := &types.PictureClause{String: raw}
	var problems []string
	if raw == "" {
		return pic, []string{"empty PICTURE string"}
	}

	s := strings.ToUpper(raw)
	var (
		hasNine, hasX, hasA, hasN bool
		sawV, afterPoint          bool
		positions                 int
	)
	for i := 0; i < len(s); {
		sym := s[i : i+1]
		if strings.HasPrefix(s[i:], "CR") || strings.HasPrefix(s[i:], "DB") {
			sym = s[i : i+2]
		}
		i += len(sym)

		n := 1
		if i < len(s) && s[i] == '(' {
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				problems = append(problems, "unclosed repeat count")
				break
			}
			count, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || count <= 0 {
				problems = append(problems, fmt.Sprintf("invalid repeat count %q", s[i+1:i+end]))
			} else {
				n = count
			}
			i += end + 1
		}

		switch sym {
		case "S":
			if positions > 0 || sawV || pic.Signed {
				problems = append(problems, "S must appear once, as the first symbol")
			}
			pic.Signed = true
		case "V":
			if sawV {
				problems = append(problems, "more than one V")
			}
			if afterPoint {
				problems = append(problems, "V and an editing point both present")
			}
			sawV = true
		case "P":
		case "9":
			hasNine = true
			positions += n
			if sawV || afterPoint {
				pic.Decimals += n
			}
		case "X":
			hasX = true
			positions += n
		case "A":
			hasA = true
			positions += n
		case "N", "G":
			hasN = true
			positions += n
		case ".":
			if sawV {
				problems = append(problems, "V and an editing point both present")
			}
			if afterPoint {
				problems = append(problems, "more than one editing point")
			}
			pic.Edited = true
			afterPoint = true
			positions += n
		case "Z", "*":
			pic.Edited = true
			positions += n
			if sawV || afterPoint {
				pic.Decimals += n
			}
		case ",", "+", "-", "$", "B", "0", "/", "E":
			pic.Edited = true
			positions += n
		case "CR", "DB":
			pic.Edited = true
			positions += 2
		default:
			problems = append(problems, fmt.Sprintf("unexpected symbol %q", sym))
		}
	}

	switch {
	case hasA && !hasX && !hasNine && !hasN:
		pic.Class = types.ClassAlphabetic
	case hasX || hasN || hasA:
		pic.Class = types.ClassAlphanumeric
	default:
		pic.Class = types.ClassNumeric
	}
	if pic.Signed && pic.Class != types.ClassNumeric {
		problems = append(problems, "S is only valid in a numeric PICTURE")
	}
	if positions == 0 {
		problems = append(problems, "no character positions")
	}
	pic.Length = positions
	return pic, problems
}
