package board

import (
	"fmt"
	"strings"
)

// Placement is the piece layout of a position: ranks 8 down to 1, files a to
// h. Empty squares are zero; occupied squares hold the FEN piece letter.
type Placement [8][8]byte

// ParseFEN extracts the placement field of a FEN string.
func ParseFEN(fen string) (Placement, error) {
	var p Placement
	fields := strings.Fields(strings.TrimSpace(fen))
	if len(fields) == 0 {
		return p, fmt.Errorf("empty fen")
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return p, fmt.Errorf("fen has %d ranks", len(ranks))
	}
	for r, rank := range ranks {
		file := 0
		for _, ch := range []byte(rank) {
			switch {
			case ch >= '1' && ch <= '8':
				file += int(ch - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", rune(ch)):
				if file > 7 {
					return p, fmt.Errorf("rank %d overflows", 8-r)
				}
				p[r][file] = ch
				file++
			default:
				return p, fmt.Errorf("bad fen piece %q", ch)
			}
		}
		if file != 8 {
			return p, fmt.Errorf("rank %d has %d files", 8-r, file)
		}
	}
	return p, nil
}

// ASCII renders a position as a terminal diagram, white at the bottom.
func ASCII(fen string) (string, error) {
	p, err := ParseFEN(fen)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("  +-----------------+\n")
	for r := 0; r < 8; r++ {
		b.WriteString(fmt.Sprintf("%d | ", 8-r))
		for f := 0; f < 8; f++ {
			if p[r][f] == 0 {
				b.WriteString(". ")
			} else {
				b.WriteByte(p[r][f])
				b.WriteByte(' ')
			}
		}
		b.WriteString("|\n")
	}
	b.WriteString("  +-----------------+\n")
	b.WriteString("    a b c d e f g h\n")
	return b.String(), nil
}
