package board

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
)

// Board geometry in SVG user units.
const (
	squareSize = 72
	boardSize  = squareSize * 8
)

const (
	lightFill  = "#f0d9b5"
	darkFill   = "#b58863"
	whitePiece = "#f8f8f8"
	blackPiece = "#2b2b2b"
	whiteEdge  = "#3a3a3a"
	blackEdge  = "#0a0a0a"
)

// RenderPNG draws the position described by fen and returns a PNG of the
// requested edge size. The board is generated as SVG with geometric piece
// glyphs and rasterized.
func RenderPNG(fen string, size int) ([]byte, error) {
	if size <= 0 {
		size = boardSize
	}
	p, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}

	svg := buildSVG(p)
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse board svg: %w", err)
	}

	icon.SetTarget(0, 0, float64(boardSize), float64(boardSize))
	img := image.NewRGBA(image.Rect(0, 0, boardSize, boardSize))
	scanner := rasterx.NewScannerGV(boardSize, boardSize, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(boardSize, boardSize, scanner), 1.0)

	out := img
	if size != boardSize {
		scaled := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
		out = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildSVG(p Placement) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, boardSize, boardSize, boardSize, boardSize)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			fill := lightFill
			if (r+f)%2 == 1 {
				fill = darkFill
			}
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`, f*squareSize, r*squareSize, squareSize, squareSize, fill)
		}
	}
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p[r][f] == 0 {
				continue
			}
			writePiece(&b, p[r][f], f*squareSize, r*squareSize)
		}
	}
	b.WriteString(`</svg>`)
	return b.String()
}

// writePiece emits one piece glyph translated onto its square. Glyphs are
// drawn in a 72x72 local box.
func writePiece(b *strings.Builder, piece byte, x, y int) {
	fill, edge := whitePiece, whiteEdge
	if piece >= 'a' && piece <= 'z' {
		fill, edge = blackPiece, blackEdge
	}
	fmt.Fprintf(b, `<g transform="translate(%d,%d)" fill="%s" stroke="%s" stroke-width="2">`, x, y, fill, edge)
	switch piece {
	case 'p', 'P':
		b.WriteString(`<circle cx="36" cy="26" r="10"/><path d="M22 58 L50 58 L44 36 L28 36 Z"/>`)
	case 'r', 'R':
		b.WriteString(`<path d="M20 16 h8 v7 h5 v-7 h6 v7 h5 v-7 h8 v14 h-32 Z"/><rect x="25" y="30" width="22" height="20"/><rect x="18" y="52" width="36" height="7"/>`)
	case 'n', 'N':
		b.WriteString(`<path d="M24 58 L24 42 C24 26 32 16 46 16 L52 26 L42 30 C50 36 50 46 50 58 Z"/>`)
	case 'b', 'B':
		b.WriteString(`<circle cx="36" cy="18" r="5"/><path d="M36 24 C47 33 48 42 36 54 C24 42 25 33 36 24 Z"/><rect x="24" y="54" width="24" height="6"/>`)
	case 'q', 'Q':
		b.WriteString(`<path d="M20 58 L24 28 L31 40 L36 24 L41 40 L48 28 L52 58 Z"/>`)
	case 'k', 'K':
		b.WriteString(`<rect x="33" y="12" width="6" height="16"/><rect x="28" y="16" width="16" height="6"/><path d="M24 58 L27 32 L45 32 L48 58 Z"/>`)
	}
	b.WriteString(`</g>`)
}
