package display

import (
	"fmt"
	"io"

	"github.com/backmassage/kramtex/internal/term"
)

const banner = ` _                        _
| | ___ __ __ _ _ __ ___ | |_ _____  __
| |/ / '__/ _` + "`" + ` | '_ ` + "`" + ` _ \| __/ _ \ \/ /
|   <| | | (_| | | | | | | ||  __/>  <
|_|\_\_|  \__,_|_| |_| |_|\__\___/_/\_\
`

// PrintBanner writes the ASCII art banner to w; magenta if colors are enabled.
func PrintBanner(w io.Writer, p term.Palette) {
	fmt.Fprint(w, p.Paint(p.Magenta, banner))
}
