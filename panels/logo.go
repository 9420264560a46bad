package panels

import (
	"strings"

	"trikdash/ui"
)

const banner = `
tttttttttttt
    tt                              kk
    tt                              kk
    tt                       ii     kk
    tt                              kk
    tt       rrrrrrrrrr      ii     kk
    tt       rrrrrrrrrrr     ii     kk      kk
    tt       rr       rr     ii     kk    kk
    tt       rr              ii     kk  kk
    tt       rr              ii     kk kk
    tt       rr              ii     kk   kk
    tt       rr              ii     kk     kk
    tt       rr              ii     kk       kk
    tt       rr              ii     kk        kk
`

// Logo is the static banner panel.
func Logo() ui.TextSpec {
	return ui.TextSpec{
		Lines: strings.Split(strings.Trim(banner, "\n"), "\n"),
		Color: "magenta",
	}
}
