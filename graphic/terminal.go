package graphic

import (
	"os"
	"strings"
)

// normalizeTerminal works around TERM and TERMINFO combinations termbox
// cannot handle. the returned func restores the environment.
func normalizeTerminal() (func(), error) {
	prevTERMINFO, hadTERMINFO := os.LookupEnv("TERMINFO")

	if strings.HasPrefix(os.Getenv("TERM"), "tmux") {
		// termbox fails on some tmux TERM values while TERMINFO is set
		if err := os.Unsetenv("TERMINFO"); err != nil {
			return nil, err
		}
	}

	restore := func() {
		if hadTERMINFO {
			os.Setenv("TERMINFO", prevTERMINFO)
		}
	}

	return restore, nil
}
