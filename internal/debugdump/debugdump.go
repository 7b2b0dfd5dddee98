// Package debugdump pretty-prints ASTs and IR documents to stderr when
// LOG_LEVEL=debug is set. Grounded on database/mysql/parser.go's
// `pp.Println(root)` debug dump (there gated behind a permanent `if false`);
// here the gate is internal/logging.IsDebug so the dump is reachable without
// editing source.
package debugdump

import (
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/sans-lang/sans/internal/logging"
)

var printer = pp.New()

func init() {
	printer.SetColoringEnabled(false)
}

// Dump pretty-prints v, labeled, to stderr if debug logging is enabled. A
// no-op otherwise, so call sites never need their own guard.
func Dump(label string, v any) {
	if !logging.IsDebug() {
		return
	}
	os.Stderr.WriteString(label + ":\n")
	printer.Fprintln(os.Stderr, v)
}
