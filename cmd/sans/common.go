// Package main is the sans CLI: one binary dispatching to the entry points
// spec.md §6 names (check, run, run-ir, emit-ir, ir-validate, ir-amend, fmt,
// verify, validate). Grounded on cmd/mysqldef/mysqldef.go's
// parseOptions-then-Run shape, widened from one verb per binary to several
// verbs in one binary since every verb shares the same front end and engine
// instead of a database driver.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/sans-lang/sans/internal/bundle"
	"github.com/sans-lang/sans/internal/config"
	"github.com/sans-lang/sans/internal/csvio"
	"github.com/sans-lang/sans/internal/engine"
	"github.com/sans-lang/sans/internal/logging"
	"github.com/sans-lang/sans/internal/xpt"
)

// readScript reads a script/IR file from path, or from stdin when path is
// "-". Mirrors sqldef.go's readFile: a "-" on an unpiped terminal refuses
// rather than blocking silently.
func readScript(path string) (string, error) {
	if path != "-" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("stdin is not piped")
	}
	var buffer bytes.Buffer
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		buffer.WriteString(scanner.Text())
		buffer.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// tableBinding is one NAME=PATH pair from --tables.
type tableBinding struct {
	Name string
	Path string
}

// parseTableBindings parses a comma-separated NAME=PATH[,NAME=PATH...] list.
func parseTableBindings(raw string) ([]tableBinding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]tableBinding, 0, len(parts))
	seen := map[string]bool{}
	for _, p := range parts {
		eq := strings.IndexByte(p, '=')
		if eq < 0 {
			return nil, fmt.Errorf("malformed table binding %q, expected NAME=PATH", p)
		}
		name := strings.TrimSpace(p[:eq])
		path := strings.TrimSpace(p[eq+1:])
		if name == "" || path == "" {
			return nil, fmt.Errorf("malformed table binding %q, expected NAME=PATH", p)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate table binding for %q", name)
		}
		seen[name] = true
		out = append(out, tableBinding{Name: name, Path: path})
	}
	return out, nil
}

// formatForPath derives a save/bind format from an explicit --format flag or,
// failing that, a path's extension, defaulting to csv.
func formatForPath(explicit, path string) string {
	if explicit != "" {
		return explicit
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xpt":
		return "xpt"
	default:
		return "csv"
	}
}

// compositeWriter is the engine.SaveWriter cmd/sans wires up for save steps,
// dispatching to csvio.Writer or xpt.Writer by the step's own format param
// (falling back to the destination path's extension).
type compositeWriter struct {
	csv csvio.Writer
	xpt xpt.Writer
}

func newCompositeWriter(cfg config.EngineConfig) engine.SaveWriter {
	return &compositeWriter{xpt: xpt.Writer{MaxCharWidth: cfg.CharWidthCap}}
}

func (w *compositeWriter) Write(path, format string, t *engine.Table) error {
	switch formatForPath(format, path) {
	case "xpt":
		return w.xpt.Write(path, format, t)
	default:
		return w.csv.Write(path, format, t)
	}
}

// exitWith maps a bundle.ExitBucket to the process exit code, logging the
// primary error first when present.
func exitWith(bucket bundle.ExitBucket, primaryMessage string) {
	if primaryMessage != "" {
		fmt.Fprintln(os.Stderr, primaryMessage)
	}
	os.Exit(int(bucket))
}

func init() {
	logging.Init()
}
