package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/facegate/internal/ui"
	"github.com/spf13/cobra"
)

var (
	// Group and section titles such as "Gate:" or "Flags:".
	reSection = regexp.MustCompile(`^[A-Z][A-Za-z ]*:$`)
	// "  name   description" rows in the command list.
	reCommandRow = regexp.MustCompile(`^(  )(\S+)(\s{2,}.*)$`)
	// Trailing (default ...) annotations on flag rows.
	reFlagDefault = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc renders cobra's usage text with section titles,
// command names, and flag defaults colored when stdout supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " ")
		switch {
		case trimmed == "Usage:":
			// left plain
		case reSection.MatchString(trimmed):
			lines[i] = ui.RenderAccent(trimmed)
		case reCommandRow.MatchString(line) && !strings.HasPrefix(strings.TrimSpace(line), "-"):
			m := reCommandRow.FindStringSubmatch(line)
			lines[i] = m[1] + ui.RenderCommand(m[2]) + m[3]
		default:
			lines[i] = reFlagDefault.ReplaceAllStringFunc(line, ui.RenderMuted)
		}
	}
	return strings.Join(lines, "\n")
}
