// Package cmd implements the cgt command line application.
package cmd

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander, cfg *Config) {
	c.Register(&gainsCmd{cfg: cfg}, "reports")
	c.Register(&trendCmd{cfg: cfg}, "reports")
	c.Register(&fetchCmd{cfg: cfg}, "prices")
}

// stdout is where reports are printed.
var stdout io.Writer = os.Stdout

// printMarkdown renders markdown for the terminal. The raw markdown is
// printed when it cannot be rendered.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		io.WriteString(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		io.WriteString(stdout, md)
		return
	}
	io.WriteString(stdout, out)
}
