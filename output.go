package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// outputWriter handles formatted output (text or JSON)
type outputWriter struct {
	json    bool
	noColor bool
	verbose bool
	writer  io.Writer
	errors  io.Writer
}

func newOutputWriter(useJSON, noColor, verbose bool) *outputWriter {
	return &outputWriter{
		json:    useJSON,
		noColor: noColor,
		verbose: verbose,
		writer:  os.Stdout,
		errors:  os.Stderr,
	}
}

func (o *outputWriter) stderr() io.Writer {
	if o.errors == nil {
		return io.Discard
	}
	return o.errors
}

func (o *outputWriter) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if o.noColor {
		c.DisableColor()
	}
	return c
}

// writeJSON outputs data as JSON
func (o *outputWriter) writeJSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// writeMessage outputs a simple message
func (o *outputWriter) writeMessage(msg string) {
	fmt.Fprintln(o.writer, msg)
}

func (o *outputWriter) writeSuccess(msg string) {
	o.color(color.FgGreen).Fprintln(o.writer, msg)
}

// writeNotice tells the user something about the result without being an error. In JSON
// mode it goes to stderr so stdout stays parseable.
func (o *outputWriter) writeNotice(msg string) {
	w := o.writer
	if o.json {
		w = o.stderr()
	}
	o.color(color.FgYellow).Fprintln(w, msg)
}

// writeError outputs an error message to stderr
func (o *outputWriter) writeError(err error) {
	o.color(color.FgRed).Fprintf(o.stderr(), "Error: %v\n", err)
}

// writeAPIError reports a Gmail failure that does not stop a run.
func (o *outputWriter) writeAPIError(err error) {
	o.color(color.FgRed).Fprintf(o.stderr(), "An error occurred: %v\n", err)
}

// writeVerbose outputs a verbose message to stderr if verbose mode is enabled
func (o *outputWriter) writeVerbose(format string, args ...interface{}) {
	if o.verbose {
		fmt.Fprintf(o.stderr(), "VERBOSE: "+format+"\n", args...)
	}
}
