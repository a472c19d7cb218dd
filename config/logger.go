package config

import (
	"fmt"
	"io"
	"log"
)

// NewLogger returns a logger whose lines start with a coloured [prefix] tag.
func NewLogger(prefix, color string, out io.Writer) *log.Logger {
	return log.New(out, fmt.Sprintf("%s[%s]%s ", color, prefix, ColorReset), log.LstdFlags)
}
