package cmd

import (
	"fmt"
	"io"

	"github.com/localdocs/localdocs/internal/retriever"
)

// printSources renders retrieved passages below a non-streaming chat answer.
func printSources(out io.Writer, sources []retriever.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSources:")
	for i, s := range sources {
		fmt.Fprintf(out, "[%d] %s (page %d, distance %.4f)\n", i+1, s.FilePath, s.Page, s.Distance)
	}
}
