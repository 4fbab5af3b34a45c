package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// report writes v as JSON, or the text line otherwise.
func report(w io.Writer, opts *RootOptions, v any, text string) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
