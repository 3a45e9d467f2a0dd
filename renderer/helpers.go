package renderer

import (
	"bytes"
	"io"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// row writes a markdown table row.
func row(w io.Writer, cells ...string) {
	io.WriteString(w, "|")
	for _, c := range cells {
		io.WriteString(w, " "+c+" |")
	}
	io.WriteString(w, "\n")
}
