// Command codecgen compiles bincodec YAML schemas and encodes, decodes and
// inspects values with the synthesized codecs.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
