package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand(defaultDeps())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, "Usage:", cmd.UseLine())
			fmt.Fprintln(os.Stderr, "Example:", cmd.Example)
		}
		os.Exit(1)
	}
}
