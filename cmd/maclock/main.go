package main

import (
	"fmt"
	"os"

	"maclock/internal/adapter/primary/cli"
)

func main() {
	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
