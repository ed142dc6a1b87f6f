package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle("Error:"), err)
		os.Exit(1)
	}
}
