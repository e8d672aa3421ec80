// Package main provides the tablepad command: a SQL workbench over CSV,
// JSON lines and Parquet files with a single-file backing store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
