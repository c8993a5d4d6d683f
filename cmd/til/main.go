// Command til bootstraps the blog database and prints password digests.
package main

import (
	"fmt"
	"os"

	"til/cmd/til/cli"
)

func main() {
	if err := cli.Execute(cli.NewRootCommand(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
