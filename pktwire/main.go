package main

import (
	"fmt"
	"os"

	"github.com/mhauser/pktwire/cmd/pktwire"
)

func main() {
	root := pktwire.RootCmd()
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err.Error())
		os.Exit(1)
	}
}
