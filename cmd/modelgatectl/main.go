package main

import (
	"fmt"
	"os"

	"modelgate/internal/ctl"
)

func main() {
	if err := ctl.BuildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modelgatectl:", err)
		os.Exit(1)
	}
}
