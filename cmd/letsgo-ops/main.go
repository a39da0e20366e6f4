package main

import (
	"github.com/letsgo-sh/ops/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
