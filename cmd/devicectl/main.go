package main

import (
	"os"

	"github.com/08star/my-auth-app/cmd/devicectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
