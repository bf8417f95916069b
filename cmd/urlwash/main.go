package main

import (
	"os"

	"github.com/urlwash/urlwash/cmd/urlwash/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
