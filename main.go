package main

import (
	"os"

	"github.com/melih-ucgun/botsnap/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
