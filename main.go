package main

import (
	"github.com/mailops/autoreply/cmd"
)

func main() {
	cmd.Execute()
}
