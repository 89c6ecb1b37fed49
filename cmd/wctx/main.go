package main

import (
	"github.com/slightlyfaulty/wctx/cmd/wctx/commands"
)

func main() {
	commands.Execute()
}
