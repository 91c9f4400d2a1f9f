// Command newyear serves and plays the New Year greeting game.
package main

import (
	"github.com/livetemplate/newyear/cmd/newyear/commands"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
)

func main() {
	commands.Execute(version, commit)
}
