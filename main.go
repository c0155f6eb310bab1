package main

import (
	"github.com/Yoga07/stagehand/cmd"
)

var (
	version = "0.3.0"
	commit  = "none"
)

func main() {
	cmd.SetVersionInfo(version, commit)
	cmd.Execute()
}
