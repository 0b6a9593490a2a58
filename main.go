// Package main is the entry point for the soundpulse application.
package main

import (
	"github.com/samber/lo"
	"github.com/soundpulse-cli/soundpulse/cmd"
	"github.com/soundpulse-cli/soundpulse/config"
	"github.com/soundpulse-cli/soundpulse/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	cmd.Execute()
}
