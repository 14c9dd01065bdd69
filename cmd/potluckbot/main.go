package main

import (
	"log"
	"os"

	corecmd "github.com/m3rciful/potluckbot/core/cmd"
	"github.com/m3rciful/potluckbot/potluck/app"
)

func main() {
	opts := app.RunnerOptions()
	opts.Args = os.Args[1:]
	if err := corecmd.Run(opts); err != nil {
		log.Fatalf("potluckbot: %v", err)
	}
}
