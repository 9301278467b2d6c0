// Command telecopter runs the media request bot.
package main

import (
	"log"

	corecmd "github.com/m3rciful/telecopter/core/cmd"
	"github.com/m3rciful/telecopter/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatal(err)
	}
}
