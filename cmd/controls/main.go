//go:build linux

// controls prints the V4L2 controls of a device as JSON, to fill in
// camera.settings.
package main

import (
	"log"
	"os"

	"github.com/goccy/go-json"
	cli "github.com/jawher/mow.cli"

	"gesture-capture/pkg/camera"
)

func main() {
	app := cli.App("controls", "list camera controls")
	devName := app.String(cli.StringOpt{Name: "d dev", Desc: "device name (path)", Value: camera.DefaultDevice})

	app.Action = func() {
		ctrls, err := camera.ListControls(*devName)
		if err != nil {
			log.Fatal(err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "    ")
		if err := enc.Encode(ctrls); err != nil {
			log.Fatal(err)
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
