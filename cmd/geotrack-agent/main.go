package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/geotrack/cmd/geotrack-agent/app"
)

func main() {
	app.NewApp().Run()
}
