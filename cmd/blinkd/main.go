package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/blink.go/pkg/device"
)

func init() {
	device.SetupFlags()
}

func main() {
	flag.Parse()

	dev := device.NewConfig().MustNewDevice()
	if err := dev.Run(context.Background()); err != nil {
		glog.Exitln(err)
	}
}
