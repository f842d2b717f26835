package main

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/uartrand/pkg/emitter"
	"github.com/robotalks/uartrand/pkg/env"
	fx "github.com/robotalks/uartrand/pkg/framework"
	"github.com/robotalks/uartrand/pkg/mirror"
	"github.com/robotalks/uartrand/pkg/sample"
	"github.com/robotalks/uartrand/pkg/uart"
)

func init() {
	uart.SetupFlags()
	emitter.SetupFlags()
	mirror.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := uart.NewConfig()
	port, err := conf.Open()
	if err != nil {
		glog.Fatalf("serial: %v", err)
	}

	emitterConf := emitter.NewConfig()
	meta := mirror.Meta{
		ID:        env.MachineID(),
		Device:    conf.Device,
		BaudRate:  conf.BaudRate,
		Interval:  emitter.Interval.String(),
		Delimiter: emitterConf.Delimiter,
	}
	mirrors, err := mirror.NewConfig().NewMirrors(meta)
	if err != nil {
		port.Close()
		glog.Fatalf("mirror: %v", err)
	}
	glog.Infof("emitter %s on %s", meta.ID, conf)

	e := emitterConf.NewEmitter(port, os.Stdout, sample.NewGenerator(), mirrors...)
	loop := fx.NewLoop().Add(e)
	err = fx.NewRunner().HandleSignals().Go(loop).Wait()
	port.Close()
	glog.Infof("stopped after %d samples", e.Count())
	if err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}
