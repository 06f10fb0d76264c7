// Command microsim runs a traffic scenario headlessly for a fixed number
// of control steps and logs periodic vehicle-count summaries.
package main

import (
	"encoding/base64"
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/fib-traffic/microsim/internal/config"
	"github.com/fib-traffic/microsim/internal/simulation"
)

var (
	configPath = flag.String("config", "", "config file path")
	configData = flag.String("config-data", "", "config file base64 encoded data")

	logLevels = map[string]logrus.Level{
		"trace": logrus.TraceLevel,
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"off":   logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "log level: trace debug info warn error off")

	log = logrus.WithField("module", "microsim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.0000",
	})
	level, ok := logLevels[*logLevel]
	if !ok {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	logrus.SetLevel(level)

	var c config.Config
	var file []byte
	var err error
	switch {
	case *configPath != "":
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	case *configData != "":
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	default:
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	log.Infof("%+v", c)

	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("config validation err: %v", err)
	}

	road, _, segs, err := config.BuildRoad(c.Network)
	if err != nil {
		log.Panicf("network build err: %v", err)
	}

	sim := simulation.New(road, rc.C.Step.Interval, c.Seed)
	for _, sp := range c.Spawners {
		segID, ok := segs[config.ScenarioEnds{From: sp.From, To: sp.To}]
		if !ok {
			log.Panicf("spawner references unknown segment %s -> %s", sp.From, sp.To)
		}
		sim.AddSpawner(simulation.VehicleSpawner{Segment: segID, Rate: sp.Rate, Speed: sp.Speed})
	}

	const summaryEvery = 100
	for step := int32(0); step < rc.C.Step.Total; step++ {
		sim.Tick(rc.C.Step.Interval)
		if step%summaryEvery == 0 {
			log.WithField("step", step).Infof("vehicles=%d", sim.VehicleCount())
		}
	}
	log.WithField("step", rc.C.Step.Total).Infof("simulation complete, vehicles=%d", sim.VehicleCount())
}
