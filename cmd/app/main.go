package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/hubertat/servicemaker"

	"github.com/hubertat/garagekit"
)

const defaultSyncInterval = "330ms"

var (
	Version string
	Build   string

	config       = flag.String("config", "config.json", "path of the configuration file")
	flagInstall  = flag.Bool("install", false, "Install service in os")
	syncInterval = flag.String("sync", defaultSyncInterval, "sync interval (time.Duration)")

	gkService = servicemaker.ServiceMaker{
		User:               "garagekit",
		UserGroups:         []string{"gpio"},
		ServicePath:        "/etc/systemd/system/garagekit.service",
		ServiceDescription: "garagekit service: HomeKit enabled garage door opener controller. github.com/hubertat/garagekit",
		ExecDir:            "/srv/garagekit",
		ExecName:           "garagekit",
	}
)

func main() {
	log.Printf("garagekit %s started\n", Version)
	flag.Parse()

	if *flagInstall {
		err := gkService.InstallService()
		if err != nil {
			panic(err)
		} else {
			log.Println("service installed!")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncDuration, err := time.ParseDuration(*syncInterval)
	if err != nil {
		panic(err)
	}

	gk := &garagekit.GarageKit{}
	configFile, err := os.Open(*config)
	if err == nil {
		cBuff, err := io.ReadAll(configFile)
		if err != nil {
			log.Fatalf("failed reading config file: %v\n", err)
		}

		err = json.Unmarshal(cBuff, gk)
		if err != nil {
			log.Fatalf("failed unmarshalling json config: %v", err)
		}
	} else {
		log.Fatalf("can't find/open config file (%s), will terminate. Reason: \n%v\n", *config, err)
	}
	log.Println("will init garagekit drivers...")
	err = gk.InitDrivers(ctx)
	defer gk.Close()
	if err != nil {
		panic(err)
	}
	log.Println("will init garagekit IOs...")
	err = gk.InitIos()
	if err != nil {
		panic(err)
	}

	log.Printf("drivers OK!\nwill try to MatchControllers:\n")
	err = gk.MatchControllers()
	if err != nil {
		log.Printf("Matching Controllers returned error: %v\n we will proceed...", err)
	} else {
		log.Println("MatchControllers OK!")
	}

	if len(gk.MqttBroker) > 0 {
		log.Println("will connect to mqtt broker...")
		err = gk.InitMqtt()
		if err != nil {
			log.Printf("mqtt init returned error: %v\n we will proceed without mqtt...", err)
		}
	}

	gk.PrintIoStatus(os.Stdout)

	if len(gk.HkPin) == 8 {
		log.Println("Starting with HomeKit server")

		go gk.StartTicker(syncDuration)
		log.Fatal(gk.StartHomeKit(context.Background(), Version))
	} else {
		log.Println("HomeKit not configured, disabled")
		gk.StartTicker(syncDuration)
	}

}
