package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"Netshape/cmd"
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	if err := cmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
