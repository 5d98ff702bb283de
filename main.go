package main

import (
	"log"

	"Aegis/CronJobs"
	"Aegis/FiberConfig"
	"Aegis/Models"
)

func main() {
	Models.Connect()

	weekly := CronJobs.NewWeeklyMaterializer(Models.DB, false)
	if err := weekly.Start(); err != nil {
		log.Printf("Failed to start weekly materializer: %v", err)
	}
	defer weekly.Stop()

	FiberConfig.FiberConfig()
}
