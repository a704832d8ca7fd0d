// Command main runs the database seeder.
package main

import (
	"flag"
	"log"

	"hemobank/internal/config"
	"hemobank/internal/database"
	"hemobank/internal/seed"
)

func main() {
	numHospitals := flag.Int("hospitals", 5, "Number of hospitals to create")
	numRequests := flag.Int("requests", 50, "Number of blood requests to create")
	numUnits := flag.Int("units", 100, "Number of blood units to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d hospitals, %d requests, %d units, clean=%v\n",
		*numHospitals, *numRequests, *numUnits, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}
	if err := s.Run(seed.Options{
		NumHospitals: *numHospitals,
		NumRequests:  *numRequests,
		NumUnits:     *numUnits,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
