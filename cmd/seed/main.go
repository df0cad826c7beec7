package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/grahaedukasi/graha-cbt/internal/config"
	"github.com/grahaedukasi/graha-cbt/internal/database"
	"github.com/grahaedukasi/graha-cbt/internal/logger"
	"github.com/grahaedukasi/graha-cbt/internal/model"
	"github.com/grahaedukasi/graha-cbt/internal/repository"
	"github.com/grahaedukasi/graha-cbt/internal/service"
)

var demoNames = []string{
	"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
	"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	"Hendra Gunawan", "Ika Sari", "Lukman Hakim", "Maya Septiana", "Nanda Pratama",
	"Putri Dian", "Rafi Ahmad", "Toni Setiawan", "Wahyu Hidayat", "Zaki Anwar",
}

func main() {
	var (
		students  int
		className string
		school    string
	)
	flag.IntVar(&students, "students", 0, "Number of demo students to create (max 20)")
	flag.StringVar(&className, "class", "6A", "Class name for demo students")
	flag.StringVar(&school, "school", "SD Graha Edukasi", "School name for demo students")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := database.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	fmt.Println("=== Seeding Sample Questions ===")
	n, err := repository.SeedIfEmpty(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed questions")
	}
	if n == 0 {
		fmt.Println("Question bank is not empty, skipped.")
	} else {
		fmt.Printf("Added %d sample questions.\n", n)
	}

	if students <= 0 {
		return
	}
	if students > len(demoNames) {
		students = len(demoNames)
	}

	fmt.Printf("\n=== Seeding %d Students ===\n", students)
	studentService := service.NewStudentService(store, log)

	created := 0
	for _, name := range demoNames[:students] {
		st, err := studentService.Create(ctx, model.CreateStudentRequest{Name: name, ClassName: className, School: school})
		if err != nil {
			fmt.Printf("Error creating student %s: %v\n", name, err)
			continue
		}
		created++
		fmt.Printf("%-20s %s\n", st.Name, st.Code)
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", created, students)
}
