package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

func main() {
	var practitioners, patients int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo practitioners and patients",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			run(practitioners, patients)
		},
	}
	cmd.Flags().IntVar(&practitioners, "practitioners", 20, "number of practitioners to create")
	cmd.Flags().IntVar(&patients, "patients", 500, "number of patients to create")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(practitioners, patients int) {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "prod", logging.FileOptions{})
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env, logging.FileOptions{Path: cfg.LogFile}).With().Str("service", "seed").Logger()
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	repo := appointment.NewPgRepository(pool)

	if err := seedPractitioners(context.Background(), repo, practitioners, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedPatients(context.Background(), repo, patients, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

var specialties = []string{
	"General Practice",
	"Cardiology",
	"Dermatology",
	"Pediatrics",
	"Neurology",
	"Orthopedics",
	"Psychiatry",
	"Gynecology",
}

var insurers = []string{"FONASA", "ISAPRE", "PRIVATE"}

func seedPractitioners(ctx context.Context, repo appointment.Repository, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding practitioners")

	for i := 0; i < count; i++ {
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]
		registration := fmt.Sprintf("REG-%06d", gofakeit.Number(1, 999999))
		phone := chileanMobile()

		p := appointment.Practitioner{
			Name:               "Dr. " + gofakeit.Name(),
			Email:              gofakeit.Email(),
			Specialty:          &specialty,
			RegistrationNumber: &registration,
			Phone:              &phone,
			Schedule:           weekdaySchedule(),
		}
		if _, err := repo.CreatePractitioner(ctx, p); err != nil {
			return fmt.Errorf("practitioner %d: %w", i, err)
		}
	}

	logger.Info().Msg("practitioners seeded")
	return nil
}

// weekdaySchedule returns a Monday to Friday agenda with a morning and an afternoon block.
func weekdaySchedule() []appointment.AvailabilityBlock {
	morningStart := gofakeit.Number(7, 9)
	afternoonEnd := gofakeit.Number(16, 19)

	blocks := make([]appointment.AvailabilityBlock, 0, 10)
	for day := 1; day <= 5; day++ {
		blocks = append(blocks,
			appointment.AvailabilityBlock{Day: day, Start: fmt.Sprintf("%02d:00", morningStart), End: "13:00"},
			appointment.AvailabilityBlock{Day: day, Start: "14:00", End: fmt.Sprintf("%02d:00", afternoonEnd)},
		)
	}
	return blocks
}

func chileanMobile() string {
	return "+569" + gofakeit.Numerify("########")
}

func seedPatients(ctx context.Context, repo appointment.Repository, count int, logger zerolog.Logger) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	for i := 0; i < count; i++ {
		birth := gofakeit.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0))
		birth = appointment.DateOf(birth)
		phone := chileanMobile()
		email := gofakeit.Email()
		address := gofakeit.Street() + ", " + gofakeit.City()
		insurance := insurers[gofakeit.Number(0, len(insurers)-1)]

		p := appointment.Patient{
			NationalID: fmt.Sprintf("%08d-%d", gofakeit.Number(1000000, 29999999), gofakeit.Number(0, 9)),
			FirstName:  gofakeit.FirstName(),
			LastName:   gofakeit.LastName(),
			BirthDate:  &birth,
			Phone:      &phone,
			Email:      &email,
			Address:    &address,
			Insurance:  &insurance,
			Active:     true,
		}
		if _, err := repo.CreatePatient(ctx, p); err != nil {
			return fmt.Errorf("patient %d: %w", i, err)
		}

		if (i+1)%100 == 0 {
			logger.Info().Int("done", i+1).Int("total", count).Msg("patients seeded")
		}
	}

	logger.Info().Msg("patients seeded")
	return nil
}
