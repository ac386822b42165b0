package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-scheduling/internal/access"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/config"
	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/logging"
)

// SimConfig drives a load run against a live api-server. Workers race to book
// the same practitioner days so the day lock and overlap check are exercised.
type SimConfig struct {
	APIBaseURL        string
	Duration          time.Duration
	Workers           int
	BookingRatio      float64
	TransitionRatio   float64
	ReadRatio         float64
	PatientLimit      int
	PractitionerLimit int
	DaysAhead         int
	SlotMinutes       int
}

type DataPool struct {
	Patients      []uuid.UUID
	Practitioners []uuid.UUID
	Days          []time.Time

	mu           sync.RWMutex
	appointments []booked
}

type booked struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && (status == http.StatusConflict || status == http.StatusUnprocessableEntity):
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentiles() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies)),
		latencies[len(latencies)*50/100],
		latencies[min(len(latencies)*95/100, len(latencies)-1)],
		latencies[len(latencies)-1]
}

type Metrics struct {
	Booking    OperationMetrics
	Transition OperationMetrics
	Read       OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	auth    func(r *http.Request, actor uuid.UUID)
	staffID uuid.UUID
	log     zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", "prod", logging.FileOptions{})
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(baseCfg.LogLevel, baseCfg.Env, logging.FileOptions{Path: baseCfg.LogFile}).With().Str("service", "simulate").Logger()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid simulation config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("load data pool")
	}
	logger.Info().
		Int("patients", len(dataPool.Patients)).
		Int("practitioners", len(dataPool.Practitioners)).
		Int("days", len(dataPool.Days)).
		Msg("data pool loaded")

	sim := &Simulator{
		config:  cfg,
		pool:    dataPool,
		client:  &http.Client{Timeout: 10 * time.Second},
		auth:    authenticator(baseCfg.JWTSecret),
		staffID: uuid.New(),
		log:     logger,
	}

	sim.Run()
	sim.PrintReport()

	overlaps, err := verifyNoOverlaps(context.Background(), appointment.NewPgRepository(pgPool), dataPool)
	if err != nil {
		logger.Fatal().Err(err).Msg("verify agendas")
	}
	if overlaps > 0 {
		logger.Error().Int("overlaps", overlaps).Msg("overlapping appointments found")
		os.Exit(1)
	}
	logger.Info().Msg("no overlapping appointments found")
}

// authenticator signs each request as actor with the role its path needs. Attendance
// calls must come from the appointment's own practitioner.
func authenticator(secret string) func(r *http.Request, actor uuid.UUID) {
	if secret == "" {
		return func(r *http.Request, actor uuid.UUID) {
			r.Header.Set("X-Dev-Role", string(roleFor(r)))
			r.Header.Set("X-Dev-User", actor.String())
		}
	}

	v := access.NewVerifier(secret)
	return func(r *http.Request, actor uuid.UUID) {
		tok, err := v.Issue(access.Principal{UserID: actor, Role: roleFor(r)}, time.Hour)
		if err != nil {
			panic(err)
		}
		r.Header.Set("Authorization", "Bearer "+tok)
	}
}

func roleFor(r *http.Request) access.Role {
	if strings.HasSuffix(r.URL.Path, "/start") {
		return access.RolePractitioner
	}
	return access.RoleReceptionist
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:        getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:          getDuration("SIM_DURATION", 30*time.Second),
		Workers:           getInt("SIM_WORKERS", 10),
		BookingRatio:      getFloat("SIM_BOOKING_RATIO", 0.6),
		TransitionRatio:   getFloat("SIM_TRANSITION_RATIO", 0.2),
		ReadRatio:         getFloat("SIM_READ_RATIO", 0.2),
		PatientLimit:      getInt("SIM_PATIENT_LIMIT", 1000),
		PractitionerLimit: getInt("SIM_PRACTITIONER_LIMIT", 5),
		DaysAhead:         getInt("SIM_DAYS_AHEAD", 3),
		SlotMinutes:       getInt("SIM_SLOT_MINUTES", 30),
	}

	total := cfg.BookingRatio + cfg.TransitionRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.TransitionRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	switch {
	case cfg.Workers <= 0:
		return errors.New("SIM_WORKERS must be > 0")
	case cfg.Duration <= 0:
		return errors.New("SIM_DURATION must be > 0")
	case cfg.DaysAhead <= 0 || cfg.DaysAhead > appointment.MaxLeadDays:
		return fmt.Errorf("SIM_DAYS_AHEAD must be within 1..%d", appointment.MaxLeadDays)
	case cfg.SlotMinutes <= 0 || cfg.SlotMinutes > 120:
		return errors.New("SIM_SLOT_MINUTES must be within 1..120")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	var err error
	dp.Patients, err = loadIDs(ctx, pool, `SELECT id FROM patients WHERE active LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	dp.Practitioners, err = loadIDs(ctx, pool, `SELECT id FROM practitioners WHERE active IS NOT FALSE LIMIT $1`, cfg.PractitionerLimit)
	if err != nil {
		return nil, fmt.Errorf("load practitioners: %w", err)
	}

	if len(dp.Patients) == 0 {
		return nil, errors.New("no patients loaded, run seed first")
	}
	if len(dp.Practitioners) == 0 {
		return nil, errors.New("no practitioners loaded, run seed first")
	}

	today := appointment.DateOf(time.Now())
	for i := 1; i <= cfg.DaysAhead; i++ {
		dp.Days = append(dp.Days, today.AddDate(0, 0, i))
	}
	return dp, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()

	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.TransitionRatio:
			s.doTransition(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	// Slots start on the hour grid between 08:00 and 17:00 so workers collide often.
	slots := (9 * 60) / s.config.SlotMinutes
	start := 8*60 + rng.Intn(slots)*s.config.SlotMinutes

	body, _ := json.Marshal(map[string]string{
		"patient_id":      s.pool.Patients[rng.Intn(len(s.pool.Patients))].String(),
		"practitioner_id": s.pool.Practitioners[rng.Intn(len(s.pool.Practitioners))].String(),
		"date":            s.pool.Days[rng.Intn(len(s.pool.Days))].Format(appointment.DateLayout),
		"start_time":      appointment.FormatClock(start),
		"end_time":        appointment.FormatClock(start + s.config.SlotMinutes),
		"consult_type":    "GENERAL",
	})

	var created struct {
		ID             uuid.UUID `json:"id"`
		PractitionerID uuid.UUID `json:"practitioner_id"`
	}
	status, latency, err := s.do(ctx, http.MethodPost, "/appointments", body, &created, s.staffID)
	if err == nil && status == http.StatusCreated && created.ID != uuid.Nil {
		s.pool.AddAppointment(booked{ID: created.ID, PractitionerID: created.PractitionerID})
	}
	s.metrics.Booking.Record(latency, status, err)
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	action := []string{"confirm", "start", "cancel"}[rng.Intn(3)]
	actor := s.staffID
	if action == "start" {
		actor = b.PractitionerID
	}
	status, latency, err := s.do(ctx, http.MethodPost, "/appointments/"+b.ID.String()+"/"+action, nil, nil, actor)
	s.metrics.Transition.Record(latency, status, err)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	path := fmt.Sprintf("/appointments?practitioner_id=%s&date=%s",
		s.pool.Practitioners[rng.Intn(len(s.pool.Practitioners))],
		s.pool.Days[rng.Intn(len(s.pool.Days))].Format(appointment.DateLayout))
	if rng.Intn(2) == 0 {
		path = fmt.Sprintf("/appointments?patient_id=%s&limit=20", s.pool.Patients[rng.Intn(len(s.pool.Patients))])
	}
	status, latency, err := s.do(ctx, http.MethodGet, path, nil, nil, s.staffID)
	s.metrics.Read.Record(latency, status, err)
}

func (s *Simulator) do(ctx context.Context, method, path string, body []byte, out any, actor uuid.UUID) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.auth(req, actor)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, latency, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
	}
	return resp.StatusCode, latency, nil
}

// verifyNoOverlaps re-runs the overlap check for every blocking appointment
// against the rest of its practitioner's day.
func verifyNoOverlaps(ctx context.Context, repo appointment.Repository, dp *DataPool) (int, error) {
	engine := appointment.NewEngine(0, func() time.Time { return dp.Days[0] })

	overlaps := 0
	for _, practitionerID := range dp.Practitioners {
		for _, day := range dp.Days {
			list, err := repo.ListForPractitionerDay(ctx, practitionerID, day)
			if err != nil {
				return 0, err
			}
			for _, a := range list {
				if !a.Status.Blocking() {
					continue
				}
				err := engine.ValidateCandidate(appointment.Candidate{
					PatientID:      a.PatientID,
					PractitionerID: a.PractitionerID,
					Date:           a.Date,
					StartTime:      a.StartTime,
					EndTime:        a.EndTime,
				}, list, a.ID)
				if appointment.KindOf(err) == appointment.KindScheduleConflict {
					overlaps++
				}
			}
		}
	}
	return overlaps, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n\n", s.config.Workers)

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Transition", &s.metrics.Transition)
	printOperationReport("Read", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected))
	fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
