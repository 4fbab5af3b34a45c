// Command simulate drives a running api-server with concurrent bookings and
// admin confirmations that deliberately compete for the same slots.
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

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hackgods/mindcare/internal/api"
	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/logging"
)

type SimConfig struct {
	APIBaseURL     string
	AdminToken     string
	Duration       time.Duration
	Workers        int
	BookingRatio   float64
	ConfirmRatio   float64
	ReadRatio      float64
	TherapistLimit int
}

type slotRef struct {
	TherapistID uuid.UUID
	At          time.Time
}

type DataPool struct {
	Slots []slotRef

	mu      sync.Mutex
	pending []uuid.UUID
}

func (dp *DataPool) AddPending(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.pending = append(dp.pending, id)
}

// TakePending removes and returns a random pending appointment, so two
// workers never confirm the same one; they race on slots instead.
func (dp *DataPool) TakePending(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.pending) == 0 {
		return uuid.Nil, false
	}
	i := rng.Intn(len(dp.pending))
	id := dp.pending[i]
	dp.pending[i] = dp.pending[len(dp.pending)-1]
	dp.pending = dp.pending[:len(dp.pending)-1]
	return id, true
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
	case err == nil && status == http.StatusConflict:
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
	at := func(pct int) time.Duration {
		i := len(latencies) * pct / 100
		if i >= len(latencies) {
			i = len(latencies) - 1
		}
		return latencies[i]
	}
	return sum / time.Duration(len(latencies)), at(50), at(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking OperationMetrics
	Assign  OperationMetrics
	Confirm OperationMetrics
	Read    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	_ = godotenv.Load()

	logger := logging.New(getEnv("APP_ENV", "dev"))
	defer logger.Sync()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	logger.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := sim.loadDataPool(ctx)
	cancel()
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	sim.pool = pool
	logger.Info("loaded free slots", zap.Int("slots", len(pool.Slots)))

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:     getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		AdminToken:     os.Getenv("ADMIN_API_TOKEN"),
		Duration:       getDuration("SIM_DURATION", 30*time.Second),
		Workers:        getInt("SIM_WORKERS", 10),
		BookingRatio:   getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio:   getFloat("SIM_CONFIRM_RATIO", 0.3),
		ReadRatio:      getFloat("SIM_READ_RATIO", 0.2),
		TherapistLimit: getInt("SIM_THERAPIST_LIMIT", 5),
	}

	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.AdminToken == "" {
		return errors.New("ADMIN_API_TOKEN is required to confirm appointments")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	return nil
}

// loadDataPool collects free slots of the first few therapists. A small pool
// keeps contention high.
func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	var therapists []api.TherapistResponse
	if _, err := s.call(ctx, http.MethodGet, "/therapists", nil, false, &therapists); err != nil {
		return nil, fmt.Errorf("list therapists: %w", err)
	}
	if len(therapists) > s.config.TherapistLimit {
		therapists = therapists[:s.config.TherapistLimit]
	}

	dp := &DataPool{}
	for _, t := range therapists {
		var slots []api.SlotResponse
		if _, err := s.call(ctx, http.MethodGet, "/therapists/"+t.ID.String()+"/slots", nil, false, &slots); err != nil {
			return nil, fmt.Errorf("list slots of %s: %w", t.ID, err)
		}
		for _, sl := range slots {
			dp.Slots = append(dp.Slots, slotRef{TherapistID: sl.TherapistID, At: sl.SlotTime})
		}
	}
	if len(dp.Slots) == 0 {
		return nil, errors.New("no free slots, run seed or clinicctl slots expand first")
	}
	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.ConfirmRatio:
			s.doConfirm(ctx, rng)
		default:
			s.doRead(ctx)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	in := appointment.CreateInput{
		Email:            gofakeit.Email(),
		IDNumber:         gofakeit.Numerify("A#########"),
		ConsultationType: "online",
		Name:             gofakeit.Name(),
		Phone:            gofakeit.Numerify("09########"),
		MainConcerns:     "simulated booking",
		Urgency:          []string{"low", "medium", "high"}[rng.Intn(3)],
		PreferredPeriods: []appointment.PeriodInput{{
			Date:    time.Now().AddDate(0, 0, 1+rng.Intn(7)).Format("2006-01-02"),
			Periods: []string{"morning"},
		}},
	}

	var created api.AppointmentResponse
	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/appointments", in, false, &created)
	s.metrics.Booking.Record(time.Since(start), status, err)
	if err == nil && created.ID != uuid.Nil {
		s.pool.AddPending(created.ID)
	}
}

// doConfirm assigns a pending appointment to the owner of a random slot and
// confirms it at that slot's time. Other workers may pick the same slot.
func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.TakePending(rng)
	if !ok {
		return
	}
	target := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	path := "/admin/appointments/" + id.String()

	start := time.Now()
	status, err := s.call(ctx, http.MethodPost, path+"/assign-therapist",
		api.AssignTherapistRequest{TherapistID: target.TherapistID.String()}, true, nil)
	s.metrics.Assign.Record(time.Since(start), status, err)
	if err != nil {
		return
	}

	start = time.Now()
	status, err = s.call(ctx, http.MethodPost, path+"/confirm-time",
		api.ConfirmTimeRequest{ConfirmedDatetime: target.At.Format(time.RFC3339)}, true, nil)
	s.metrics.Confirm.Record(time.Since(start), status, err)
	if status == http.StatusConflict {
		// still pending, retry it against another slot later
		s.pool.AddPending(id)
	}
}

func (s *Simulator) doRead(ctx context.Context) {
	start := time.Now()
	status, err := s.call(ctx, http.MethodGet, "/admin/appointments/pending?limit=20", nil, true, nil)
	s.metrics.Read.Record(time.Since(start), status, err)
}

// call sends one JSON request. A non-2xx status is returned with an error.
func (s *Simulator) call(ctx context.Context, method, path string, body any, admin bool, out any) (int, error) {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+s.config.AdminToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return resp.StatusCode, fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Slot pool: %d\n\n", len(s.pool.Slots))

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Assign therapist", &s.metrics.Assign)
	printOperationReport("Confirm time", &s.metrics.Confirm)
	printOperationReport("List pending", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
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
