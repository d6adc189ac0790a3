// README: Smoke cases for the shim, the /api surface, storage and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"wayfarer/internal/infra"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 45 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	validMessages := map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "用一句话介绍杭州"}},
	}
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusPending, Note: "geocode cache disabled: " + err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				if err := infra.ApplyMigrations(ctx, r.db, r.cfg.MigrationsDir); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationsDir)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: strings.Join(tables, ",")}
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", nil, "", []int{200}),
		httpCase("API: unknown path -> 404", http.MethodGet, base+"/does-not-exist", nil, "", []int{404}),

		// Shim
		httpCase("Shim: preflight -> 200", http.MethodOptions, base+"/generate-itinerary", nil, "", []int{200}),
		httpCase("Shim: GET -> 405", http.MethodGet, base+"/generate-itinerary", nil, "", []int{405}),
		httpCase("Shim: invalid body -> 400", http.MethodPost, base+"/generate-itinerary", "{", "", []int{400}),
		httpCase("Shim: messages not an array -> 400", http.MethodPost, base+"/generate-itinerary",
			map[string]any{"messages": "hi"}, "", []int{400}),
		{
			Name: "Shim: relay to model",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.Generate {
					return Result{Status: statusSkip, Note: "generate=false"}
				}
				status, latency, err := r.do(ctx, http.MethodPost, base+"/generate-itinerary", validMessages, "")
				switch {
				case err != nil:
					return Result{Status: statusFail, Note: err.Error()}
				case status == http.StatusOK:
					return Result{Status: statusPass, Latency: latency}
				case status == http.StatusInternalServerError:
					return Result{Status: statusPending, Latency: latency, Note: "api key not configured?"}
				}
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			},
		},

		// Authenticated surface
		httpCase("Auth: missing token -> 401", http.MethodGet, base+"/api/plans", nil, "", []int{401, 404}),
		httpCase("Auth: bad token -> 401", http.MethodGet, base+"/api/plans", nil, "not-a-token", []int{401, 404}),
		r.authCase("Plans: list", http.MethodGet, base+"/api/plans", nil, []int{200}),
		r.authCase("Plans: invalid request -> 400", http.MethodPost, base+"/api/plans", map[string]any{
			"destination": "", "start_date": "2024-05-03", "end_date": "2024-05-01",
		}, []int{400}),
		r.authCase("Plans: malformed id -> 400", http.MethodGet, base+"/api/plans/not-a-uuid", nil, []int{400}),
		r.authCase("Quota: usage", http.MethodGet, base+"/api/quota", nil, []int{200}),
		r.authCase("Voice: parse transcript", http.MethodPost, base+"/api/voice/parse", map[string]any{
			"text": "我想去北京玩5天，预算1万元，两个人，喜欢历史文化",
		}, []int{200}),
		r.authCase("Places: search", http.MethodGet, base+"/api/places/search?q=西湖&city=杭州", nil, []int{200, 503}),
		{
			Name: "Plans: generate",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" || !r.cfg.Generate {
					return Result{Status: statusSkip, Note: "needs -token and -generate"}
				}
				status, latency, err := r.do(ctx, http.MethodPost, base+"/api/plans/generate", map[string]any{
					"destination": "杭州", "start_date": futureDate(7), "end_date": futureDate(9),
					"budget": 3000, "participants": 2, "interests": []string{"food", "nature"},
				}, r.cfg.Token)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if status == http.StatusCreated {
					return Result{Status: statusPass, Latency: latency}
				}
				if status == http.StatusTooManyRequests || status == http.StatusUnprocessableEntity {
					return Result{Status: statusPending, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
				}
				return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			},
		},

		// Concurrency
		{
			Name: "Concurrency: status transition applied once",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: statusSkip, Note: "needs -token"}
				}
				return concurrentTransition(ctx, r, base)
			},
		},

		// Performance
		{
			Name: "Perf: health throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/health", nil)
			},
		},
		{
			Name: "Perf: shim validation throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/generate-itinerary", map[string]any{"messages": "x"})
			},
		},
	}
}

func (r *Runner) authCase(name, method, url string, body any, okStatuses []int) TestCase {
	if r.cfg.Token == "" {
		return TestCase{Name: name, Run: func(context.Context, *Runner) Result {
			return Result{Status: statusSkip, Note: "needs -token"}
		}}
	}
	return httpCase(name, method, url, body, r.cfg.Token, okStatuses)
}

func httpCase(name, method, url string, body any, token string, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			status, latency, err := r.do(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			note := fmt.Sprintf("status=%d", status)
			if contains(okStatuses, status) {
				return Result{Status: statusPass, Latency: latency, Note: note}
			}
			return Result{Status: statusFail, Latency: latency, Note: note}
		},
	}
}

// do sends one request. A string body is sent as is; anything else is
// JSON-encoded.
func (r *Runner) do(ctx context.Context, method, url string, body any, token string) (int, time.Duration, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return 0, 0, err
		}
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodOptions {
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

// concurrentTransition creates a planned plan and races planned -> active;
// exactly one request may win.
func concurrentTransition(ctx context.Context, r *Runner, base string) Result {
	id, err := createPlannedPlan(ctx, r, base)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer func() {
		_, _, _ = r.do(context.WithoutCancel(ctx), http.MethodDelete, base+"/api/plans/"+id, nil, r.cfg.Token)
	}()

	var (
		wg               sync.WaitGroup
		mu               sync.Mutex
		succ, conflicted int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, base+"/api/plans/"+id+"/status",
				map[string]string{"status": "active"}, r.cfg.Token)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflicted++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflicted)
	if succ == 1 {
		return Result{Status: statusPass, Note: note}
	}
	return Result{Status: statusFail, Note: note}
}

func createPlannedPlan(ctx context.Context, r *Runner, base string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"destination": "杭州", "start_date": futureDate(7), "end_date": futureDate(7),
		"budget": 500, "participants": 1,
		"itinerary": map[string]any{
			"days":       []map[string]any{{"date": futureDate(7), "activities": []any{}, "meals": []any{}, "daily_cost": 100}},
			"total_cost": 100,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/plans", strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	resp, err := r.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create plan: status=%d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.Status != "planned" {
		return created.ID, fmt.Errorf("create plan: status %q, want planned", created.Status)
	}
	return created.ID, nil
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count, errCount int64
		mu              sync.Mutex
		wg              sync.WaitGroup
	)

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				_, _, err := r.do(ctx, method, url, payload, "")
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	var tables []string
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRe.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables declared in %s", dir)
	}
	return tables, nil
}
