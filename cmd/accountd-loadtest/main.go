// Command accountd-loadtest drives login and refresh traffic against a
// running accountd instance and reports latency percentiles per phase.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type accountState struct {
	email    string
	password string
	token    string
	mu       sync.Mutex
}

func main() {
	var (
		baseURL     = flag.String("base-url", "http://localhost:8080", "accountd base URL")
		accounts    = flag.Int("accounts", 100, "number of accounts to register")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase (login + refresh)")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	states := make([]accountState, *accounts)
	fmt.Printf("registering %d accounts at %s...\n", *accounts, *baseURL)
	startSeed := time.Now()
	for i := range states {
		states[i] = accountState{
			email:    fmt.Sprintf("load-%d@example.com", i),
			password: "LoadTest123!",
		}
		if err := register(client, *baseURL, &states[i], i); err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("registered in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		return login(client, *baseURL, &states[r.Intn(len(states))])
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		return refresh(client, *baseURL, &states[r.Intn(len(states))])
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("refresh", refreshStats)
}

func register(client *http.Client, baseURL string, state *accountState, i int) error {
	_, err := post(client, baseURL+"/api/auth/register", "", map[string]string{
		"email":    state.email,
		"phone":    fmt.Sprintf("138%08d", i),
		"password": state.password,
		"nickname": "loadtest",
	})
	return err
}

func login(client *http.Client, baseURL string, state *accountState) error {
	data, err := post(client, baseURL+"/api/auth/login", "", map[string]string{
		"email":       state.email,
		"password":    state.password,
		"device_type": "LOADTEST",
	})
	if err != nil {
		return err
	}

	token, _ := data["token"].(string)
	if token == "" {
		return fmt.Errorf("login returned no token")
	}

	state.mu.Lock()
	state.token = token
	state.mu.Unlock()
	return nil
}

func refresh(client *http.Client, baseURL string, state *accountState) error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.token == "" {
		return fmt.Errorf("no session to refresh")
	}

	data, err := post(client, baseURL+"/api/auth/refresh-token", state.token, nil)
	if err != nil {
		return err
	}

	token, _ := data["token"].(string)
	if token == "" {
		return fmt.Errorf("refresh returned no token")
	}
	state.token = token
	return nil
}

func post(client *http.Client, url, token string, body map[string]string) (map[string]any, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s (%s)", url, envelope.Code, envelope.Message)
	}
	return envelope.Data, nil
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
