package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numUsers     = 500
	numGroups    = 3
)

var phrases = []string{
	"good morning everyone",
	"anyone up for a game tonight",
	"did you see the match yesterday",
	"that was a great stream",
	"what time does the event start",
	"congrats on the win",
	"haha that was funny",
	"check out this build",
}

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	fmt.Println("=== RAD Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Users: %d | Groups: %d\n\n", numUsers, numGroups)

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	// Phase 1: Pure message ingestion
	fmt.Println("\n--- Phase 1: Message ingestion (POST /ingest) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doIngest(rng)
	})

	// Let the write-behind queue drain once
	fmt.Println("\nWaiting 2s for flush...")
	time.Sleep(2 * time.Second)

	// Phase 2: Mixed load close to production ratios
	fmt.Println("\n--- Phase 2: Mixed load (80% ingest, 20% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.80:
			return doIngest(rng)
		case r < 0.88:
			return doGetStatus()
		case r < 0.93:
			return doGetTop(rng)
		case r < 0.97:
			return doGetProgress(rng)
		default:
			return doMembers(rng)
		}
	})

	// Phase 3: Spam wave; most traffic is duplicates from few users
	fmt.Println("\n--- Phase 3: Spam wave (duplicate bursts from 10 users) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.85:
			return doSpamIngest(rng)
		case r < 0.95:
			return doGetIgnored()
		default:
			return doGetStatus()
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func postJSON(endpoint string, body map[string]interface{}, wantStatus int) result {
	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+endpoint, "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST " + endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST " + endpoint, resp.StatusCode, lat, resp.StatusCode != wantStatus}
}

func doIngest(rng *rand.Rand) result {
	uid := fmt.Sprintf("u%d", rng.Intn(numUsers)+1)
	body := map[string]interface{}{
		"user_id":  uid,
		"group_id": fmt.Sprintf("g%d", rng.Intn(numGroups)+1),
		"name":     uid,
		"text":     phrases[rng.Intn(len(phrases))] + fmt.Sprintf(" %d", rng.Intn(1000)),
	}
	if rng.Float64() < 0.05 {
		body["is_media"] = true
	}
	return postJSON("/ingest", body, 200)
}

// doSpamIngest hammers the same few users with identical text so the
// duplicate and burst checks actually fire.
func doSpamIngest(rng *rand.Rand) result {
	uid := fmt.Sprintf("spammer%d", rng.Intn(10)+1)
	body := map[string]interface{}{
		"user_id":  uid,
		"group_id": "g1",
		"name":     uid,
		"text":     "buy cheap coins now",
	}
	return postJSON("/ingest", body, 200)
}

func doMembers(rng *rand.Rand) result {
	return postJSON("/members", map[string]interface{}{
		"count": 900 + rng.Intn(300),
	}, 202)
}

func doGet(endpoint string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + endpoint)
	lat := time.Since(start)
	label := "GET " + endpoint
	if i := indexByte(endpoint, '?'); i >= 0 {
		label = "GET " + endpoint[:i]
	}
	if err != nil {
		return result{label, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{label, resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetStatus() result {
	return doGet("/status")
}

func doGetIgnored() result {
	return doGet("/ignored")
}

func doGetProgress(rng *rand.Rand) result {
	return doGet(fmt.Sprintf("/progress?count=%d", 800+rng.Intn(400)))
}

func doGetTop(rng *rand.Rand) result {
	return doGet(fmt.Sprintf("/top?limit=%d", 5+rng.Intn(20)))
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
