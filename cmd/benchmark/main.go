// Benchmark tool for replaying assessment data against leadscore.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/assessments.csv -url http://localhost:8080
//
// This tool:
//  1. Reads assessment rows (business id, vertical, metric columns)
//  2. Sends each assessment to POST /score
//  3. Reports tier distribution, score percentiles, and request latency
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// AssessmentRow is one parsed CSV row. Metric columns use dotted
// headers (e.g. "seo.organic_keywords") and decode into the nested
// metrics map the API expects.
type AssessmentRow struct {
	BusinessID string
	Vertical   string
	Metrics    map[string]any
}

// ScoreRequest is the leadscore API request format.
type ScoreRequest struct {
	BusinessID string         `json:"businessId"`
	Vertical   string         `json:"vertical,omitempty"`
	Metrics    map[string]any `json:"metrics"`
}

// ScoreResponse is the leadscore API response format.
type ScoreResponse struct {
	ID           string  `json:"id"`
	OverallScore float64 `json:"overallScore"`
	Tier         string  `json:"tier"`
	QuickWin     string  `json:"quickWin,omitempty"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	mu        sync.Mutex
	tiers     map[string]int64
	scores    []float64
	latencies []time.Duration

	TotalProcessed int64
	TotalErrors    int64
}

func (m *Metrics) record(resp *ScoreResponse, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers[resp.Tier]++
	m.scores = append(m.scores, resp.OverallScore)
	m.latencies = append(m.latencies, latency)
}

func main() {
	csvPath := flag.String("csv", "", "Path to assessment CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "leadscore base URL")
	workers := flag.Int("workers", 10, "Concurrent request workers")
	limit := flag.Int("limit", 0, "Max rows to send (0 = all)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: benchmark -csv <file> [-url <base>] [-workers <n>] [-limit <n>]")
		os.Exit(1)
	}

	rows, err := readAssessments(*csvPath, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read csv: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d assessments from %s\n", len(rows), *csvPath)

	metrics := &Metrics{tiers: make(map[string]int64)}
	client := &http.Client{Timeout: 30 * time.Second}

	jobs := make(chan *AssessmentRow)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				scoreOne(client, *baseURL, row, metrics)
			}
		}()
	}

	for i := range rows {
		jobs <- &rows[i]
	}
	close(jobs)
	wg.Wait()

	printReport(metrics, time.Since(start))
}

func scoreOne(client *http.Client, baseURL string, row *AssessmentRow, metrics *Metrics) {
	body, err := json.Marshal(ScoreRequest{
		BusinessID: row.BusinessID,
		Vertical:   row.Vertical,
		Metrics:    row.Metrics,
	})
	if err != nil {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		return
	}

	reqStart := time.Now()
	resp, err := client.Post(baseURL+"/score", "application/json", bytes.NewReader(body))
	latency := time.Since(reqStart)
	if err != nil {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		atomic.AddInt64(&metrics.TotalErrors, 1)
		return
	}

	var scoreResp ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&scoreResp); err != nil {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		return
	}

	metrics.record(&scoreResp, latency)
	atomic.AddInt64(&metrics.TotalProcessed, 1)
}

// readAssessments parses the CSV. The first two columns must be
// business_id and vertical; every remaining column is a metric path.
func readAssessments(path string, limit int) ([]AssessmentRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(header) < 3 || header[0] != "business_id" || header[1] != "vertical" {
		return nil, fmt.Errorf("expected header business_id,vertical,<metric columns>, got %v", header)
	}

	var rows []AssessmentRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := AssessmentRow{
			BusinessID: record[0],
			Vertical:   record[1],
			Metrics:    make(map[string]any),
		}
		for i := 2; i < len(record) && i < len(header); i++ {
			setMetric(row.Metrics, header[i], parseValue(record[i]))
		}
		rows = append(rows, row)

		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, nil
}

// setMetric expands a dotted column name into nested maps.
func setMetric(metrics map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	cur := metrics
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// parseValue converts a CSV cell to the most specific type.
func parseValue(s string) any {
	if s == "" {
		return nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func printReport(m *Metrics, elapsed time.Duration) {
	processed := atomic.LoadInt64(&m.TotalProcessed)
	errs := atomic.LoadInt64(&m.TotalErrors)

	fmt.Println()
	fmt.Println("=== benchmark results ===")
	fmt.Printf("processed: %d  errors: %d  elapsed: %s  throughput: %.1f req/s\n",
		processed, errs, elapsed.Round(time.Millisecond),
		float64(processed)/elapsed.Seconds(),
	)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.scores) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("tier distribution:")
	tierNames := make([]string, 0, len(m.tiers))
	for name := range m.tiers {
		tierNames = append(tierNames, name)
	}
	sort.Strings(tierNames)
	for _, name := range tierNames {
		count := m.tiers[name]
		fmt.Printf("  %-10s %6d  (%.1f%%)\n", name, count, 100*float64(count)/float64(len(m.scores)))
	}

	sort.Float64s(m.scores)
	fmt.Println()
	fmt.Printf("score: min=%.1f p50=%.1f p90=%.1f max=%.1f\n",
		m.scores[0],
		percentileF(m.scores, 50),
		percentileF(m.scores, 90),
		m.scores[len(m.scores)-1],
	)

	sort.Slice(m.latencies, func(i, j int) bool { return m.latencies[i] < m.latencies[j] })
	fmt.Printf("latency: p50=%s p90=%s p99=%s\n",
		percentileD(m.latencies, 50).Round(time.Microsecond),
		percentileD(m.latencies, 90).Round(time.Microsecond),
		percentileD(m.latencies, 99).Round(time.Microsecond),
	)
}

func percentileF(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func percentileD(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
