package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/oryx-ai/conductor/internal/cli"
)

const (
	mockPort = 9091
	appPort  = 8081
)

const benchConfig = `
server:
  port: "8081"
  env: "production"
  api_keys: ["bench-key-12345"]
database:
  path: "bench.db"
rate_limit:
  requests_per_second: 100000
  burst: 200000
router:
  default_provider: "bench-openai"
providers:
  - id: "bench-openai"
    type: "openai"
    name: "Bench Mock"
    api_key: "sk-bench"
    base_url: "http://localhost:9091/v1"
    enabled: true
    capabilities: ["text", "code"]
`

var (
	unaryResp = []byte(`{"model":"bench","choices":[{"message":{"content":"Benchmark safe response"}}],"usage":{"prompt_tokens":5,"completion_tokens":4,"total_tokens":9}}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	stream := flag.Bool("stream", false, "Use the streaming route endpoint")
	flag.Parse()

	go startMockProvider()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("SERVER_PORT=%d", appPort))

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	mode := "Unary"
	endpoint := fmt.Sprintf("http://localhost:%d/v1/route", appPort)
	if *stream {
		mode = "Streaming"
		endpoint += "/stream"
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rate)

	body := []byte(`{"prompt": "Write a short greeting"}`)
	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = endpoint
		t.Body = body
		t.Header = http.Header{
			"Content-Type":      []string{"application/json"},
			"Authorization":     []string{"Bearer bench-key-12345"},
			"X-Benchmark-Start": []string{strconv.FormatInt(time.Now().UnixNano(), 10)},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println(cli.Style("99th percentile: ", cli.Bold), metrics.Latencies.P99)
	fmt.Println(cli.Style("Mean:            ", cli.Bold), metrics.Latencies.Mean)
	fmt.Println(cli.Style("Max:             ", cli.Bold), metrics.Latencies.Max)
	fmt.Printf("%s %.2f%%\n", cli.Style("Success:         ", cli.Bold), metrics.Success*100)
	fmt.Printf("%s %.2f req/s\n", cli.Style("Throughput:      ", cli.Bold), metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Printf("%s Error Set (first 5 unique):\n", cli.CrossMark())
		uniqueErrors := make(map[string]bool)
		count := 0
		for _, msg := range metrics.Errors {
			if !uniqueErrors[msg] && count < 5 {
				fmt.Println(cli.Style(msg, cli.Red))
				uniqueErrors[msg] = true
				count++
			}
		}
	} else {
		fmt.Printf("%s No errors recorded\n", cli.CheckMark())
	}

	os.Remove("bench.db")
}

// startMockProvider serves an OpenAI-compatible endpoint so the benchmark
// exercises the router without real upstream calls.
func startMockProvider() {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	if err := http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux); err != nil {
		log.Fatalf("mock provider failed: %v", err)
	}
}

func waitForApp(url string) {
	for i := 0; i < 50; i++ {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	log.Fatal("application never became healthy")
}
