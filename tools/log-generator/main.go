// log-generator emits synthetic NDJSON log records on stdout at a fixed
// rate, for exercising the forwarder end to end:
//
//	go run ./tools/log-generator -rps 500 -d 30s | go run ./cmd/logship
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var severities = []string{"DEBUG", "INFO", "INFO", "INFO", "WARNING", "ERROR"}

func main() {
	rps := flag.Int("rps", 100, "Records per second")
	duration := flag.Duration("d", 10*time.Second, "How long to generate records")
	flag.Parse()

	log.Printf("generating records: rps=%d duration=%s", *rps, *duration)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	var count int64
	for {
		if err := limiter.Wait(ctx); err != nil {
			break // deadline reached
		}

		record := fmt.Sprintf(
			`{"event_id":"%s","severity":"%s","message":"synthetic log record %d","time":"%s","span":{"trace_id":"%s"}}`,
			uuid.NewString(),
			severities[rand.Intn(len(severities))],
			count,
			time.Now().UTC().Format(time.RFC3339Nano),
			uuid.NewString(),
		)
		fmt.Fprintln(out, record)
		count++
	}

	out.Flush()
	log.Printf("done: %d records generated", count)
}
