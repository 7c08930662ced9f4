package main

import (
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// TestScroll simulates clients scrolling to the bottom as fast as they can.
// Every range change lands within the threshold, so the single flight guard
// decides how many pages are actually loaded.
func TestScroll(c Config) {

	if c.Base == "" {
		start, stop := CreateServer(&c)
		defer stop()
		go start()
	}

	WaitMounted(c.Base)

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     1024,
			MaxIdleConnsPerHost: 1024,
			MaxIdleConns:        1024,
		},
	}

	loaded := int64(0)
	calls := int64(0)

	go func() {
		for {
			fmt.Println("loaded:", atomic.LoadInt64(&loaded), "calls:", atomic.LoadInt64(&calls))
			time.Sleep(1 * time.Second)
		}
	}()

	t0 := time.Now()
	Parallel(c.Workers, func() {
		for atomic.LoadInt64(&loaded) < int64(c.N) {
			end := int(atomic.LoadInt64(&loaded)) - 1
			state, err := Call(client, "POST", c.Base+"/v1/table:rangeChanged", JSON{"endIndex": max(end, 0)})
			atomic.AddInt64(&calls, 1)
			if err != nil {
				fmt.Println("ERROR: range changed:", err.Error())
				os.Exit(4)
			}
			if state.LastError != "" {
				fmt.Println("ERROR: load:", state.LastError)
			}
			atomic.StoreInt64(&loaded, int64(state.LoadedCount))
		}
	})

	took := time.Since(t0)
	Report("SCROLL", took,
		Metric{"workers", c.Workers},
		Metric{"rows loaded", loaded},
		Metric{"range changes", calls},
		Metric{"rows/sec", fmt.Sprintf("%.2f", float64(loaded)/took.Seconds())},
	)
}
