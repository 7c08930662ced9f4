package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

// TestFind fills the cache and then runs filtered queries against it.
func TestFind(c Config) {

	if c.Base == "" {
		start, stop := CreateServer(&c)
		defer stop()
		go start()
	}

	WaitMounted(c.Base)

	for {
		state, err := Call(http.DefaultClient, "POST", c.Base+"/v1/table:loadMore", nil)
		if err != nil {
			fmt.Println("ERROR: load more:", err.Error())
			os.Exit(4)
		}
		if state.LoadedCount >= c.N {
			break
		}
		if state.IsLoading {
			time.Sleep(time.Millisecond)
		}
	}

	queries := int64(c.N)
	found := int64(0)

	t0 := time.Now()
	Parallel(c.Workers, func() {
		for {
			n := atomic.AddInt64(&queries, -1)
			if n < 0 {
				break
			}

			payload, _ := json.Marshal(JSON{
				"filter": JSON{"userId": n%10 + 1},
				"skip":   n % 100,
				"limit":  10,
			})
			resp, err := http.Post(c.Base+"/v1/cache:find", "application/json", bytes.NewReader(payload))
			if err != nil {
				fmt.Println("ERROR: find:", err.Error())
				os.Exit(4)
			}
			d := json.NewDecoder(resp.Body)
			for {
				row := JSON{}
				err := d.Decode(&row)
				if err == io.EOF {
					break
				}
				if err != nil {
					fmt.Println("ERROR: decode:", err.Error())
					break
				}
				atomic.AddInt64(&found, 1)
			}
			resp.Body.Close()
		}
	})

	took := time.Since(t0)
	Report("FIND", took,
		Metric{"workers", c.Workers},
		Metric{"queries", c.N},
		Metric{"rows found", found},
		Metric{"queries/sec", fmt.Sprintf("%.2f", float64(c.N)/took.Seconds())},
	)
}
