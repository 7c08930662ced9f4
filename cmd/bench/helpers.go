package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/fulldump/lazytable/bootstrap"
	"github.com/fulldump/lazytable/configuration"
)

type JSON = map[string]any

func Parallel(workers int, f func()) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

func TempDir() (string, func()) {
	dir, err := os.MkdirTemp("", "lazytable_bench_*")
	if err != nil {
		panic("Could not create temp directory: " + err.Error())
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

// CreateServer boots a table over an unbounded demo collection on a free port.
func CreateServer(c *Config) (start, stop func()) {
	dir, cleanup := TempDir()
	cleanups = append(cleanups, cleanup)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	conf := configuration.Default()
	conf.Dir = dir
	conf.HttpAddr = addr
	conf.DemoTotal = -1
	conf.ShowBanner = false
	c.Base = "http://" + addr

	start, stop, err = bootstrap.Bootstrap(&conf, nil)
	if err != nil {
		panic(err)
	}

	return start, stop
}

type State struct {
	LoadedCount int    `json:"loadedCount"`
	IsLoading   bool   `json:"isLoading"`
	Mounted     bool   `json:"mounted"`
	LastError   string `json:"lastError"`
}

func Call(client *http.Client, method, url string, body any) (*State, error) {

	payload := []byte{}
	if body != nil {
		payload, _ = json.Marshal(body)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	state := &State{}
	err = json.NewDecoder(resp.Body).Decode(state)
	return state, err
}

func WaitMounted(base string) {
	for {
		state, err := Call(http.DefaultClient, "GET", base+"/v1/table", nil)
		if err == nil && state.Mounted && !state.IsLoading {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
