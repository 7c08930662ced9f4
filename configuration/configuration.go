package configuration

import (
	"time"
)

type Configuration struct {
	HttpAddr          string        `usage:"HTTP address"`
	Dir               string        `usage:"data directory for the local cache"`
	CacheBackend      string        `usage:"local cache backend: jsonl, sqlite or memory"`
	CacheMemoRows     int64         `usage:"rows memoized in memory in front of the cache, 0 disables it"`
	SourceBase        string        `usage:"remote collection URL, empty to serve the demo collection from this process"`
	StartParam        string        `usage:"query parameter carrying the page offset"`
	LimitParam        string        `usage:"query parameter carrying the page size"`
	InitialPage       int           `usage:"rows requested on mount"`
	PageSize          int           `usage:"rows requested per page"`
	Threshold         int           `usage:"load more when the visible window ends this close to the loaded end"`
	TickInterval      time.Duration `usage:"background pagination interval, 0 disables it"`
	RetryAttempts     int           `usage:"attempts per remote page"`
	RetryDelay        time.Duration `usage:"delay before the first retry, doubled on every attempt"`
	ResetOnMount      bool          `usage:"wipe the local cache every time the table is mounted"`
	Annotate          bool          `usage:"add the computed extraField to every row"`
	DemoTotal         int           `usage:"size of the demo collection served at /posts, negative for unbounded"`
	EnableCompression bool          `usage:"gzip responses"`
	LogLevel          string        `usage:"debug, info, warn or error"`
	Version           bool          `usage:"show version and exit"`
	ShowBanner        bool          `usage:"show big banner"`
	ShowConfig        bool          `usage:"print config"`
}

func Default() Configuration {
	return Configuration{
		HttpAddr:          "127.0.0.1:8080",
		Dir:               "data",
		CacheBackend:      "jsonl",
		CacheMemoRows:     10000,
		SourceBase:        "",
		StartParam:        "start",
		LimitParam:        "limit",
		InitialPage:       30,
		PageSize:          10,
		Threshold:         5,
		TickInterval:      0,
		RetryAttempts:     3,
		RetryDelay:        200 * time.Millisecond,
		ResetOnMount:      true,
		Annotate:          false,
		DemoTotal:         1000,
		EnableCompression: true,
		LogLevel:          "info",
		ShowBanner:        true,
	}
}
