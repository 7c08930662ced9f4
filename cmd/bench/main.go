package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/fulldump/goconfig"
)

type Config struct {
	Test    string `usage:"name of the test: ALL | SCROLL | FIND"`
	Base    string `usage:"base URL, empty to start an embedded server"`
	N       int    `usage:"number of rows to load"`
	Workers int    `usage:"number of workers"`
}

var cleanups []func()

func main() {

	defer func() {
		fmt.Println("Cleaning up...")
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	c := Config{
		Test:    "scroll",
		Base:    "",
		N:       10_000,
		Workers: 16,
	}
	goconfig.Read(&c)

	switch strings.ToUpper(c.Test) {
	case "ALL":
		TestScroll(c)
		TestFind(c)
	case "SCROLL":
		TestScroll(c)
	case "FIND":
		TestFind(c)
	default:
		log.Fatalf("Unknown test %s", c.Test)
	}

}
