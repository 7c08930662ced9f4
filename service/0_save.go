package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/fulldump/apitest"
)

// Save writes a markdown example of the request and response into the
// directory named by API_EXAMPLES_PATH. Nothing is written when it is unset.
func Save(response *apitest.Response, title, description string) {

	examplesPath := os.Getenv("API_EXAMPLES_PATH")
	if examplesPath == "" {
		return
	}

	filename := path.Join(examplesPath, slug(title)+".md")
	err := os.WriteFile(filename, []byte(renderExample(response, title, description)), 0666)
	if err != nil {
		fmt.Println("Saving err:", err)
	}
}

func renderExample(response *apitest.Response, title, description string) string {

	request := response.Request

	target := request.URL.Path
	if request.URL.RawQuery != "" {
		target += "?" + request.URL.RawQuery
	}

	requestBody := formatBody(response.BodyRequestString())

	s := &strings.Builder{}

	fmt.Fprintf(s, "# %s\n", title)
	fmt.Fprintf(s, "%s\n", cropTabs(description))

	s.WriteString("Curl example:\n\n```sh\ncurl ")
	if request.Method != "GET" {
		fmt.Fprintf(s, "-X %s ", request.Method)
	}
	fmt.Fprintf(s, "\"http://localhost:8080%s\"", target)
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			fmt.Fprintf(s, " \\\n-H \"%s: %s\"", k, v)
		}
	}
	if requestBody != "" {
		fmt.Fprintf(s, " \\\n-d '%s'", requestBody)
	}
	s.WriteString("\n```\n\n\n")

	s.WriteString("HTTP request/response example:\n\n```http\n")
	fmt.Fprintf(s, "%s %s %s\n", request.Method, target, request.Proto)
	s.WriteString("Host: localhost:8080\n")
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			fmt.Fprintf(s, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintf(s, "\n%s\n\n", requestBody)

	fmt.Fprintf(s, "%s %s\n", response.Proto, response.Status)
	for _, k := range sortedKeys(response.Header) {
		if k == "Date" {
			s.WriteString("Date: Sat, 17 Oct 2026 10:00:00 GMT\n")
			continue
		}
		for _, v := range response.Header[k] {
			fmt.Fprintf(s, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintf(s, "\n%s\n```\n\n\n", formatBody(response.BodyString()))

	return s.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// formatBody indents a JSON document. JSON lines are kept one per line.
// Anything else is returned untouched.
func formatBody(body string) string {

	items := []any{}
	d := json.NewDecoder(strings.NewReader(body))
	for {
		var item any
		err := d.Decode(&item)
		if err == io.EOF {
			break
		}
		if err != nil {
			return body
		}
		items = append(items, item)
	}

	switch len(items) {
	case 0:
		return body
	case 1:
		b, err := json.MarshalIndent(items[0], "", "    ")
		if err != nil {
			return body
		}
		return string(b)
	}

	lines := &bytes.Buffer{}
	e := json.NewEncoder(lines)
	for _, item := range items {
		e.Encode(item)
	}
	return strings.TrimSuffix(lines.String(), "\n")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slug(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "_"), "_")
}

// cropTabs removes the indentation shared by every non blank line of a raw
// string literal.
func cropTabs(d string) string {

	lines := strings.Split(d, "\n")

	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, "\t"))
		if common < 0 || n < common {
			common = n
		}
	}
	if common <= 0 {
		return strings.TrimSpace(d) + "\n"
	}

	prefix := strings.Repeat("\t", common)
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}
