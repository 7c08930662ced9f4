package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json2 "github.com/go-json-experiment/json"

	"github.com/fulldump/lazytable/record"
)

const (
	DefaultStartParam = "start"
	DefaultLimitParam = "limit"
)

// HTTP fetches pages with GET <Base>?<StartParam>=offset&<LimitParam>=limit
// and expects a JSON array of records in the response body.
type HTTP struct {
	Base       string
	StartParam string
	LimitParam string
	Client     *http.Client
}

func NewHTTP(base string) *HTTP {
	return &HTTP{
		Base:       base,
		StartParam: DefaultStartParam,
		LimitParam: DefaultLimitParam,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (h *HTTP) pageURL(offset, limit int) (string, error) {
	u, err := url.Parse(h.Base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(h.StartParam, strconv.Itoa(offset))
	q.Set(h.LimitParam, strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (h *HTTP) FetchPage(ctx context.Context, offset, limit int) ([]record.Raw, error) {

	if err := checkWindow(offset, limit); err != nil {
		return nil, err
	}

	pageURL, err := h.pageURL(offset, limit)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: h.Base, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: pageURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: http.MethodGet, URL: pageURL, StatusCode: resp.StatusCode}
	}

	rows := []record.Raw{}
	err = json2.UnmarshalRead(resp.Body, &rows)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: pageURL, Err: fmt.Errorf("decode page: %w", err)}
	}

	// Some endpoints ignore the limit parameter
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return rows, nil
}
