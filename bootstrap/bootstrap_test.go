package bootstrap

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fulldump/lazytable/configuration"
)

func freeAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().String()
}

type tableState struct {
	LoadedCount int    `json:"loadedCount"`
	Phase       string `json:"phase"`
	Mounted     bool   `json:"mounted"`
	LastError   string `json:"lastError"`
}

func getState(addr string) (tableState, error) {
	state := tableState{}
	resp, err := http.Get("http://" + addr + "/v1/table")
	if err != nil {
		return state, err
	}
	defer resp.Body.Close()
	err = json.NewDecoder(resp.Body).Decode(&state)
	return state, err
}

func TestBootstrap(t *testing.T) {

	for _, backend := range []string{"jsonl", "sqlite", "memory"} {
		t.Run(backend, func(t *testing.T) {

			c := configuration.Default()
			c.HttpAddr = freeAddr(t)
			c.Dir = t.TempDir()
			c.CacheBackend = backend
			c.DemoTotal = 35
			c.Annotate = true

			start, stop, err := Bootstrap(&c, zaptest.NewLogger(t))
			require.NoError(t, err)

			done := make(chan struct{})
			go func() {
				defer close(done)
				start()
			}()

			require.Eventually(t, func() bool {
				state, err := getState(c.HttpAddr)
				return err == nil && state.Mounted && state.LoadedCount == 30 && state.Phase == "idle"
			}, 5*time.Second, 10*time.Millisecond)

			// exhaust the demo collection
			resp, err := http.Post("http://"+c.HttpAddr+"/v1/table:rangeChanged", "application/json", strings.NewReader(`{"endIndex":29}`))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			require.Eventually(t, func() bool {
				state, err := getState(c.HttpAddr)
				return err == nil && state.Phase == "exhausted"
			}, 5*time.Second, 10*time.Millisecond)

			state, err := getState(c.HttpAddr)
			require.NoError(t, err)
			assert.Equal(t, 35, state.LoadedCount)
			assert.Empty(t, state.LastError)

			resp, err = http.Get("http://" + c.HttpAddr + "/v1/table/rows?skip=34")
			require.NoError(t, err)
			row := map[string]any{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&row))
			resp.Body.Close()
			assert.Equal(t, float64(35), row["id"])

			stop()
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("start did not return after stop")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {

	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger("loud")
	assert.Error(t, err)
}
