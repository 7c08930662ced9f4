package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

type JSON = map[string]interface{}

// Acceptance runs against a table mounted on a 45 record collection with the
// default page sizes: 30 rows first, then pages of 10.
func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	waitIdle := func() JSON {
		state := JSON{}
		for i := 0; i < 200; i++ {
			resp := apiRequest("GET", "/table").Do()
			state = JSON{}
			json.Unmarshal(resp.BodyBytes(), &state)
			if state["isLoading"] == false {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		return state
	}

	readLines := func(resp *apitest.Response) []JSON {
		items := []JSON{}
		d := json.NewDecoder(bytes.NewReader(resp.BodyBytes()))
		for {
			item := JSON{}
			err := d.Decode(&item)
			if err == io.EOF {
				break
			}
			if err != nil {
				biff.AssertNil(err)
				break
			}
			items = append(items, item)
		}
		return items
	}

	waitIdle()

	a.Alternative("Get table", func(a *biff.A) {
		resp := apiRequest("GET", "/table").Do()
		Save(resp, "Get table", `
			Returns the pagination state of the table.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		state := resp.BodyJson().(JSON)
		biff.AssertEqualJson(state["loadedCount"], 30)
		biff.AssertEqualJson(state["phase"], "idle")
		biff.AssertEqualJson(state["hasMore"], true)
		biff.AssertEqualJson(state["mounted"], true)
	})

	a.Alternative("Range changed far from the end", func(a *biff.A) {
		resp := apiRequest("POST", "/table:rangeChanged").
			WithBodyJson(JSON{"endIndex": 10}).Do()
		Save(resp, "Range changed - nothing to load", `
			The last visible row is far from the end of the loaded rows, nothing
			is requested.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		state := waitIdle()
		biff.AssertEqualJson(state["loadedCount"], 30)
		biff.AssertEqualJson(state["requests"], 1)
	})

	a.Alternative("Range changed near the end", func(a *biff.A) {
		resp := apiRequest("POST", "/table:rangeChanged").
			WithBodyJson(JSON{"endIndex": 25}).Do()
		Save(resp, "Range changed", `
			The last visible row is within the threshold of the end of the loaded
			rows, one more page is requested.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		state := waitIdle()
		biff.AssertEqualJson(state["loadedCount"], 40)
		biff.AssertEqualJson(state["requests"], 2)

		a.Alternative("Load until exhausted", func(a *biff.A) {
			resp := apiRequest("POST", "/table:loadMore").Do()
			Save(resp, "Load more", `
				Requests the next page. A short page marks the collection as
				exhausted.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			state := waitIdle()
			biff.AssertEqualJson(state["loadedCount"], 45)
			biff.AssertEqualJson(state["totalKnown"], 45)
			biff.AssertEqualJson(state["phase"], "exhausted")
			biff.AssertEqualJson(state["hasMore"], false)

			a.Alternative("Nothing else is requested", func(a *biff.A) {
				apiRequest("POST", "/table:loadMore").Do()
				state := waitIdle()
				biff.AssertEqualJson(state["requests"], 3)
			})
		})
	})

	a.Alternative("Range changed with negative index", func(a *biff.A) {
		resp := apiRequest("POST", "/table:rangeChanged").
			WithBodyJson(JSON{"endIndex": -1}).Do()
		Save(resp, "Range changed - invalid", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("List rows", func(a *biff.A) {
		resp := apiRequest("GET", "/table/rows?skip=28&limit=5").Do()
		Save(resp, "List rows", `
			Returns the loaded rows as JSON lines, projected to the visible
			columns.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		rows := readLines(resp)
		biff.AssertEqual(len(rows), 2)
		biff.AssertEqualJson(rows[0], JSON{"id": 29, "title": "Title 29", "body": "Body of record 29", "userId": 10})
		biff.AssertEqualJson(rows[1]["id"], 30)
	})

	a.Alternative("List rows with the largest limit", func(a *biff.A) {
		resp := apiRequest("GET", "/table/rows?skip=1&limit=9223372036854775807").Do()

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqual(len(readLines(resp)), 29)
	})

	a.Alternative("List rows with bad limit", func(a *biff.A) {
		resp := apiRequest("GET", "/table/rows?limit=ten").Do()

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("List columns", func(a *biff.A) {
		resp := apiRequest("GET", "/columns").Do()
		Save(resp, "List columns", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqualJson(resp.BodyJson(), []JSON{
			{"key": "id", "displayName": "ID", "width": 80, "isIndex": true, "visible": true},
			{"key": "title", "displayName": "Title", "width": 240, "visible": true},
			{"key": "body", "displayName": "Body", "visible": true},
			{"key": "userId", "displayName": "User", "width": 80, "visible": true},
		})
	})

	a.Alternative("Set selection", func(a *biff.A) {
		resp := apiRequest("POST", "/columns:setSelection").
			WithBodyJson(JSON{"keys": []string{"title", "unknown"}}).Do()
		Save(resp, "Set selection", `
			Replaces the visible columns. Unknown keys are ignored.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqualJson(resp.BodyJson(), JSON{"keys": []string{"title"}, "allSelected": false})

		a.Alternative("Rows are projected", func(a *biff.A) {
			resp := apiRequest("GET", "/table/rows?limit=1").Do()
			biff.AssertEqualJson(readLines(resp), []JSON{{"title": "Title 1"}})
		})
	})

	a.Alternative("Toggle all", func(a *biff.A) {
		resp := apiRequest("POST", "/columns:toggleAll").Do()
		Save(resp, "Toggle all", `
			Hides every column when all of them are visible, otherwise shows all
			of them.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqualJson(resp.BodyJson(), JSON{"keys": []string{}, "allSelected": false})

		a.Alternative("Toggle again", func(a *biff.A) {
			resp := apiRequest("POST", "/columns:toggleAll").Do()
			biff.AssertEqualJson(resp.BodyJson(), JSON{"keys": []string{"id", "title", "body", "userId"}, "allSelected": true})
		})
	})

	a.Alternative("Find in cache", func(a *biff.A) {
		resp := apiRequest("POST", "/cache:find").
			WithBodyJson(JSON{
				"filter": JSON{"userId": 3},
				"limit":  2,
			}).Do()
		Save(resp, "Find in cache", `
			Queries the rows stored in the local cache with a mongo like filter.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		rows := readLines(resp)
		biff.AssertEqual(len(rows), 2)
		biff.AssertEqualJson(rows[0]["id"], 2)
		biff.AssertEqualJson(rows[1]["id"], 12)
	})

	a.Alternative("Unknown resource", func(a *biff.A) {
		resp := apiRequest("GET", "/nothing-here").Do()

		biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
	})
}
