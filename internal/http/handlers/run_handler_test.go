// README: Run handler tests over an in-memory runner (no database).
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"taxisim/internal/http/handlers"
	"taxisim/internal/modules/network"
	"taxisim/internal/modules/order"
	"taxisim/internal/modules/sim"
	"taxisim/internal/types"
)

// buildTestRouter wires a minimal Gin engine with the run handler over a
// tiny line graph; runs are not persisted.
func buildTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coords := []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	edges := []network.Edge{
		{U: 0, V: 1, Length: 1, Time: 1},
		{U: 1, V: 2, Length: 1, Time: 1},
	}
	g, err := network.NewGraph(coords, edges)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	records := []order.Record{{ID: 1, PickupNode: 0, DropoffNode: 2, RequestTime: 0}}
	runner := sim.NewRunner(g, records)

	r := gin.New()
	h := handlers.NewRunHandler(runner, nil)
	r.POST("/api/runs", h.Create)
	r.GET("/api/runs/:id", h.Get)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRunReturnsReport(t *testing.T) {
	r := buildTestRouter(t)
	w := doRequest(r, http.MethodPost, "/api/runs", map[string]any{
		"time_window":         1,
		"taxi_count":          1,
		"match_strategy":      "nearest",
		"reposition_strategy": "random",
		"seed":                7,
		"until_step":          20,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Report struct {
			TotalOrders  int     `json:"total_orders"`
			ResponseRate float64 `json:"response_rate"`
		} `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Report.TotalOrders != 1 {
		t.Fatalf("total_orders = %d, want 1", resp.Report.TotalOrders)
	}
	if resp.Report.ResponseRate != 1.0 {
		t.Fatalf("response_rate = %v, want 1.0", resp.Report.ResponseRate)
	}
}

func TestCreateRunRejectsBadConfig(t *testing.T) {
	r := buildTestRouter(t)
	cases := []map[string]any{
		{"time_window": 0, "taxi_count": 1, "match_strategy": "nearest", "reposition_strategy": "random", "until_step": 1},
		{"time_window": 1, "taxi_count": 1, "match_strategy": "warp", "reposition_strategy": "random", "until_step": 1},
		{"time_window": 1, "taxi_count": 1, "match_strategy": "nearest", "reposition_strategy": "random", "until_step": 0},
	}
	for i, body := range cases {
		if w := doRequest(r, http.MethodPost, "/api/runs", body); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d, want 400: %s", i, w.Code, w.Body.String())
		}
	}
}

func TestGetRunWithoutStore(t *testing.T) {
	r := buildTestRouter(t)
	if w := doRequest(r, http.MethodGet, "/api/runs/1", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
