// Command mockapi runs a local stand-in for the R-ONE statistics API so the
// dashboard can be developed without a service key or network access. Values
// are deterministic per (region, month): each region gets a stable trend
// derived from its code, so repeated runs chart the same lines.
//
// Usage:
//
//	go run ./cmd/mockapi -addr :9999 -fail-rate 0.05
//	RONE_BASE_URL=http://localhost:9999/SttsApiTblData.do go run ./cmd/dashboard
package main

import (
	"encoding/json"
	"flag"
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	failRate := flag.Float64("fail-rate", 0, "fraction of requests answered with HTTP 500 (0..1)")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("/SttsApiTblData.do", handleTblData(*failRate))

	log.Printf("mock r-one api listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func handleTblData(failRate float64) http.HandlerFunc {
	// A rate of 0.05 fails every 20th request.
	var failEvery int64
	if failRate > 0 {
		failEvery = int64(1 / failRate)
		if failEvery < 1 {
			failEvery = 1
		}
	}

	var requests atomic.Int64
	return func(w http.ResponseWriter, r *http.Request) {
		if failEvery > 0 && requests.Add(1)%failEvery == 0 {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}

		clsID := r.URL.Query().Get("CLS_ID")
		yyyymm := r.URL.Query().Get("WRTTIME_IDTFR_ID")
		if clsID == "" || yyyymm == "" {
			http.Error(w, "CLS_ID and WRTTIME_IDTFR_ID are required", http.StatusBadRequest)
			return
		}
		month, err := domain.ParseMonth(yyyymm)
		if err != nil {
			http.Error(w, "WRTTIME_IDTFR_ID must be YYYYMM", http.StatusBadRequest)
			return
		}

		value := syntheticIndex(clsID, month)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"SttsApiTblData": []any{
				map[string]any{"head": []any{map[string]any{"list_total_count": 1}}},
				map[string]any{"row": []any{map[string]any{
					"CLS_ID":           clsID,
					"WRTTIME_IDTFR_ID": yyyymm,
					"DTA_VAL":          value,
				}}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("encode response: %v", err)
		}
	}
}

// syntheticIndex produces a plausible index value: base 100 in January 2020,
// drifting by a per-region monthly rate in [-0.5, +0.5] with a small
// seasonal wiggle. Deterministic per (region, month).
func syntheticIndex(clsID string, month domain.Month) float64 {
	h := fnv.New32a()
	h.Write([]byte(clsID))
	seed := h.Sum32()

	drift := (float64(seed%1000)/1000.0 - 0.5)
	elapsed := monthsSince(domain.Month{Year: 2020, Mon: 1}, month)
	seasonal := 0.3 * math.Sin(2*math.Pi*float64(month.Mon)/12)

	v := 100 + drift*float64(elapsed) + seasonal
	return math.Round(v*10) / 10
}

func monthsSince(base, m domain.Month) int {
	return (m.Year-base.Year)*12 + int(m.Mon) - int(base.Mon)
}

