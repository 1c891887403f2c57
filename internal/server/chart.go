package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// RenderPriceChart renders a PNG line chart of closing prices with a
// 20-bar moving average overlay. Returns raw PNG bytes.
func RenderPriceChart(ticker string, bars []models.PriceBar) ([]byte, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("need at least 2 price bars, got %d", len(bars))
	}

	xValues := make([]time.Time, len(bars))
	closeY := make([]float64, len(bars))
	for i, b := range bars {
		xValues[i] = b.Date
		closeY[i] = b.Close
	}

	const window = 20
	smaY := make([]float64, len(bars))
	sum := 0.0
	for i, b := range bars {
		sum += b.Close
		if i >= window {
			sum -= bars[i-window].Close
			smaY[i] = sum / window
		} else {
			smaY[i] = sum / float64(i+1)
		}
	}

	closeSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.0,
		},
		XValues: xValues,
		YValues: closeY,
	}

	smaSeries := chart.TimeSeries{
		Name: fmt.Sprintf("SMA %d", window),
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: smaY,
	}

	graph := chart.Chart{
		Title:  ticker + " Price",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			closeSeries,
			smaSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// handleSubjectChart handles GET /api/subjects/{ticker}/chart.png.
// Price history is fetched live; the result is not persisted.
func (s *Server) handleSubjectChart(w http.ResponseWriter, r *http.Request, ticker string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	facts, err := s.app.FactsClient.FetchFacts(r.Context(), ticker)
	if err != nil {
		if errors.Is(err, models.ErrDataUnavailable) {
			WriteError(w, http.StatusNotFound, fmt.Sprintf("No data for %s", ticker))
			return
		}
		WriteError(w, http.StatusBadGateway, fmt.Sprintf("Error fetching price history: %v", err))
		return
	}

	png, err := RenderPriceChart(ticker, facts.PriceHistory)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Cannot render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
