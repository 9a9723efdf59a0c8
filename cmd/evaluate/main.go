package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neurallempire-signal-engine/config"
	"neurallempire-signal-engine/internal/engine"
	"neurallempire-signal-engine/internal/market"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// discardStore satisfies the orchestrator's persistence dependency for
// offline runs where nothing should be written.
type discardStore struct{}

func (discardStore) InsertSignal(context.Context, *engine.TradingSignal) error { return nil }

func main() {
	// Pick up .env from the working directory or next to the binary
	exe, _ := os.Executable()
	godotenv.Load()
	godotenv.Load(filepath.Join(filepath.Dir(exe), ".env"))

	initConfig := flag.Bool("init-config", false, "write a sample config.json and exit")
	sample := flag.Bool("sample", false, "write a sample evaluation request to sample_request.json and exit")
	pretty := flag.Bool("pretty", true, "indent the JSON verdict")
	flag.Parse()

	if *initConfig {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			fmt.Printf("Failed to write config.json: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote config.json")
		return
	}

	if *sample {
		if err := writeSampleRequest("sample_request.json"); err != nil {
			fmt.Printf("Failed to write sample request: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote sample_request.json")
		return
	}

	if flag.NArg() != 1 {
		fmt.Println("Usage: evaluate [flags] <request.json>")
		fmt.Println()
		fmt.Println("Runs the seven-layer signal pipeline against one request fixture")
		fmt.Println("without touching PostgreSQL or Redis.")
		fmt.Println()
		flag.PrintDefaults()
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	var req engine.SignalRequest
	if err := json.Unmarshal(data, &req); err != nil {
		fmt.Printf("Failed to parse request: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	orchestrator := engine.NewOrchestrator(engine.Config{
		MaxOpenPositions:    cfg.EngineConfig.MaxOpenPositions,
		MaxPortfolioRiskPct: cfg.EngineConfig.MaxPortfolioRiskPct,
		StopLossPct:         cfg.EngineConfig.StopLossPct,
		TargetPct:           cfg.EngineConfig.TargetPct,
	}, discardStore{}, nil, zerolog.Nop())

	resp, err := orchestrator.Evaluate(context.Background(), &req)
	if err != nil {
		fmt.Printf("Evaluation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("========================================")
	fmt.Printf("  %s %.0f %s %s\n", req.Symbol, req.Strike, req.OptionType, req.SignalType)
	fmt.Printf("  Decision: %s (score %.2f)\n", resp.Recommendation, resp.OverallScore)
	if resp.RejectionReason != "" {
		fmt.Printf("  Reason:   %s\n", resp.RejectionReason)
	}
	if resp.ExecutionDetails != nil {
		fmt.Printf("  Entry:    %.2f  Stop: %.2f  Target: %.2f  Qty: %d\n",
			resp.ExecutionDetails.EntryPrice, resp.ExecutionDetails.StopLoss,
			resp.ExecutionDetails.Target, resp.ExecutionDetails.Quantity)
	}
	fmt.Println("========================================")

	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(resp, "", "  ")
	} else {
		out, err = json.Marshal(resp)
	}
	if err != nil {
		fmt.Printf("Failed to encode verdict: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// writeSampleRequest emits a complete request fixture so callers can see
// every field the pipeline consumes.
func writeSampleRequest(filename string) error {
	ist := time.FixedZone("IST", 5*3600+30*60)
	asOf := time.Date(2025, time.June, 10, 10, 30, 0, 0, ist)
	expiry := time.Date(2025, time.June, 26, 15, 30, 0, 0, ist)

	daily := make([]market.Candle, 80)
	price := 24000.0
	for i := range daily {
		daily[i] = market.Candle{
			Timestamp: asOf.AddDate(0, 0, i-len(daily)),
			Open:      price,
			High:      price + 45,
			Low:       price - 15,
			Close:     price + 20,
			Volume:    1_500_000,
		}
		price += 20
	}

	intraday := func(n int, step time.Duration) []market.Candle {
		bars := make([]market.Candle, n)
		p := 25400.0
		for i := range bars {
			bars[i] = market.Candle{
				Timestamp: asOf.Add(-time.Duration(n-i) * step),
				Open:      p,
				High:      p + 12,
				Low:       p - 4,
				Close:     p + 8,
				Volume:    180_000,
			}
			p += 8
		}
		return bars
	}

	var strikes []market.StrikeData
	for strike := 25400.0; strike <= 26000.0; strike += 100 {
		strikes = append(strikes, market.StrikeData{
			Strike:       strike,
			CallOI:       60000,
			PutOI:        90000,
			CallOIChange: 8000,
			PutOIChange:  60000,
			CallVolume:   42000,
			PutVolume:    55000,
			CallLTP:      150,
			PutLTP:       80,
			ImpliedVol:   14,
		})
	}

	req := engine.SignalRequest{
		Symbol:         "NIFTY",
		Spot:           25600,
		Strike:         25700,
		Expiry:         expiry,
		OptionType:     market.OptionCall,
		SignalType:     market.SignalBuyCall,
		VIX:            14,
		VIXHistory:     []float64{13.2, 13.8, 14.5, 14.1, 13.9, 14.0},
		History:        daily,
		HourlyBars:     intraday(60, time.Hour),
		FifteenMinBars: intraday(60, 15*time.Minute),
		FiveMinBars:    intraday(60, 5*time.Minute),
		Chain: &market.OptionChain{
			Symbol:       "NIFTY",
			Expiry:       expiry,
			ATMStrike:    25600,
			TargetStrike: 25700,
			Strikes:      strikes,
		},
		Events: []market.CalendarEvent{
			{Name: "RBI policy decision", Time: asOf.AddDate(0, 0, 7), Severity: market.SeverityHigh},
		},
		Market: market.MarketStatus{
			CurrentVolume: 1_800_000,
			AverageVolume: 1_500_000,
		},
		Portfolio: &market.PortfolioState{
			TotalCapital:     1_000_000,
			AvailableCapital: 800_000,
			History: market.TradeStats{
				TotalTrades:  50,
				WinRate:      0.55,
				AvgWin:       1500,
				AvgLoss:      1000,
				ProfitFactor: 1.8,
			},
		},
		AsOf:    asOf,
		LotSize: 75,
	}

	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
