package app

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"stockForecaster/internal/ports"
)

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.^=-]{0,15}$`)

// Target names the files one prediction reads and writes.
type Target struct {
	Ticker    string
	DataPath  string
	ModelPath string
}

// TargetResolver maps tickers to file locations.
type TargetResolver struct {
	DataDir  string
	ModelDir string
	// Shared makes every ticker use one series and one model file.
	Shared bool
}

// Shared file names used when TargetResolver.Shared is set.
const (
	SharedDataFile  = "stock_data.csv"
	SharedModelFile = "stock_model.json"
)

// Resolve returns the target for an already normalised ticker.
func (r TargetResolver) Resolve(ticker string) Target {
	if r.Shared {
		return Target{
			Ticker:    ticker,
			DataPath:  filepath.Join(r.DataDir, SharedDataFile),
			ModelPath: filepath.Join(r.ModelDir, SharedModelFile),
		}
	}
	return Target{
		Ticker:    ticker,
		DataPath:  filepath.Join(r.DataDir, ticker+".csv"),
		ModelPath: filepath.Join(r.ModelDir, ticker+".model.json"),
	}
}

// NormalizeTicker trims and upper-cases a ticker and checks that it is safe to
// use as a file name.
func NormalizeTicker(raw string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if t == "" {
		return "", fmt.Errorf("%w: ticker is required", ports.ErrInvalidRequest)
	}
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: invalid ticker %q", ports.ErrInvalidRequest, raw)
	}
	return t, nil
}
