// Package oracle provides price references for native-asset settlement.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-stream/generic"
	"github.com/warp/payroll-stream/payroll"
)

// DefaultPrecision is the fractional precision feeds report answers in.
const DefaultPrecision int32 = 8

// =============================================================================
// STATIC FEED
// =============================================================================

// Static reports a fixed rate until Set is called.
type Static struct {
	mu    sync.RWMutex
	rate  payroll.Rate
	clock generic.Clock
}

// NewStatic reports price (fiat per native unit) stamped with the clock's time.
func NewStatic(price decimal.Decimal, clock generic.Clock) *Static {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	s := &Static{clock: clock}
	s.Set(price)
	return s
}

// Set replaces the reported price.
func (s *Static) Set(price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = payroll.NewRate(price, DefaultPrecision, time.Time{})
}

func (s *Static) CurrentRate(_ context.Context) (payroll.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.rate
	r.AsOf = s.clock.Now()
	return r, nil
}

// =============================================================================
// FILE FEED
// =============================================================================

// RatesFile is the on-disk format read by File.
//
//	{"base": "USD", "price": "2000.00", "updated_at": "2026-01-01T00:00:00Z"}
type RatesFile struct {
	Base      string          `json:"base"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// File reads the rate from a JSON file on every call, so an external
// process can update prices without restarting the server.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) CurrentRate(_ context.Context) (payroll.Rate, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return payroll.Rate{}, fmt.Errorf("oracle: read %s: %w", f.Path, err)
	}
	var rf RatesFile
	if err := json.Unmarshal(b, &rf); err != nil {
		return payroll.Rate{}, fmt.Errorf("oracle: parse %s: %w", f.Path, err)
	}
	if !rf.Price.IsPositive() {
		return payroll.Rate{}, fmt.Errorf("oracle: %s: %w", f.Path, generic.ErrInvalidRate)
	}
	return payroll.NewRate(rf.Price, DefaultPrecision, rf.UpdatedAt), nil
}

// SaveRatesFile writes rf to path.
func SaveRatesFile(path string, rf RatesFile) error {
	b, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
