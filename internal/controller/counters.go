package controller

import "github.com/sebastiankruger/fruitsort-simulator/internal/core"

// GlobalCounters are the run-wide totals shown on the info panel
type GlobalCounters struct {
	Oranges         int            `json:"oranges"`
	Apples          int            `json:"apples"`
	RottenApples    int            `json:"rottenApples"`
	Deposits        core.BinCounts `json:"deposits"`
	Rejects         int            `json:"rejects"`
	CompletedCycles int            `json:"completedCycles"`
}

// NewGlobalCounters returns zeroed counters
func NewGlobalCounters() *GlobalCounters {
	return &GlobalCounters{Deposits: core.NewBinCounts()}
}

// RecordDetection increments the raw counter for a classified fruit
func (gc *GlobalCounters) RecordDetection(f core.FruitType) {
	switch f {
	case core.FruitOrange:
		gc.Oranges++
	case core.FruitApple:
		gc.Apples++
	case core.FruitRottenApple:
		gc.RottenApples++
	}
}

// RecordDeposit increments the cumulative counter of a bin
func (gc *GlobalCounters) RecordDeposit(b core.Bin) {
	gc.Deposits[b]++
}

// RecordReject increments the reject bin counter
func (gc *GlobalCounters) RecordReject() {
	gc.Rejects++
}

// Clone returns an independent copy
func (gc *GlobalCounters) Clone() GlobalCounters {
	out := *gc
	out.Deposits = gc.Deposits.Clone()
	return out
}
