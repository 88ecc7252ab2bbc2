// Package report posts stage completion reports to an external endpoint.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/config"
	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

// StageReport describes one completed stage
type StageReport struct {
	ReportID     string           `json:"reportId"`
	RunID        string           `json:"runId"`
	Stage        int              `json:"stage"`
	Final        bool             `json:"final"`
	Reason       string           `json:"reason,omitempty"`
	SimTime      float64          `json:"simTime"`
	Requirements map[core.Bin]int `json:"requirements"`
	Fill         core.BinCounts   `json:"fill"`
	Deposits     core.BinCounts   `json:"deposits"`
	Rejects      int              `json:"rejects"`
	Cycles       int              `json:"cycles"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Client sends reports to the configured endpoint
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a report client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		url: cfg.ReportEndpoint + cfg.ReportPath,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// URL returns the report endpoint
func (c *Client) URL() string { return c.url }

// SendStageReport posts a stage report. An unreachable endpoint is logged,
// not returned.
func (c *Client) SendStageReport(ctx context.Context, r *StageReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal stage report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", c.url).Msg("Failed to send stage report (endpoint may not be available)")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warn().
			Int("status", resp.StatusCode).
			Int("stage", r.Stage).
			Msg("Report endpoint returned error status")
	} else {
		log.Debug().
			Str("reportId", r.ReportID).
			Int("stage", r.Stage).
			Bool("final", r.Final).
			Msg("Stage report sent")
	}

	return nil
}
