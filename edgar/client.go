// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/cheesecloth/ccdata/data"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

const (
	defaultWWWBaseURL  = "https://www.sec.gov"
	defaultDataBaseURL = "https://data.sec.gov"
)

var (
	ErrTickerNotFound = errors.New("ticker not found")
	ErrFetch          = errors.New("edgar request failed")
)

// Client talks to the SEC EDGAR APIs. All requests share a single rate
// limiter sized to the SEC fair-access policy (10 requests per second) and
// carry the declared User-Agent the policy requires.
type Client struct {
	http        *resty.Client
	limiter     *rate.Limiter
	wwwBaseURL  string
	dataBaseURL string

	tickerToCIK *haxmap.Map[string, string]
	mapLoaded   bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the www.sec.gov and data.sec.gov endpoints.
func WithBaseURLs(www string, dataHost string) Option {
	return func(client *Client) {
		client.wwwBaseURL = www
		client.dataBaseURL = dataHost
	}
}

// New creates an EDGAR client. The User-Agent is read from the
// edgar.useragent configuration key; the SEC rejects anonymous clients.
func New(opts ...Option) *Client {
	httpClient := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetHeader("User-Agent", viper.GetString("edgar.useragent"))
	httpClient.JSONMarshal = json.Marshal
	httpClient.JSONUnmarshal = json.Unmarshal

	client := &Client{
		http:        httpClient,
		limiter:     rate.NewLimiter(rate.Limit(10), 10),
		wwwBaseURL:  defaultWWWBaseURL,
		dataBaseURL: defaultDataBaseURL,
		tickerToCIK: haxmap.New[string, string](),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (client *Client) get(ctx context.Context, url string, out interface{}) error {
	if err := client.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := client.http.R().
		SetContext(ctx).
		SetResult(out).
		Get(url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}

	if resp.StatusCode() >= 400 {
		return fmt.Errorf("%w: %s returned status %d", ErrFetch, url, resp.StatusCode())
	}

	return nil
}

type tickerEntry struct {
	CIK    json.Number `json:"cik_str"`
	Ticker string      `json:"ticker"`
	Title  string      `json:"title"`
}

func (client *Client) loadTickerMap(ctx context.Context) error {
	if client.mapLoaded {
		return nil
	}

	entries := make(map[string]tickerEntry)
	url := client.wwwBaseURL + "/files/company_tickers.json"
	if err := client.get(ctx, url, &entries); err != nil {
		return err
	}

	for _, entry := range entries {
		cik := entry.CIK.String()
		if len(cik) < 10 {
			cik = strings.Repeat("0", 10-len(cik)) + cik
		}
		client.tickerToCIK.Set(strings.ToUpper(entry.Ticker), cik)
	}

	client.mapLoaded = true
	log.Debug().Int("NumTickers", len(entries)).Msg("loaded EDGAR ticker map")

	return nil
}

// CIKForTicker resolves a trading symbol to its zero-padded 10-digit CIK.
func (client *Client) CIKForTicker(ctx context.Context, ticker string) (string, error) {
	if err := client.loadTickerMap(ctx); err != nil {
		return "", err
	}

	cik, ok := client.tickerToCIK.Get(strings.ToUpper(ticker))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTickerNotFound, ticker)
	}

	return cik, nil
}

type submissionsResponse struct {
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// Filings returns a company's recent filings filtered by form type, newest
// first as reported by EDGAR. maxFilings of zero means no cap.
func (client *Client) Filings(ctx context.Context, cik string, forms []string, maxFilings int) ([]*data.Filing, error) {
	if !data.ValidCIK(cik) {
		return nil, &data.ValidationError{Field: "cik", Reason: fmt.Sprintf("%q is not a 10-digit zero-padded CIK", cik)}
	}

	var payload submissionsResponse
	url := fmt.Sprintf("%s/submissions/CIK%s.json", client.dataBaseURL, cik)
	if err := client.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	recent := payload.Filings.Recent
	if len(recent.AccessionNumber) != len(recent.Form) || len(recent.AccessionNumber) != len(recent.PrimaryDocument) {
		return nil, fmt.Errorf("%w: submissions payload has mismatched array lengths", ErrFetch)
	}

	wanted := make(map[string]bool, len(forms))
	for _, form := range forms {
		wanted[form] = true
	}

	filings := make([]*data.Filing, 0, len(recent.AccessionNumber))
	for idx, accession := range recent.AccessionNumber {
		if len(wanted) > 0 && !wanted[recent.Form[idx]] {
			continue
		}

		filings = append(filings, &data.Filing{
			CIK:             cik,
			AccessionNumber: accession,
			Form:            recent.Form[idx],
			PrimaryDocument: recent.PrimaryDocument[idx],
		})

		if maxFilings > 0 && len(filings) == maxFilings {
			break
		}
	}

	return filings, nil
}
