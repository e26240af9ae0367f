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
package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cheesecloth/ccdata/data"
	"github.com/cheesecloth/ccdata/edgar"
	"github.com/cheesecloth/ccdata/healthcheck"
	"github.com/cheesecloth/ccdata/library"
	"github.com/hako/durafmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	fetchForms  []string
	fetchMax    int
	fetchStrict bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch ticker [ticker...]",
	Short: "Scrape filings for the given tickers and reconcile their facts into the library",
	Long: `The fetch sub-command resolves each ticker to its CIK, lists the company's
filings on EDGAR, downloads the tagged XBRL facts, and reconciles them into
the database one filing at a time. Each filing's batch is applied as a
single transaction; re-running fetch for a ticker that is already up to
date reports every fact as unchanged.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		lib, err := library.NewFromDB(ctx, viper.GetString("dbUrl"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to fact library")
		}
		defer lib.Close()

		client := edgar.New()
		failed := false

		for _, ticker := range args {
			ticker = strings.ToUpper(ticker)
			startTime := time.Now()

			if err := fetchTicker(ctx, lib, client, ticker); err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("fetch failed")
				failed = true
				continue
			}

			runTime := time.Since(startTime)
			log.Info().Str("Ticker", ticker).Str("RunTime", durafmt.Parse(runTime).String()).Msg("ticker complete")
		}

		if failed {
			if err := healthcheck.Fail(""); err != nil {
				log.Warn().Err(err).Msg("could not signal healthcheck failure")
			}
			return
		}

		if err := healthcheck.Ping(""); err != nil {
			log.Warn().Err(err).Msg("could not ping healthcheck")
		}
	},
}

func fetchTicker(ctx context.Context, lib *library.Library, client *edgar.Client, ticker string) error {
	cik, err := client.CIKForTicker(ctx, ticker)
	if err != nil {
		return err
	}

	filings, err := client.Filings(ctx, cik, fetchForms, fetchMax)
	if err != nil {
		return err
	}

	if len(filings) == 0 {
		log.Warn().Str("Ticker", ticker).Strs("Forms", fetchForms).Msg("no filings found")
		return nil
	}

	facts, err := client.CompanyFacts(ctx, cik)
	if err != nil {
		return err
	}

	grouped := edgar.GroupByFiling(facts)
	company := &data.Company{CIK: cik, Ticker: ticker}

	var total library.IngestSummary
	for _, filing := range filings {
		batch := grouped[filing.AccessionNumber]

		summary, err := saveWithRetry(ctx, lib, company, filing, batch)
		if err != nil {
			return err
		}

		total.Inserted += summary.Inserted
		total.Unchanged += summary.Unchanged
		total.Revised += summary.Revised
		total.Rejected += summary.Rejected
	}

	log.Info().
		Str("Ticker", ticker).
		Str("CIK", cik).
		Int("NumFilings", len(filings)).
		Int("Inserted", total.Inserted).
		Int("Unchanged", total.Unchanged).
		Int("Revised", total.Revised).
		Int("Rejected", total.Rejected).
		Msg("reconciled facts")

	return nil
}

// saveWithRetry applies one filing's batch, retrying once on a transient
// storage failure. Retries are safe because reconciliation is idempotent.
func saveWithRetry(ctx context.Context, lib *library.Library, company *data.Company, filing *data.Filing, batch []*data.Fact) (library.IngestSummary, error) {
	opts := library.IngestOptions{Strict: fetchStrict}

	summary, err := lib.SaveFacts(ctx, company, filing, batch, opts)

	var transient *library.TransientStorageError
	if errors.As(err, &transient) {
		log.Warn().Err(err).Str("AccessionNumber", filing.AccessionNumber).Msg("transient storage failure, retrying batch")
		summary, err = lib.SaveFacts(ctx, company, filing, batch, opts)
	}

	return summary, err
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSliceVar(&fetchForms, "forms", []string{"10-K"}, "form types to fetch (e.g. 10-K,10-Q)")
	fetchCmd.Flags().IntVar(&fetchMax, "max-filings", 0, "maximum number of filings per ticker (0 = no limit)")
	fetchCmd.Flags().BoolVar(&fetchStrict, "strict", false, "abort a filing's batch on the first malformed fact")
}
