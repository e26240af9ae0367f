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
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cheesecloth/ccdata/data"
	"github.com/cheesecloth/ccdata/library"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	factsTicker    string
	factsCIK       string
	factsQName     string
	factsLocal     string
	factsAccession string
	factsFrom      string
	factsTo        string
	factsDims      []string
	factsNoDims    bool
	factsLimit     int
	factsCSV       string
)

type factExport struct {
	CIK             string `csv:"cik"`
	AccessionNumber string `csv:"accession_number"`
	QName           string `csv:"qname"`
	PeriodType      string `csv:"period_type"`
	Value           string `csv:"value"`
	InstantDate     string `csv:"instant_date"`
	StartDate       string `csv:"start_date"`
	EndDate         string `csv:"end_date"`
	Unit            string `csv:"unit"`
	Decimals        string `csv:"decimals"`
	Dimensions      string `csv:"dimensions"`
}

// factsCmd represents the facts command
var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Query stored facts by company, element, date range, and dimensions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		filter, err := buildFactFilter()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid filter")
		}

		lib, err := library.NewFromDB(ctx, viper.GetString("dbUrl"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to fact library")
		}
		defer lib.Close()

		facts, err := lib.Facts(ctx, filter)
		if err != nil {
			log.Fatal().Err(err).Msg("query failed")
		}

		if factsCSV != "" {
			if err := writeFactsCSV(facts, factsCSV); err != nil {
				log.Fatal().Err(err).Str("FileName", factsCSV).Msg("could not write CSV")
			}
			log.Info().Int("NumFacts", len(facts)).Str("FileName", factsCSV).Msg("facts exported")
			return
		}

		printFactsTable(facts)
	},
}

func buildFactFilter() (library.FactFilter, error) {
	filter := library.FactFilter{
		CIK:             factsCIK,
		Ticker:          factsTicker,
		QName:           factsQName,
		LocalName:       factsLocal,
		AccessionNumber: factsAccession,
		NoDimensions:    factsNoDims,
		Limit:           factsLimit,
	}

	if factsFrom != "" {
		from, err := time.Parse("2006-01-02", factsFrom)
		if err != nil {
			return filter, fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
		}
		filter.From = from
	}

	if factsTo != "" {
		to, err := time.Parse("2006-01-02", factsTo)
		if err != nil {
			return filter, fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
		}
		filter.To = to
	}

	if len(factsDims) > 0 {
		filter.Dimensions = make(map[string]string, len(factsDims))
		for _, pair := range factsDims {
			axis, member, found := strings.Cut(pair, "=")
			if !found || axis == "" {
				return filter, fmt.Errorf("--dimension must be axis=member, got %q", pair)
			}
			filter.Dimensions[axis] = member
		}
	}

	return filter, nil
}

func exportRow(fact *data.Fact) factExport {
	row := factExport{
		CIK:             fact.CIK,
		AccessionNumber: fact.AccessionNumber,
		QName:           fact.QName,
		PeriodType:      string(fact.PeriodType),
		Dimensions:      data.CanonicalDimensions(fact.Dimensions),
	}

	if fact.Value != nil {
		row.Value = *fact.Value
	}
	if fact.Unit != nil {
		row.Unit = *fact.Unit
	}
	if fact.Decimals != nil {
		row.Decimals = strconv.Itoa(*fact.Decimals)
	}
	if fact.InstantDate != nil {
		row.InstantDate = fact.InstantDate.Format("2006-01-02")
	}
	if fact.StartDate != nil {
		row.StartDate = fact.StartDate.Format("2006-01-02")
	}
	if fact.EndDate != nil {
		row.EndDate = fact.EndDate.Format("2006-01-02")
	}

	return row
}

func writeFactsCSV(facts []*data.Fact, fileName string) error {
	rows := make([]factExport, 0, len(facts))
	for _, fact := range facts {
		rows = append(rows, exportRow(fact))
	}

	fh, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer fh.Close()

	return gocsv.Marshal(&rows, fh)
}

func printFactsTable(facts []*data.Fact) {
	if len(facts) == 0 {
		fmt.Println("(no facts match)")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QNAME\tPERIOD\tDATE\tVALUE\tUNIT\tACCESSION")

	for _, fact := range facts {
		row := exportRow(fact)

		date := row.InstantDate
		if fact.PeriodType == data.Duration {
			date = row.StartDate + ".." + row.EndDate
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.QName, row.PeriodType, date, row.Value, row.Unit, row.AccessionNumber)
	}

	w.Flush()
}

func init() {
	rootCmd.AddCommand(factsCmd)

	factsCmd.Flags().StringVar(&factsTicker, "ticker", "", "filter by company ticker")
	factsCmd.Flags().StringVar(&factsCIK, "cik", "", "filter by company CIK")
	factsCmd.Flags().StringVar(&factsQName, "qname", "", "filter by qualified element name (SQL LIKE pattern)")
	factsCmd.Flags().StringVar(&factsLocal, "local-name", "", "filter by local element name")
	factsCmd.Flags().StringVar(&factsAccession, "accession", "", "filter by accession number")
	factsCmd.Flags().StringVar(&factsFrom, "from", "", "earliest period date (YYYY-MM-DD)")
	factsCmd.Flags().StringVar(&factsTo, "to", "", "latest period date (YYYY-MM-DD)")
	factsCmd.Flags().StringSliceVar(&factsDims, "dimension", nil, "require axis=member dimension (repeatable)")
	factsCmd.Flags().BoolVar(&factsNoDims, "no-dimensions", false, "only facts with an empty dimension mapping")
	factsCmd.Flags().IntVar(&factsLimit, "limit", 50, "maximum rows to return (0 = no limit)")
	factsCmd.Flags().StringVar(&factsCSV, "csv", "", "write results to a CSV file instead of stdout")
}
