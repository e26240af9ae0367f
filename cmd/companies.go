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
	"text/tabwriter"

	"github.com/cheesecloth/ccdata/library"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xeonx/timeago"
)

// companiesCmd represents the companies command
var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List companies tracked by the fact library",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		lib, err := library.NewFromDB(ctx, viper.GetString("dbUrl"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to fact library")
		}
		defer lib.Close()

		companies, err := lib.Companies(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not list companies")
		}

		if len(companies) == 0 {
			fmt.Println("no companies in the library yet -- run `ccdata fetch TICKER` first")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tCIK\tLAST UPDATED")
		for _, company := range companies {
			fmt.Fprintf(w, "%s\t%s\t%s\n", company.Ticker, company.CIK, timeago.English.Format(company.UpdatedAt))
		}
		w.Flush()

		total, err := lib.TotalFacts(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not count facts")
		}
		fmt.Printf("\n%d companies, %d facts\n", len(companies), total)
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}
