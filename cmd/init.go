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
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/cheesecloth/ccdata/db"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and create the fact library schema",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			dbURL     string
			userAgent string
		)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&dbURL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),

				huh.NewInput().
					Title("Declared User-Agent for SEC EDGAR requests (the SEC fair-access policy requires a contact, e.g. 'Jane Doe jane@example.com')").
					Value(&userAgent),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		migrateURL := strings.Replace(dbURL, "postgres://", "pgx5://", -1)
		err = db.Migrate(migrateURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		// save database settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		config := map[string]interface{}{
			"dburl": dbURL,
			"edgar": map[string]string{
				"useragent": userAgent,
			},
		}

		configFN := filepath.Join(home, ".ccdata.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving database connection info to config file")
		configData, err := toml.Marshal(config)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your fact library has been initialized")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
