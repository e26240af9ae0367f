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
package library

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Library is a handle on the fact database. Sessions are acquired from the
// pool per operation and released on all exit paths; there is no implicit
// global connection state.
type Library struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// Connect to the database configured for the library
func (lib *Library) Connect(ctx context.Context) error {
	if lib.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, lib.DBUrl)
	if err != nil {
		return classifyStorageErr(err)
	}
	lib.Pool = pool

	return nil
}

// Close the database pool
func (lib *Library) Close() {
	lib.Pool.Close()
}

// NewFromDB creates a library handle and verifies connectivity
func NewFromDB(ctx context.Context, dbURL string) (*Library, error) {
	lib := &Library{DBUrl: dbURL}
	if err := lib.Connect(ctx); err != nil {
		return nil, err
	}

	if err := lib.Pool.Ping(ctx); err != nil {
		lib.Close()
		return nil, classifyStorageErr(err)
	}

	return lib, nil
}

// TotalFacts returns the number of facts stored in the library
func (lib *Library) TotalFacts(ctx context.Context) (int, error) {
	conn, err := lib.Pool.Acquire(ctx)
	if err != nil {
		return 0, classifyStorageErr(err)
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM facts").Scan(&count)
	return count, classifyStorageErr(err)
}

// TotalCompanies returns the number of companies tracked by the library
func (lib *Library) TotalCompanies(ctx context.Context) (int, error) {
	conn, err := lib.Pool.Acquire(ctx)
	if err != nil {
		return 0, classifyStorageErr(err)
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, "SELECT count(*) FROM companies").Scan(&count)
	return count, classifyStorageErr(err)
}

// LastUpdated returns the most recent time any company in the library was
// refreshed
func (lib *Library) LastUpdated(ctx context.Context) (time.Time, error) {
	conn, err := lib.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, classifyStorageErr(err)
	}
	defer conn.Release()

	var lastUpdated time.Time
	err = conn.QueryRow(ctx, "SELECT coalesce(max(updated_at), '0001-01-01'::timestamptz) FROM companies").Scan(&lastUpdated)
	if err != nil {
		return time.Time{}, classifyStorageErr(err)
	}

	return lastUpdated, nil
}
