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
	"fmt"

	"github.com/cheesecloth/ccdata/data"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// FactStatus is the reconciliation outcome for one fact in a batch.
type FactStatus string

const (
	StatusInserted  FactStatus = "inserted"
	StatusUnchanged FactStatus = "unchanged"
	StatusRevised   FactStatus = "revised"
	StatusRejected  FactStatus = "rejected"
)

// IngestSummary accumulates per-batch reconciliation counts.
type IngestSummary struct {
	Inserted  int
	Unchanged int
	Revised   int
	Rejected  int
}

// Total returns the number of facts considered in the batch
func (summary IngestSummary) Total() int {
	return summary.Inserted + summary.Unchanged + summary.Revised + summary.Rejected
}

// IngestOptions controls reconciliation behavior for one batch.
type IngestOptions struct {
	// Strict aborts the batch on the first malformed fact instead of
	// rejecting it individually and continuing.
	Strict bool
}

type plannedFact struct {
	hash string
	fact *data.Fact
}

type storedFact struct {
	Hash     string  `db:"fact_hash"`
	Value    *string `db:"value"`
	Decimals *int    `db:"decimals"`
}

const upsertFactSQL = `INSERT INTO facts (
	fact_hash, cik, accession_number, qname, namespace, local_name,
	period_type, value, instant_date, start_date, end_date, unit,
	decimals, dimensions
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
) ON CONFLICT (fact_hash) DO UPDATE SET
	value = EXCLUDED.value,
	decimals = EXCLUDED.decimals,
	updated_at = CURRENT_TIMESTAMP`

const reviseFactSQL = `UPDATE facts SET
	value = $2,
	decimals = $3,
	updated_at = CURRENT_TIMESTAMP
WHERE fact_hash = $1`

// planBatch validates each fact against the filing it claims to belong to
// and collapses duplicate hashes within the batch. When the same hash
// appears twice the later occurrence wins; the batch keeps first-seen order.
// Malformed facts are counted as rejected unless strict mode is requested,
// in which case the first failure aborts planning.
func planBatch(filing *data.Filing, facts []*data.Fact, strict bool) ([]plannedFact, int, error) {
	planned := make([]plannedFact, 0, len(facts))
	position := make(map[string]int, len(facts))
	rejected := 0

	for _, fact := range facts {
		err := fact.Validate()
		if err == nil && (fact.CIK != filing.CIK || fact.AccessionNumber != filing.AccessionNumber) {
			err = &data.ValidationError{
				Field:  "accession_number",
				Reason: fmt.Sprintf("fact belongs to (%s, %s), batch is for (%s, %s)", fact.CIK, fact.AccessionNumber, filing.CIK, filing.AccessionNumber),
			}
		}

		if err != nil {
			if strict {
				return nil, 0, err
			}

			rejected++
			log.Warn().Err(err).Str("QName", fact.QName).Msg("rejecting malformed fact")
			continue
		}

		hash := fact.Hash()
		if idx, ok := position[hash]; ok {
			planned[idx] = plannedFact{hash: hash, fact: fact}
			continue
		}

		position[hash] = len(planned)
		planned = append(planned, plannedFact{hash: hash, fact: fact})
	}

	return planned, rejected, nil
}

// classify splits a planned batch into inserts and revisions against the
// facts already stored, counting facts whose value and decimals are
// identical as unchanged.
func classify(planned []plannedFact, existing map[string]storedFact) (inserts []plannedFact, revisions []plannedFact, unchanged int) {
	for _, entry := range planned {
		stored, ok := existing[entry.hash]
		if !ok {
			inserts = append(inserts, entry)
			continue
		}

		if equalStringPtr(stored.Value, entry.fact.Value) && equalIntPtr(stored.Decimals, entry.fact.Decimals) {
			unchanged++
			continue
		}

		revisions = append(revisions, entry)
	}

	return inserts, revisions, unchanged
}

// SaveFacts reconciles one filing's batch of freshly parsed facts against
// the library. The whole batch is applied in a single transaction: the
// company is upserted (ticker changes touch updated_at), the filing row is
// created if missing, and each fact is inserted, skipped, or revised based
// on its hash identity. Re-running the same batch is a no-op.
func (lib *Library) SaveFacts(ctx context.Context, company *data.Company, filing *data.Filing, facts []*data.Fact, opts IngestOptions) (IngestSummary, error) {
	var summary IngestSummary

	if !data.ValidCIK(company.CIK) {
		return summary, &data.ValidationError{Field: "cik", Reason: fmt.Sprintf("%q is not a 10-digit zero-padded CIK", company.CIK)}
	}
	if company.Ticker == "" {
		return summary, &data.ValidationError{Field: "ticker", Reason: "must not be empty"}
	}
	if !data.ValidAccession(filing.AccessionNumber) {
		return summary, &data.ValidationError{Field: "accession_number", Reason: fmt.Sprintf("%q does not match NNNNNNNNNN-NN-NNNNNN", filing.AccessionNumber)}
	}

	planned, rejected, err := planBatch(filing, facts, opts.Strict)
	if err != nil {
		return summary, err
	}
	summary.Rejected = rejected

	tx, err := lib.Pool.Begin(ctx)
	if err != nil {
		return summary, classifyStorageErr(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO companies (cik, ticker) VALUES ($1, $2)
		ON CONFLICT (cik) DO UPDATE SET
			ticker = EXCLUDED.ticker,
			updated_at = CURRENT_TIMESTAMP
		WHERE companies.ticker IS DISTINCT FROM EXCLUDED.ticker`,
		company.CIK, company.Ticker)
	if err != nil {
		return summary, classifyStorageErr(err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO filings (cik, accession_number) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, filing.CIK, filing.AccessionNumber)
	if err != nil {
		return summary, classifyStorageErr(err)
	}

	existing := make(map[string]storedFact, len(planned))
	if len(planned) > 0 {
		hashes := make([]string, len(planned))
		for idx, entry := range planned {
			hashes[idx] = entry.hash
		}

		var stored []storedFact
		if err := pgxscan.Select(ctx, tx, &stored,
			`SELECT fact_hash, value, decimals FROM facts WHERE fact_hash = ANY($1)`, hashes); err != nil {
			return summary, classifyStorageErr(err)
		}
		for _, row := range stored {
			existing[row.Hash] = row
		}
	}

	inserts, revisions, unchanged := classify(planned, existing)
	summary.Unchanged = unchanged

	queue := &pgx.Batch{}
	for _, entry := range inserts {
		fact := entry.fact
		queue.Queue(upsertFactSQL,
			entry.hash, fact.CIK, fact.AccessionNumber, fact.QName, fact.Namespace,
			fact.LocalName, string(fact.PeriodType), fact.Value, fact.InstantDate,
			fact.StartDate, fact.EndDate, fact.Unit, fact.Decimals,
			data.CanonicalDimensions(fact.Dimensions))
	}
	for _, entry := range revisions {
		queue.Queue(reviseFactSQL, entry.hash, entry.fact.Value, entry.fact.Decimals)
	}

	if queue.Len() > 0 {
		results := tx.SendBatch(ctx, queue)
		for i := 0; i < queue.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return summary, classifyStorageErr(err)
			}
		}
		if err := results.Close(); err != nil {
			return summary, classifyStorageErr(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return summary, classifyStorageErr(err)
	}

	summary.Inserted = len(inserts)
	summary.Revised = len(revisions)

	log.Debug().
		Str("CIK", filing.CIK).
		Str("AccessionNumber", filing.AccessionNumber).
		Int("Inserted", summary.Inserted).
		Int("Unchanged", summary.Unchanged).
		Int("Revised", summary.Revised).
		Int("Rejected", summary.Rejected).
		Msg("reconciled filing batch")

	return summary, nil
}

func equalStringPtr(a *string, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalIntPtr(a *int, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
