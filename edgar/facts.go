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
	"fmt"
	"time"

	"github.com/cheesecloth/ccdata/data"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type companyFactsResponse struct {
	CIK        json.Number                               `json:"cik"`
	EntityName string                                    `json:"entityName"`
	Facts      map[string]map[string]companyFactsConcept `json:"facts"`
}

type companyFactsConcept struct {
	Label string                        `json:"label"`
	Units map[string][]companyFactsItem `json:"units"`
}

type companyFactsItem struct {
	Start     string      `json:"start"`
	End       string      `json:"end"`
	Value     json.Number `json:"val"`
	Accession string      `json:"accn"`
	Form      string      `json:"form"`
	Filed     string      `json:"filed"`
	Frame     string      `json:"frame"`
}

// CompanyFacts fetches every XBRL fact EDGAR has tagged for a company and
// converts them to the library's fact model. The companyfacts API reports
// facts without their dimensional contexts, so every fact produced here
// carries an empty dimension mapping; the storage model supports dimensions
// fully for sources that provide them.
func (client *Client) CompanyFacts(ctx context.Context, cik string) ([]*data.Fact, error) {
	if !data.ValidCIK(cik) {
		return nil, &data.ValidationError{Field: "cik", Reason: fmt.Sprintf("%q is not a 10-digit zero-padded CIK", cik)}
	}

	var payload companyFactsResponse
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", client.dataBaseURL, cik)
	if err := client.get(ctx, url, &payload); err != nil {
		return nil, err
	}

	var facts []*data.Fact
	skipped := 0

	for taxonomy, concepts := range payload.Facts {
		for tag, concept := range concepts {
			for unit, items := range concept.Units {
				for _, item := range items {
					fact, err := convertItem(cik, taxonomy, tag, unit, item)
					if err != nil {
						skipped++
						log.Debug().Err(err).Str("Taxonomy", taxonomy).Str("Tag", tag).Msg("skipping fact")
						continue
					}
					facts = append(facts, fact)
				}
			}
		}
	}

	if skipped > 0 {
		log.Info().Int("NumSkipped", skipped).Str("CIK", cik).Msg("skipped unparseable facts")
	}

	return facts, nil
}

func convertItem(cik string, taxonomy string, tag string, unit string, item companyFactsItem) (*data.Fact, error) {
	endDate, err := parseDate(item.End)
	if err != nil {
		return nil, fmt.Errorf("bad end date %q: %w", item.End, err)
	}

	fact := &data.Fact{
		CIK:             cik,
		AccessionNumber: item.Accession,
		QName:           taxonomy + ":" + tag,
		Namespace:       taxonomy,
		LocalName:       tag,
		Dimensions:      map[string]string{},
	}

	value := item.Value.String()
	fact.Value = &value

	if unit != "" {
		u := unit
		fact.Unit = &u
	}

	if item.Start != "" {
		startDate, err := parseDate(item.Start)
		if err != nil {
			return nil, fmt.Errorf("bad start date %q: %w", item.Start, err)
		}
		fact.PeriodType = data.Duration
		fact.StartDate = startDate
		fact.EndDate = endDate
	} else {
		fact.PeriodType = data.Instant
		fact.InstantDate = endDate
	}

	return fact, nil
}

func parseDate(s string) (*time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GroupByFiling splits a company's facts into per-filing batches keyed by
// accession number. Reconciliation runs one transaction per filing.
func GroupByFiling(facts []*data.Fact) map[string][]*data.Fact {
	grouped := make(map[string][]*data.Fact)
	for _, fact := range facts {
		grouped[fact.AccessionNumber] = append(grouped[fact.AccessionNumber], fact)
	}
	return grouped
}
