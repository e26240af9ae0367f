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
package data

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const hashDateFormat = "2006-01-02"

// Hash computes the fact's stable identity: a hex-encoded SHA-256 digest of
// the semantic context (who reported it, in which filing, about what, for
// which period, in which unit, under which dimensions). Value and Decimals
// are deliberately excluded so that a re-ingested fact with a corrected
// value maps to the same row and is treated as a revision rather than a
// new fact.
func (fact *Fact) Hash() string {
	fields := []string{
		fact.CIK,
		fact.AccessionNumber,
		fact.Namespace,
		fact.QName,
		fact.LocalName,
		string(fact.PeriodType),
		derefString(fact.Unit),
		formatHashDate(fact.InstantDate),
		formatHashDate(fact.StartDate),
		formatHashDate(fact.EndDate),
		CanonicalDimensions(fact.Dimensions),
	}

	digest := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(digest[:])
}

// CanonicalDimensions serializes a dimension mapping as compact JSON with
// keys sorted lexicographically. Logically identical dimension sets always
// produce byte-identical output regardless of map iteration order.
func CanonicalDimensions(dims map[string]string) string {
	if len(dims) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(dims))
	for key := range dims {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for idx, key := range keys {
		if idx > 0 {
			sb.WriteByte(',')
		}
		sb.Write(jsonString(key))
		sb.WriteByte(':')
		sb.Write(jsonString(dims[key]))
	}
	sb.WriteByte('}')

	return sb.String()
}

func jsonString(s string) []byte {
	encoded, err := json.Marshal(s)
	if err != nil {
		// marshaling a string cannot fail
		panic(err)
	}
	return encoded
}

func formatHashDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(hashDateFormat)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
