// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package marc classifies MARC records by the record-type byte of their
// leader.
package marc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// RecordType is the category of a MARC record.
type RecordType int

const (
	NA RecordType = iota
	Bib
	Holding
	Authority
)

func (t RecordType) String() string {
	switch t {
	case Bib:
		return "BIB"
	case Holding:
		return "HOLDING"
	case Authority:
		return "AUTHORITY"
	default:
		return "NA"
	}
}

// MarshalText encodes the type by name.
func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (t *RecordType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BIB":
		*t = Bib
	case "HOLDING":
		*t = Holding
	case "AUTHORITY":
		*t = Authority
	case "NA":
		*t = NA
	default:
		return fmt.Errorf("unknown record type %q", text)
	}
	return nil
}

// RecordAnalyzer determines the type of a parsed JSON record.
type RecordAnalyzer interface {
	Process(record map[string]any) RecordType
}

const (
	leaderKey       = "leader"
	recordTypeIndex = 5
)

const (
	bibCodes       = "acdefgijkmoprt"
	holdingCodes   = "uvxy"
	authorityCodes = "z"
)

// MarcAnalyzer reads the sixth leader character. A record without a
// leader, or whose leader is too short or not a string, is NA.
type MarcAnalyzer struct {
	logger *slog.Logger
}

// NewMarcAnalyzer returns an analyzer that logs unreadable leaders to
// logger, or the default logger when nil.
func NewMarcAnalyzer(logger *slog.Logger) *MarcAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarcAnalyzer{logger: logger}
}

var _ RecordAnalyzer = (*MarcAnalyzer)(nil)

// Process implements RecordAnalyzer.
func (a *MarcAnalyzer) Process(record map[string]any) RecordType {
	raw, ok := record[leaderKey]
	if !ok {
		return NA
	}
	leader, ok := raw.(string)
	if !ok {
		a.logger.Error("could not get a record type character from the leader", "leader", raw)
		return NA
	}
	chars := []rune(leader)
	if len(chars) <= recordTypeIndex {
		a.logger.Error("could not get a record type character from the leader", "leader", raw)
		return NA
	}
	return typeOf(chars[recordTypeIndex])
}

// ProcessJSON decodes data as a JSON object and classifies it. Data that
// is not an object is NA.
func (a *MarcAnalyzer) ProcessJSON(data []byte) RecordType {
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		a.logger.Debug("record is not a JSON object", "error", err)
		return NA
	}
	return a.Process(record)
}

func typeOf(code rune) RecordType {
	switch {
	case strings.ContainsRune(bibCodes, code):
		return Bib
	case strings.ContainsRune(holdingCodes, code):
		return Holding
	case strings.ContainsRune(authorityCodes, code):
		return Authority
	default:
		return NA
	}
}
