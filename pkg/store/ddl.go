package store

import (
	"fmt"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// Case link sources accepted by the case_law table.
var caseLinkSources = []string{"lido-ref", "lido-linkt", "custom"}

// Alias sources accepted by the law_alias table.
var aliasSources = []string{"opschrift", "bwbidlist"}

func sqlList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}

func elementTypeValues() []string {
	var out []string
	for _, t := range law.ElementTypes() {
		out = append(out, t.DBValue())
	}
	return out
}

// schemaStatements returns the DDL for a backend. serial is the column
// definition used for surrogate keys.
func schemaStatements(serial string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS legal_case (
	id %s,
	ecli_id TEXT NOT NULL UNIQUE,
	title TEXT,
	celex_id TEXT,
	zaaknummer TEXT,
	uitspraakdatum DATE
)`, serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS law_element (
	id %s,
	type TEXT NOT NULL CHECK (type IN (%s)),
	bwb_id TEXT NOT NULL,
	bwb_label_id BIGINT,
	lido_id TEXT,
	jc_id TEXT,
	number TEXT,
	title TEXT
)`, serial, sqlList(elementTypeValues())),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS case_law (
	id %s,
	case_id INTEGER NOT NULL REFERENCES legal_case (id),
	law_id INTEGER NOT NULL REFERENCES law_element (id),
	source TEXT NOT NULL CHECK (source IN (%s)),
	jc_id TEXT,
	lido_id TEXT,
	opschrift TEXT
)`, serial, sqlList(caseLinkSources)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS law_alias (
	id %s,
	alias TEXT NOT NULL,
	bwb_id TEXT NOT NULL,
	source TEXT NOT NULL CHECK (source IN (%s))
)`, serial, sqlList(aliasSources)),
		`CREATE UNIQUE INDEX IF NOT EXISTS law_alias_bwb_alias_idx ON law_alias (bwb_id, lower(alias))`,
		`CREATE INDEX IF NOT EXISTS law_alias_lower_idx ON law_alias (lower(alias))`,
		`CREATE INDEX IF NOT EXISTS law_element_lookup_idx ON law_element (bwb_id, type, lower(number))`,
		`CREATE INDEX IF NOT EXISTS law_element_label_idx ON law_element (bwb_id, bwb_label_id)`,
		`CREATE INDEX IF NOT EXISTS case_law_law_idx ON case_law (law_id)`,
	}
}

var (
	postgresSchema = schemaStatements("SERIAL PRIMARY KEY")
	sqliteSchema   = schemaStatements("INTEGER PRIMARY KEY AUTOINCREMENT")
)
