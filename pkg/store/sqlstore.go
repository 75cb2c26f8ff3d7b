package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/MaastrichtU-BISS/linkextractor/pkg/law"
)

// dialect captures what differs between backends. Query text is shared
// and written with '?' placeholders.
type dialect struct {
	name   string
	schema []string
	rebind func(string) string
}

func questionPlaceholders(q string) string { return q }

// dollarPlaceholders rewrites '?' placeholders to $1, $2, ...
func dollarPlaceholders(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// sqlStore implements Store over database/sql.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

// EscapeLike escapes the LIKE metacharacters in s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *sqlStore) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.d.rebind(q), args...)
}

// DB returns the underlying handle.
func (s *sqlStore) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *sqlStore) Close() error { return s.db.Close() }

// InitSchema creates tables and indexes.
func (s *sqlStore) InitSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: init schema: %w", s.d.name, err)
		}
	}
	return nil
}

func scanAliases(rows *sql.Rows) ([]Alias, error) {
	defer rows.Close()
	var out []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.Alias, &a.StatuteID); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return out, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

const exactAliasesSQL = `
SELECT alias, bwb_id
FROM law_alias
WHERE lower(alias) = lower(CAST(? AS TEXT))
ORDER BY bwb_id, id`

func (s *sqlStore) ExactAliases(ctx context.Context, text string) ([]Alias, error) {
	rows, err := s.query(ctx, exactAliasesSQL, text)
	if err != nil {
		return nil, fmt.Errorf("%s: exact aliases: %w", s.d.name, err)
	}
	return scanAliases(rows)
}

const matchingAliasesSQL = `
SELECT alias, bwb_id FROM (
	SELECT alias, bwb_id,
		ROW_NUMBER() OVER (PARTITION BY bwb_id ORDER BY LENGTH(alias) DESC, id) AS rn
	FROM law_alias
	WHERE lower(alias) LIKE lower(CAST(? AS TEXT)) ESCAPE '\'
) ranked
WHERE rn = 1
ORDER BY LENGTH(alias) DESC, bwb_id
LIMIT ?`

func (s *sqlStore) MatchingAliases(ctx context.Context, pattern string) ([]Alias, error) {
	rows, err := s.query(ctx, matchingAliasesSQL, pattern, DefaultMaxRows)
	if err != nil {
		return nil, fmt.Errorf("%s: matching aliases %q: %w", s.d.name, pattern, err)
	}
	return scanAliases(rows)
}

const prefixAliasesSQL = `
SELECT alias, bwb_id
FROM law_alias
WHERE substr(lower(CAST(? AS TEXT)), 1, LENGTH(alias)) = lower(alias)
ORDER BY LENGTH(alias) DESC, bwb_id, id
LIMIT ?`

func (s *sqlStore) PrefixAliases(ctx context.Context, text string, limit int) ([]Alias, error) {
	if limit <= 0 {
		limit = DefaultMaxRows
	}
	rows, err := s.query(ctx, prefixAliasesSQL, text, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: prefix aliases: %w", s.d.name, err)
	}
	return scanAliases(rows)
}

const aliasesInTextSQL = `
SELECT alias, bwb_id
FROM law_alias
WHERE lower(CAST(? AS TEXT)) LIKE '%' || lower(alias) || '%'
ORDER BY LENGTH(alias) DESC, bwb_id, id
LIMIT ?`

func (s *sqlStore) AliasesInText(ctx context.Context, text string, limit int) ([]Alias, error) {
	if limit <= 0 {
		limit = DefaultMaxRows
	}
	rows, err := s.query(ctx, aliasesInTextSQL, text, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: aliases in text: %w", s.d.name, err)
	}
	return scanAliases(rows)
}

const aliasesOfSQL = `
SELECT alias FROM law_alias WHERE bwb_id = ? ORDER BY LENGTH(alias) DESC, id`

func (s *sqlStore) AliasesOf(ctx context.Context, statuteID string) ([]string, error) {
	rows, err := s.query(ctx, aliasesOfSQL, statuteID)
	if err != nil {
		return nil, fmt.Errorf("%s: aliases of %s: %w", s.d.name, statuteID, err)
	}
	return scanStrings(rows)
}

const distinctAliasesSQL = `SELECT DISTINCT lower(alias) FROM law_alias ORDER BY 1`

func (s *sqlStore) DistinctAliases(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, distinctAliasesSQL)
	if err != nil {
		return nil, fmt.Errorf("%s: distinct aliases: %w", s.d.name, err)
	}
	return scanStrings(rows)
}

// buildFindLaws renders the resolution query. Every constraint must be
// satisfied by some element of the same statute; the row returned is
// the target element.
func buildFindLaws(q LawQuery) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("WITH required(type, number) AS (VALUES ")
	for i, c := range q.Constraints {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(CAST(? AS TEXT), CAST(? AS TEXT))")
		args = append(args, c.Type.DBValue(), strings.ToLower(c.Number))
	}
	b.WriteString(`),
candidates AS (
	SELECT le.bwb_id
	FROM law_element le
	JOIN required r ON le.type = r.type AND lower(le.number) = r.number
`)
	if q.StatuteID != "" {
		b.WriteString("\tWHERE le.bwb_id = ?\n")
		args = append(args, q.StatuteID)
	} else {
		b.WriteString("\tWHERE le.bwb_id IN (SELECT la.bwb_id FROM law_alias la WHERE lower(la.alias) = lower(CAST(? AS TEXT)))\n")
		args = append(args, q.Alias)
	}
	b.WriteString(`	GROUP BY le.bwb_id
	HAVING COUNT(DISTINCT le.type || ':' || lower(le.number)) = ?
)
SELECT le.type, le.number, le.bwb_id, COALESCE(le.bwb_label_id, 0), COALESCE(le.title, '')
FROM law_element le
JOIN candidates c ON c.bwb_id = le.bwb_id
WHERE le.type = ? AND lower(le.number) = ?
GROUP BY le.type, le.number, le.bwb_id, le.bwb_label_id, le.title
ORDER BY le.bwb_id, COALESCE(le.bwb_label_id, 0)
LIMIT ?`)
	args = append(args, len(q.Constraints), q.Target.Type.DBValue(), strings.ToLower(q.Target.Number), DefaultMaxRows)
	return b.String(), args
}

func (s *sqlStore) FindLaws(ctx context.Context, q LawQuery) ([]law.Record, error) {
	if len(q.Constraints) == 0 {
		return nil, fmt.Errorf("%s: find laws: no constraints", s.d.name)
	}
	if q.Alias == "" && q.StatuteID == "" {
		return nil, fmt.Errorf("%s: find laws: alias or statute id required", s.d.name)
	}
	query, args := buildFindLaws(q)
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: find laws: %w", s.d.name, err)
	}
	defer rows.Close()

	var out []law.Record
	for rows.Next() {
		var (
			rec      law.Record
			typeName string
			number   sql.NullString
		)
		if err := rows.Scan(&typeName, &number, &rec.StatuteID, &rec.ElementID, &rec.Title); err != nil {
			return nil, fmt.Errorf("%s: scan law element: %w", s.d.name, err)
		}
		t, err := law.ParseElementType(typeName)
		if err != nil {
			return nil, fmt.Errorf("%s: law element %s: %w", s.d.name, rec.StatuteID, err)
		}
		rec.Type = t
		rec.Number = number.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate law elements: %w", s.d.name, err)
	}
	return out, nil
}

const statuteSQL = `
SELECT COALESCE(title, '') FROM law_element
WHERE bwb_id = ? AND type = ?
ORDER BY id
LIMIT 1`

// Statute returns the statute-level record for statuteID.
func (s *sqlStore) Statute(ctx context.Context, statuteID string) (law.Record, bool, error) {
	var title string
	err := s.db.QueryRowContext(ctx, s.d.rebind(statuteSQL), statuteID, law.ElementStatute.DBValue()).Scan(&title)
	if err == sql.ErrNoRows {
		return law.Record{}, false, nil
	}
	if err != nil {
		return law.Record{}, false, fmt.Errorf("%s: statute %s: %w", s.d.name, statuteID, err)
	}
	return law.Record{Type: law.ElementStatute, StatuteID: statuteID, Title: title}, true, nil
}

const casesByElementSQL = `
SELECT DISTINCT lc.ecli_id, COALESCE(lc.title, ''), cl.source, COALESCE(cl.opschrift, '')
FROM case_law cl
JOIN legal_case lc ON lc.id = cl.case_id
JOIN law_element le ON le.id = cl.law_id
WHERE le.bwb_id = ? AND le.bwb_label_id = ?
ORDER BY lc.ecli_id
LIMIT ?`

const casesByStatuteSQL = `
SELECT DISTINCT lc.ecli_id, COALESCE(lc.title, ''), cl.source, COALESCE(cl.opschrift, '')
FROM case_law cl
JOIN legal_case lc ON lc.id = cl.case_id
JOIN law_element le ON le.id = cl.law_id
WHERE le.bwb_id = ?
ORDER BY lc.ecli_id
LIMIT ?`

// CasesByElement returns cases citing the element. A zero ElementID
// selects every element of the statute.
func (s *sqlStore) CasesByElement(ctx context.Context, key ElementKey, limit int) ([]CaseRef, error) {
	if limit <= 0 {
		limit = DefaultMaxCases
	}
	var (
		rows *sql.Rows
		err  error
	)
	if key.ElementID == 0 {
		rows, err = s.query(ctx, casesByStatuteSQL, key.StatuteID, limit)
	} else {
		rows, err = s.query(ctx, casesByElementSQL, key.StatuteID, key.ElementID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: cases for %s/%d: %w", s.d.name, key.StatuteID, key.ElementID, err)
	}
	defer rows.Close()

	var out []CaseRef
	for rows.Next() {
		var c CaseRef
		if err := rows.Scan(&c.ECLI, &c.Title, &c.Source, &c.Opschrift); err != nil {
			return nil, fmt.Errorf("%s: scan case: %w", s.d.name, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate cases: %w", s.d.name, err)
	}
	return out, nil
}

// CaseCounts returns the number of distinct cases citing each key.
// Keys without citations are absent from the result.
func (s *sqlStore) CaseCounts(ctx context.Context, keys []ElementKey) (map[ElementKey]int, error) {
	out := make(map[ElementKey]int)
	if len(keys) == 0 {
		return out, nil
	}

	var b strings.Builder
	args := make([]any, 0, len(keys)*2)
	b.WriteString("WITH wanted(bwb_id, label) AS (VALUES ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(CAST(? AS TEXT), CAST(? AS BIGINT))")
		args = append(args, k.StatuteID, k.ElementID)
	}
	b.WriteString(`)
SELECT w.bwb_id, w.label, COUNT(DISTINCT cl.case_id)
FROM wanted w
JOIN law_element le ON le.bwb_id = w.bwb_id AND COALESCE(le.bwb_label_id, 0) = w.label
JOIN case_law cl ON cl.law_id = le.id
GROUP BY w.bwb_id, w.label`)

	rows, err := s.query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: case counts: %w", s.d.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k ElementKey
			n int
		)
		if err := rows.Scan(&k.StatuteID, &k.ElementID, &n); err != nil {
			return nil, fmt.Errorf("%s: scan case count: %w", s.d.name, err)
		}
		out[k] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate case counts: %w", s.d.name, err)
	}
	return out, nil
}
