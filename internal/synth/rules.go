package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/dbsmedya/nlquery/internal/schema"
	"github.com/dbsmedya/nlquery/internal/sqlutil"
	"github.com/dbsmedya/nlquery/internal/types"
)

var (
	rankingWords   = []string{"top", "highest", "largest"}
	countWords     = []string{"count", "number", "many", "most", "frequent"}
	riskWords      = []string{"risk", "risky", "overdue", "delinquent"}
	defaultWords   = []string{"default", "defaulted", "defaults", "defaulting"}
	statusWords    = []string{"pending", "failed", "completed"}
	activeWords    = []string{"active", "open", "current"}
	totalWords     = []string{"total", "amount", "amounts", "sum", "debt", "owed"}
	recentWords    = []string{"recent", "latest", "newest"}
	segmentWords   = []string{"premium", "vip", "corporate", "retail", "student", "business", "segment", "segments"}
	thresholdTerms = []string{"greater than", "more than", "larger than", "bigger than", "above", "over", "exceeding", "exceeds"}
)

// tableSynonyms maps catalog tables to the other words people use for them.
var tableSynonyms = map[string][]string{
	"customers":    {"client", "clients", "people", "accounts"},
	"transactions": {"payment", "payments", "purchase", "purchases", "spending", "transfer", "transfers"},
	"loans":        {"mortgage", "mortgages", "debt", "debts"},
}

// DefaultRules returns the rules in evaluation order. Specific rankings come
// before the generic ranking, and the catch-all is last.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "balance_ranking",
			Match: func(q *Question) bool {
				return (q.Has(rankingWords...) && q.Has("balance", "balances")) || q.Has("richest", "wealthiest")
			},
			Build: buildBalanceRanking,
		},
		{
			Name: "credit_ranking",
			Match: func(q *Question) bool {
				return q.Has("credit") && q.Has(append([]string{"best"}, rankingWords...)...)
			},
			Build: buildCreditRanking,
		},
		{
			Name: "ranking",
			Match: func(q *Question) bool {
				_, hasNumber := q.FirstNumber()
				return q.Has(rankingWords...) && hasNumber
			},
			Build: buildRanking,
		},
		{
			Name:  "loan_risk",
			Match: func(q *Question) bool { return q.Has(defaultWords...) || q.Has(riskWords...) },
			Build: buildLoanRisk,
		},
		{
			Name:  "active_loans",
			Match: func(q *Question) bool { return q.Has(activeWords...) },
			Build: buildActiveLoans,
		},
		{
			Name:  "transaction_status",
			Match: func(q *Question) bool { return q.Has(statusWords...) },
			Build: buildStatusFilter,
		},
		{
			Name: "amount_threshold",
			Match: func(q *Question) bool {
				_, ok := q.NumberAfter(thresholdTerms...)
				return ok
			},
			Build: buildThreshold,
		},
		{
			Name:  "recent",
			Match: func(q *Question) bool { return q.Has(recentWords...) },
			Build: buildRecent,
		},
		{
			Name:  "segment_filter",
			Match: func(q *Question) bool { return q.Has(segmentWords...) },
			Build: buildSegmentFilter,
		},
		{
			Name:  "default",
			Match: func(*Question) bool { return true },
			Build: buildDefault,
		},
	}
}

func buildBalanceRanking(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	if len(mentionedDependents(q, cat, entity)) > 0 {
		return types.Candidate{}, errSkip
	}
	col := columnContaining(entity, "balance")
	if col == "" {
		return types.Candidate{}, errSkip
	}
	n := countFromQuestion(q, DefaultRankingLimit)

	stmt := selectStmt{
		columns: presentColumns(entity, entity.PrimaryKey, "first_name", "last_name", col, "customer_segment", "city"),
		from:    entity.Name,
		orderBy: []string{col + " DESC"},
		limit:   n,
	}
	return types.Candidate{
		SQL:         stmt.String(),
		Explanation: fmt.Sprintf("Returns the top %d %s by %s.", n, entity.Name, humanize(col)),
	}, nil
}

func buildCreditRanking(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	if len(mentionedDependents(q, cat, entity)) > 0 {
		return types.Candidate{}, errSkip
	}
	col := columnContaining(entity, "credit_score")
	if col == "" {
		return types.Candidate{}, errSkip
	}
	n := countFromQuestion(q, DefaultLimit)

	stmt := selectStmt{
		columns: presentColumns(entity, entity.PrimaryKey, "first_name", "last_name", col, "customer_segment", "account_balance"),
		from:    entity.Name,
		orderBy: []string{col + " DESC"},
		limit:   n,
	}
	return types.Candidate{
		SQL:         stmt.String(),
		Explanation: fmt.Sprintf("Returns the %d %s with the highest %s.", n, entity.Name, humanize(col)),
	}, nil
}

// buildRanking joins the entity table to its metric table and orders by an aggregate.
func buildRanking(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	deps := cat.Dependents(entity.Name)
	if len(deps) == 0 {
		return types.Candidate{}, errSkip
	}
	metric := deps[0]
	if mentioned := mentionedDependents(q, cat, entity); len(mentioned) > 0 {
		metric = mentioned[0]
	}
	rel, _ := cat.JoinKey(metric.Name, entity.Name)
	ea := aliasFor(entity.Name, "")
	ma := aliasFor(metric.Name, ea)
	key := rel.ForeignColumn

	group := qualify(ea, presentColumns(entity, key, "first_name", "last_name")...)
	stmt := selectStmt{
		from:    entity.Name + " " + ea,
		joins:   []string{fmt.Sprintf("JOIN %s %s ON %s.%s = %s.%s", metric.Name, ma, ma, rel.LocalColumn, ea, key)},
		groupBy: group,
		limit:   countFromQuestion(q, DefaultRankingLimit),
	}

	var agg, alias, what string
	if q.Has(countWords...) {
		alias = singular(metric.Name) + "_count"
		agg = "COUNT(*) AS " + alias
		what = "number of " + metric.Name
	} else {
		col := metricColumn(q, metric)
		if col == "" {
			return types.Candidate{}, errSkip
		}
		alias = "total_" + col
		agg = fmt.Sprintf("SUM(%s.%s) AS %s", ma, col, alias)
		what = "total " + singular(metric.Name) + " " + humanize(col)
		if lit, ok := metric.EnumValue("status", "completed"); ok {
			stmt.where = append(stmt.where, fmt.Sprintf("%s.status = %s", ma, sqlutil.QuoteString(lit)))
			what += " (completed only)"
		}
	}
	stmt.columns = append(append([]string{}, group...), agg)
	stmt.orderBy = []string{alias + " DESC"}

	return types.Candidate{
		SQL:         stmt.String(),
		Explanation: fmt.Sprintf("Returns the top %d %s ranked by %s.", stmt.limit, entity.Name, what),
	}, nil
}

// buildLoanRisk filters a dependent table's status to enumerated risk states.
func buildLoanRisk(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	candidates := append(mentionedDependents(q, cat, entity), cat.Dependents(entity.Name)...)

	wanted := []string{"defaulted"}
	if q.Has(riskWords...) {
		wanted = append(wanted, "pending")
	}
	for _, t := range candidates {
		if _, ok := t.EnumValue("status", "defaulted"); !ok {
			continue
		}
		literals := enumLiterals(t, "status", wanted)
		rel, _ := cat.JoinKey(t.Name, entity.Name)
		ea := aliasFor(entity.Name, "")
		ta := aliasFor(t.Name, ea)

		columns := qualify(ea, presentColumns(entity, rel.ForeignColumn, "first_name", "last_name")...)
		columns = append(columns, qualify(ta, presentColumns(t, t.PrimaryKey, "loan_type", "outstanding_balance", "status")...)...)
		stmt := selectStmt{
			columns: columns,
			from:    entity.Name + " " + ea,
			joins:   []string{fmt.Sprintf("JOIN %s %s ON %s.%s = %s.%s", t.Name, ta, ta, rel.LocalColumn, ea, rel.ForeignColumn)},
			where:   []string{inList(ta+".status", literals)},
			limit:   DefaultLimit,
		}
		if _, ok := t.Column("outstanding_balance"); ok {
			stmt.orderBy = []string{ta + ".outstanding_balance DESC"}
		}
		return types.Candidate{
			SQL:         stmt.String(),
			Explanation: fmt.Sprintf("Returns %s with %s in status %s.", entity.Name, t.Name, strings.Join(literals, " or ")),
		}, nil
	}
	return types.Candidate{}, errSkip
}

// buildActiveLoans lists the dependent rows whose status enumeration has an
// "active" state or, when the question asks for totals, sums them per entity.
func buildActiveLoans(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	for _, t := range append(mentionedDependents(q, cat, entity), cat.Dependents(entity.Name)...) {
		active, ok := t.EnumValue("status", "active")
		if !ok {
			continue
		}
		balance := firstColumn(t, "outstanding_balance", "principal_amount", "amount")
		if balance == "" {
			continue
		}
		lit := sqlutil.QuoteString(active)

		if !q.Has(totalWords...) {
			stmt := selectStmt{
				columns: presentColumns(t, t.PrimaryKey, "customer_id", "loan_type", "principal_amount",
					"outstanding_balance", "interest_rate", "monthly_payment", "status"),
				from:    t.Name,
				where:   []string{"status = " + lit},
				orderBy: []string{balance + " DESC"},
				limit:   DefaultLimit,
			}
			return types.Candidate{
				SQL:         stmt.String(),
				Explanation: fmt.Sprintf("Returns %s in status %s, largest %s first.", t.Name, lit, humanize(balance)),
			}, nil
		}

		rel, _ := cat.JoinKey(t.Name, entity.Name)
		ea := aliasFor(entity.Name, "")
		ta := aliasFor(t.Name, ea)
		group := qualify(ea, presentColumns(entity, rel.ForeignColumn, "first_name", "last_name")...)
		alias := "total_" + balance
		columns := append(append([]string{}, group...),
			fmt.Sprintf("COUNT(*) AS %s_count", singular(t.Name)),
			fmt.Sprintf("SUM(%s.%s) AS %s", ta, balance, alias))
		if rate := firstColumn(t, "interest_rate"); rate != "" {
			columns = append(columns, fmt.Sprintf("AVG(%s.%s) AS avg_%s", ta, rate, rate))
		}
		stmt := selectStmt{
			columns: columns,
			from:    entity.Name + " " + ea,
			joins:   []string{fmt.Sprintf("JOIN %s %s ON %s.%s = %s.%s", t.Name, ta, ta, rel.LocalColumn, ea, rel.ForeignColumn)},
			where:   []string{ta + ".status = " + lit},
			groupBy: group,
			orderBy: []string{alias + " DESC"},
			limit:   DefaultRankingLimit,
		}
		return types.Candidate{
			SQL:         stmt.String(),
			Explanation: fmt.Sprintf("Returns the %s with the highest total %s across %s in status %s.", entity.Name, humanize(balance), t.Name, lit),
		}, nil
	}
	return types.Candidate{}, errSkip
}

// buildStatusFilter filters on the status enumeration of the table the
// question is about.
func buildStatusFilter(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	var words []string
	for _, w := range statusWords {
		if q.Has(w) {
			words = append(words, w)
		}
	}

	var candidates []schema.TableDef
	for _, t := range mentionedTables(q, cat) {
		if _, ok := t.Column("status"); ok {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		candidates = cat.Tables()
	}

	for _, t := range candidates {
		literals := enumLiterals(t, "status", words)
		if len(literals) == 0 {
			continue
		}
		stmt := selectStmt{
			from:  t.Name,
			where: []string{inList("status", literals)},
			limit: RecentLimit,
		}
		if date := dateColumn(t); date != "" {
			stmt.orderBy = []string{date + " DESC"}
		}
		return types.Candidate{
			SQL:         stmt.String(),
			Explanation: fmt.Sprintf("Returns the most recent %s with status %s.", t.Name, strings.Join(literals, " or ")),
		}, nil
	}
	return types.Candidate{}, errSkip
}

// buildThreshold binds the number from the question as $1.
func buildThreshold(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	n, _ := q.NumberAfter(thresholdTerms...)
	entity, _ := cat.PrimaryTable()

	preference := []string{"amount", "principal_amount", "outstanding_balance", "account_balance"}
	if q.Has("balance", "balances") {
		preference = []string{"outstanding_balance", "account_balance", "amount", "principal_amount"}
	}

	tables := mentionedDependents(q, cat, entity)
	if len(tables) == 0 && q.Has("balance", "balances") {
		tables = []schema.TableDef{entity}
	}
	tables = append(tables, cat.Dependents(entity.Name)...)
	tables = append(tables, entity)

	for _, t := range tables {
		col := firstColumn(t, preference...)
		if col == "" {
			continue
		}
		stmt := selectStmt{
			from:    t.Name,
			where:   []string{col + " > $1"},
			orderBy: []string{col + " DESC"},
			limit:   DefaultLimit,
		}
		return types.Candidate{
			SQL:         stmt.String(),
			Args:        []any{thresholdArg(n)},
			Explanation: fmt.Sprintf("Returns %s where %s exceeds %s.", t.Name, humanize(col), formatAmount(n)),
		}, nil
	}
	return types.Candidate{}, errSkip
}

func buildRecent(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	tables := mentionedTables(q, cat)
	tables = append(tables, cat.Dependents(entity.Name)...)
	tables = append(tables, entity)

	for _, t := range tables {
		date := dateColumn(t)
		if date == "" {
			continue
		}
		n := countFromQuestion(q, RecentLimit)
		stmt := selectStmt{
			from:    t.Name,
			orderBy: []string{date + " DESC"},
			limit:   n,
		}
		return types.Candidate{
			SQL:         stmt.String(),
			Explanation: fmt.Sprintf("Returns the %d most recent %s.", n, t.Name),
		}, nil
	}
	return types.Candidate{}, errSkip
}

func buildSegmentFilter(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	entity, _ := cat.PrimaryTable()
	if len(mentionedDependents(q, cat, entity)) > 0 {
		return types.Candidate{}, errSkip
	}
	col := columnContaining(entity, "segment")
	if col == "" {
		return types.Candidate{}, errSkip
	}
	def, _ := entity.Column(col)

	want := make(map[string]bool)
	if q.Has("premium", "vip") || !hasAnyEnumWord(q, def.Enum) {
		want["premium"], want["corporate"] = true, true
	}
	for _, v := range def.Enum {
		if q.Has(strings.ToLower(v)) {
			want[strings.ToLower(v)] = true
		}
	}
	var literals []string
	for _, v := range def.Enum {
		if want[strings.ToLower(v)] {
			literals = append(literals, sqlutil.QuoteString(v))
		}
	}
	if len(literals) == 0 {
		return types.Candidate{}, errSkip
	}

	stmt := selectStmt{
		columns: presentColumns(entity, entity.PrimaryKey, "first_name", "last_name", col, "account_balance", "credit_score", "city"),
		from:    entity.Name,
		where:   []string{inList(col, literals)},
		limit:   DefaultLimit,
	}
	if bal := columnContaining(entity, "balance"); bal != "" {
		stmt.orderBy = []string{bal + " DESC"}
	}
	return types.Candidate{
		SQL:         stmt.String(),
		Explanation: fmt.Sprintf("Returns %s in the %s segment.", entity.Name, strings.Join(literals, " or ")),
	}, nil
}

func buildDefault(q *Question, cat *schema.Catalog) (types.Candidate, error) {
	t, _ := cat.PrimaryTable()
	if mentioned := mentionedTables(q, cat); len(mentioned) > 0 {
		t = mentioned[0]
	}
	stmt := selectStmt{from: t.Name, limit: DefaultLimit}
	return types.Candidate{
		SQL:         stmt.String(),
		Explanation: fmt.Sprintf("Returns the first %d rows of %s.", DefaultLimit, t.Name),
	}, nil
}

func mentionsTable(q *Question, t schema.TableDef) bool {
	name := strings.ToLower(t.Name)
	if q.Has(name, singular(name)) {
		return true
	}
	return q.Has(tableSynonyms[name]...)
}

// mentionedTables returns the tables the question names, in catalog order.
func mentionedTables(q *Question, cat *schema.Catalog) []schema.TableDef {
	var out []schema.TableDef
	for _, t := range cat.Tables() {
		if mentionsTable(q, t) {
			out = append(out, t)
		}
	}
	return out
}

func mentionedDependents(q *Question, cat *schema.Catalog, entity schema.TableDef) []schema.TableDef {
	var out []schema.TableDef
	for _, t := range cat.Dependents(entity.Name) {
		if mentionsTable(q, t) {
			out = append(out, t)
		}
	}
	return out
}

// metricColumn picks the numeric column a ranking sums.
func metricColumn(q *Question, t schema.TableDef) string {
	switch {
	case q.Has("principal"):
		if c := firstColumn(t, "principal_amount"); c != "" {
			return c
		}
	case q.Has("balance", "outstanding", "debt", "owed"):
		if c := firstColumn(t, "outstanding_balance"); c != "" {
			return c
		}
	}
	return firstColumn(t, "amount", "outstanding_balance", "principal_amount")
}

// enumLiterals resolves words against a column's enumeration and returns the
// quoted canonical literals. Words outside the enumeration are dropped.
func enumLiterals(t schema.TableDef, column string, words []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range words {
		v, ok := t.EnumValue(column, w)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, sqlutil.QuoteString(v))
	}
	return out
}

func hasAnyEnumWord(q *Question, enum []string) bool {
	for _, v := range enum {
		if q.Has(strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func firstColumn(t schema.TableDef, names ...string) string {
	for _, n := range names {
		if c, ok := t.Column(n); ok {
			return c.Name
		}
	}
	return ""
}

func columnContaining(t schema.TableDef, fragment string) string {
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c.Name), fragment) {
			return c.Name
		}
	}
	return ""
}

func presentColumns(t schema.TableDef, names ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		if c, ok := t.Column(n); ok && !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	}
	return out
}

func dateColumn(t schema.TableDef) string {
	for _, c := range t.Columns {
		typ := strings.ToLower(c.Type)
		if typ == "date" || strings.HasPrefix(typ, "timestamp") || typ == "datetime" {
			return c.Name
		}
	}
	return ""
}

// aliasFor returns the first letter of a table name, or "m" when taken.
func aliasFor(table, taken string) string {
	a := strings.ToLower(table[:1])
	if a == taken {
		return "m"
	}
	return a
}

func singular(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), "s")
}

func humanize(column string) string {
	return strings.ReplaceAll(column, "_", " ")
}

func countFromQuestion(q *Question, fallback int) int {
	n, ok := q.FirstNumber()
	if !ok {
		return fallback
	}
	return clamp(int(math.Min(n, MaxRankingLimit)), 1, MaxRankingLimit)
}

// thresholdArg keeps whole numbers integral so drivers bind them as integers.
func thresholdArg(n float64) any {
	if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
		return int64(n)
	}
	return n
}

func formatAmount(n float64) string {
	if n == math.Trunc(n) {
		return fmt.Sprintf("%.0f", n)
	}
	return fmt.Sprintf("%.2f", n)
}
