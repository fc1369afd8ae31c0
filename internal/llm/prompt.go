package llm

import (
	"fmt"
	"strings"
)

// promptRules are the instructions sent with every schema. The validator
// enforces the same constraints on whatever comes back.
var promptRules = []string{
	"Generate ONLY a single SELECT query (no INSERT, UPDATE, DELETE, DROP, ALTER or any other statement).",
	"Use PostgreSQL syntax; the query is translated to the target engine afterwards.",
	"Join tables through the relations listed in the schema when needed.",
	"Add WHERE, GROUP BY and ORDER BY clauses as the question requires.",
	"Use LIMIT when the question asks for top or latest results.",
	"Use meaningful aliases for aggregated columns.",
	"Do not use comments, UNION or multiple statements.",
	`Return JSON with two keys: "sql" (the query) and "explanation" (one sentence).`,
}

const exampleResponse = `{
  "sql": "SELECT c.customer_id, c.first_name, SUM(t.amount) AS total_amount FROM customers c JOIN transactions t ON t.customer_id = c.customer_id GROUP BY c.customer_id, c.first_name ORDER BY total_amount DESC LIMIT 5",
  "explanation": "Sums transaction amounts per customer and returns the five largest totals."
}`

// BuildSystemPrompt renders the system message for a schema listing.
func BuildSystemPrompt(schemaText string) string {
	var b strings.Builder
	b.WriteString("You are an expert SQL query generator. Convert natural language questions into SQL queries.\n\n")
	b.WriteString("Database schema:\n\n")
	b.WriteString(strings.TrimSpace(schemaText))
	b.WriteString("\n\nRules:\n")
	for i, rule := range promptRules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}
	b.WriteString("\nExample response:\n")
	b.WriteString(exampleResponse)
	return b.String()
}
