package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/nlquery/internal/sqlutil"
)

func TestBankingCatalog(t *testing.T) {
	cat := Banking()

	require.Equal(t, 3, cat.Len())
	assert.False(t, cat.IsEmpty())

	var names []string
	for _, tbl := range cat.Tables() {
		names = append(names, tbl.Name)
	}
	assert.Equal(t, []string{"customers", "transactions", "loans"}, names, "declaration order is preserved")

	primary, ok := cat.PrimaryTable()
	require.True(t, ok)
	assert.Equal(t, "customers", primary.Name)

	deps := cat.Dependents("customers")
	require.Len(t, deps, 2)
	assert.Equal(t, "transactions", deps[0].Name)
	assert.Equal(t, "loans", deps[1].Name)

	rel, ok := cat.JoinKey("loans", "customers")
	require.True(t, ok)
	assert.Equal(t, "customer_id", rel.LocalColumn)
	assert.Equal(t, "customer_id", rel.ForeignColumn)

	_, ok = cat.JoinKey("customers", "loans")
	assert.False(t, ok)
}

func TestCatalogLookup(t *testing.T) {
	cat := Banking()

	tbl, ok := cat.Table("LOANS")
	require.True(t, ok, "lookup ignores case")
	assert.Equal(t, "loans", tbl.Name)

	_, ok = cat.Table("accounts")
	assert.False(t, ok)

	col, ok := tbl.Column("Status")
	require.True(t, ok)
	assert.Equal(t, LoanStatuses, col.Enum)

	v, ok := tbl.EnumValue("status", "defaulted")
	require.True(t, ok)
	assert.Equal(t, "Defaulted", v)

	_, ok = tbl.EnumValue("status", "bankrupt")
	assert.False(t, ok)
	_, ok = tbl.EnumValue("missing", "x")
	assert.False(t, ok)

	assert.Equal(t, "loan_id", tbl.ColumnNames()[0])
}

func TestNewCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableDef
		wantErr string
	}{
		{
			name:    "invalid table name",
			tables:  []TableDef{{Name: "bad name"}},
			wantErr: "invalid identifier",
		},
		{
			name:    "invalid column name",
			tables:  []TableDef{{Name: "t", Columns: []ColumnDef{{Name: "x;y"}}}},
			wantErr: "invalid identifier",
		},
		{
			name:    "duplicate table",
			tables:  []TableDef{{Name: "t"}, {Name: "T"}},
			wantErr: "duplicate table",
		},
		{
			name:    "primary key not a column",
			tables:  []TableDef{{Name: "t", PrimaryKey: "id"}},
			wantErr: "primary key",
		},
		{
			name: "relationship to unknown table",
			tables: []TableDef{{
				Name:          "t",
				Columns:       []ColumnDef{{Name: "p_id"}},
				Relationships: []Relationship{{LocalColumn: "p_id", ForeignTable: "p", ForeignColumn: "id"}},
			}},
			wantErr: "unknown table",
		},
		{
			name: "relationship to unknown column",
			tables: []TableDef{
				{Name: "p", Columns: []ColumnDef{{Name: "id"}}},
				{
					Name:          "t",
					Columns:       []ColumnDef{{Name: "p_id"}},
					Relationships: []Relationship{{LocalColumn: "p_id", ForeignTable: "p", ForeignColumn: "pid"}},
				},
			},
			wantErr: "unknown column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.tables...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewCatalogInvalidIdentifierType(t *testing.T) {
	_, err := NewCatalog(TableDef{Name: "x-y"})
	var idErr *sqlutil.InvalidIdentifierError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "x-y", idErr.Name)
}

func TestEmptyCatalog(t *testing.T) {
	cat, err := NewCatalog()
	require.NoError(t, err)

	assert.True(t, cat.IsEmpty())
	assert.Empty(t, cat.Tables())
	_, ok := cat.PrimaryTable()
	assert.False(t, ok)
	_, ok = cat.Table("customers")
	assert.False(t, ok)

	var nilCat *Catalog
	assert.Equal(t, 0, nilCat.Len())
}

func TestPrimaryTableWithoutRelationships(t *testing.T) {
	cat := MustCatalog(TableDef{Name: "a"}, TableDef{Name: "b"})
	primary, ok := cat.PrimaryTable()
	require.True(t, ok)
	assert.Equal(t, "a", primary.Name)
}

func TestMustCatalogPanics(t *testing.T) {
	assert.Panics(t, func() { MustCatalog(TableDef{Name: ""}) })
}

func TestTextFormat(t *testing.T) {
	text := Banking().Text()

	assert.True(t, strings.HasPrefix(text, "TABLE customers (PK: customer_id)\n"))
	assert.Contains(t, text, "  status: varchar(20) (Active|Paid Off|Defaulted|Pending) NOT NULL\n")
	assert.Contains(t, text, "  phone: varchar(20)\n")
	assert.Contains(t, text, "    customer_id -> customers.customer_id\n")
	assert.Contains(t, text, "\n\nTABLE loans (PK: loan_id)\n")
}

func TestMarkdownFormat(t *testing.T) {
	var b strings.Builder
	f, err := NewFormatter("markdown", &b)
	require.NoError(t, err)
	require.NoError(t, f.Format(Banking()))

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "# Database Schema\n\n## customers\n"))
	assert.Contains(t, out, "- **customer_id:** integer, PK, NOT NULL\n")
	assert.Contains(t, out, "- **merchant:** varchar(50)\n")
	assert.Contains(t, out, "### References\n\n- customer_id → customers.customer_id\n")
}

func TestNewFormatterUnknown(t *testing.T) {
	_, err := NewFormatter("yaml", &strings.Builder{})
	assert.Error(t, err)

	f, err := NewFormatter("", &strings.Builder{})
	require.NoError(t, err)
	assert.IsType(t, &TextFormatter{}, f)
}
