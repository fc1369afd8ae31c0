package schema

// Enumerations shared by the banking catalog and the mock dataset.
var (
	AccountTypes     = []string{"Savings", "Checking", "Premium Checking", "Business", "Student"}
	CustomerSegments = []string{"Retail", "Premium", "Business", "Corporate", "Student"}
	TransactionTypes = []string{
		"ATM Withdrawal", "Deposit", "Wire Transfer", "Check Deposit",
		"Online Transfer", "POS Purchase", "Bill Payment", "Direct Deposit",
		"Mobile Payment", "ACH Transfer", "International Wire", "Cashback",
	}
	TransactionCategories = []string{
		"Groceries", "Utilities", "Rent", "Salary", "Healthcare", "Entertainment",
		"Transportation", "Dining", "Shopping", "Insurance", "Investment", "Education",
	}
	TransactionStatuses = []string{"completed", "pending", "failed"}
	LoanTypes           = []string{"Personal Loan", "Home Mortgage", "Auto Loan", "Business Loan", "Student Loan", "Credit Card"}
	LoanStatuses        = []string{"Active", "Paid Off", "Defaulted", "Pending"}
)

// Banking returns the catalog of the demo banking database.
func Banking() *Catalog {
	return MustCatalog(
		TableDef{
			Name:        "customers",
			Description: "Banking customers with account details, credit scores, and balances.",
			PrimaryKey:  "customer_id",
			Columns: []ColumnDef{
				{Name: "customer_id", Type: "integer"},
				{Name: "first_name", Type: "varchar(50)"},
				{Name: "last_name", Type: "varchar(50)"},
				{Name: "email", Type: "varchar(100)"},
				{Name: "phone", Type: "varchar(20)", Nullable: true},
				{Name: "city", Type: "varchar(50)"},
				{Name: "state", Type: "char(2)"},
				{Name: "account_type", Type: "varchar(30)", Enum: AccountTypes},
				{Name: "customer_segment", Type: "varchar(20)", Enum: CustomerSegments},
				{Name: "credit_score", Type: "integer"},
				{Name: "signup_date", Type: "date"},
				{Name: "account_balance", Type: "decimal(12,2)"},
				{Name: "is_active", Type: "boolean"},
			},
		},
		TableDef{
			Name:        "transactions",
			Description: "Customer banking transactions including deposits, withdrawals, transfers, and purchases. Multiple transactions per customer.",
			PrimaryKey:  "transaction_id",
			Columns: []ColumnDef{
				{Name: "transaction_id", Type: "integer"},
				{Name: "customer_id", Type: "integer"},
				{Name: "transaction_type", Type: "varchar(30)", Enum: TransactionTypes},
				{Name: "category", Type: "varchar(30)", Enum: TransactionCategories},
				{Name: "amount", Type: "decimal(12,2)"},
				{Name: "currency", Type: "char(3)"},
				{Name: "transaction_date", Type: "date"},
				{Name: "transaction_time", Type: "varchar(8)"},
				{Name: "status", Type: "varchar(20)", Enum: TransactionStatuses},
				{Name: "merchant", Type: "varchar(50)", Nullable: true},
				{Name: "location", Type: "varchar(50)", Nullable: true},
				{Name: "description", Type: "varchar(100)", Nullable: true},
			},
			Relationships: []Relationship{
				{LocalColumn: "customer_id", ForeignTable: "customers", ForeignColumn: "customer_id"},
			},
		},
		TableDef{
			Name:        "loans",
			Description: "Customer loans including mortgages, auto loans, personal loans, and business loans with payment details.",
			PrimaryKey:  "loan_id",
			Columns: []ColumnDef{
				{Name: "loan_id", Type: "integer"},
				{Name: "customer_id", Type: "integer"},
				{Name: "loan_type", Type: "varchar(30)", Enum: LoanTypes},
				{Name: "principal_amount", Type: "decimal(12,2)"},
				{Name: "outstanding_balance", Type: "decimal(12,2)"},
				{Name: "interest_rate", Type: "decimal(5,2)"},
				{Name: "term_months", Type: "integer"},
				{Name: "monthly_payment", Type: "decimal(12,2)"},
				{Name: "start_date", Type: "date"},
				{Name: "status", Type: "varchar(20)", Enum: LoanStatuses},
				{Name: "credit_score_at_approval", Type: "integer"},
			},
			Relationships: []Relationship{
				{LocalColumn: "customer_id", ForeignTable: "customers", ForeignColumn: "customer_id"},
			},
		},
	)
}
