package mockdb

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/dbsmedya/nlquery/internal/schema"
)

// DefaultSeed makes the dataset identical across runs.
const DefaultSeed int64 = 20240101

const (
	customerCount     = 100
	loanCustomerCount = 60
)

var (
	firstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael", "Linda",
		"William", "Barbara", "David", "Elizabeth", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Charles", "Karen", "Daniel", "Lisa", "Matthew", "Betty",
		"Anthony", "Margaret", "Mark", "Sandra", "Steven", "Ashley", "Paul", "Emily",
		"Andrew", "Donna", "Kevin", "Amanda", "Brian", "Melissa", "George", "Rebecca",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson", "Thomas",
		"Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson", "White",
		"Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson", "Walker", "Young",
		"Nguyen", "Patel", "Kim", "Cooper", "Reed", "Bailey", "Kelly", "Howard",
	}
	cities = []string{
		"New York", "Los Angeles", "Chicago", "Houston", "Phoenix", "Philadelphia",
		"San Antonio", "San Diego", "Dallas", "San Jose", "Austin", "Jacksonville",
		"Columbus", "Charlotte", "San Francisco", "Seattle", "Denver", "Boston",
		"Nashville", "Detroit", "Portland", "Las Vegas", "Miami",
	}
	states    = []string{"CA", "TX", "FL", "IL"}
	locations = []string{"New York, NY", "Los Angeles, CA", "Chicago, IL", "Houston, TX", "Online"}
	atmSteps  = []float64{20, 40, 60, 80, 100, 200}

	// Weighted toward the common outcome.
	transactionStatusWeights = []string{"completed", "completed", "completed", "pending", "failed"}
	loanStatusWeights        = []string{"Active", "Active", "Active", "Paid Off", "Defaulted", "Pending"}
)

// Customer is a row of the customers table.
type Customer struct {
	ID             int64
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	City           string
	State          string
	AccountType    string
	Segment        string
	CreditScore    int
	SignupDate     string
	AccountBalance float64
	Active         bool
}

// Transaction is a row of the transactions table.
type Transaction struct {
	ID          int64
	CustomerID  int64
	Type        string
	Category    string
	Amount      float64
	Currency    string
	Date        string
	Time        string
	Status      string
	Merchant    string
	Location    string
	Description string
}

// Loan is a row of the loans table.
type Loan struct {
	ID                    int64
	CustomerID            int64
	Type                  string
	PrincipalAmount       float64
	OutstandingBalance    float64
	InterestRate          float64
	TermMonths            int
	MonthlyPayment        float64
	StartDate             string
	Status                string
	CreditScoreAtApproval int
}

// Dataset is the generated banking data.
type Dataset struct {
	Customers    []Customer
	Transactions []Transaction
	Loans        []Loan
}

type generator struct {
	r *rand.Rand
}

// Generate builds the dataset for seed: 100 customers with 5 to 15
// transactions each, and 60 of them holding 1 to 3 loans.
func Generate(seed int64) *Dataset {
	g := &generator{r: rand.New(rand.NewSource(seed))}
	ds := &Dataset{}
	ds.Customers = g.customers()
	ds.Transactions = g.transactions(ds.Customers)
	ds.Loans = g.loans(ds.Customers)
	return ds
}

func (g *generator) pick(values []string) string {
	return values[g.r.Intn(len(values))]
}

func (g *generator) between(lo, hi int) int {
	return lo + g.r.Intn(hi-lo+1)
}

func (g *generator) uniform(lo, hi float64) float64 {
	return round2(lo + g.r.Float64()*(hi-lo))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (g *generator) customers() []Customer {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Customer, 0, customerCount)
	for i := 1; i <= customerCount; i++ {
		segment := g.pick(schema.CustomerSegments)
		var score int
		switch segment {
		case "Premium", "Corporate":
			score = g.between(720, 850)
		case "Business":
			score = g.between(680, 800)
		default:
			score = g.between(600, 780)
		}

		state := "NY"
		if g.r.Float64() <= 0.7 {
			state = g.pick(states)
		}

		out = append(out, Customer{
			ID:             int64(i),
			FirstName:      g.pick(firstNames),
			LastName:       g.pick(lastNames),
			Email:          fmt.Sprintf("customer%d@email.com", i),
			Phone:          fmt.Sprintf("+1-555-%03d-%04d", g.between(100, 999), g.between(1000, 9999)),
			City:           g.pick(cities),
			State:          state,
			AccountType:    g.pick(schema.AccountTypes),
			Segment:        segment,
			CreditScore:    score,
			SignupDate:     base.AddDate(0, 0, g.between(0, 1800)).Format("2006-01-02"),
			AccountBalance: g.uniform(500, 250000),
			Active:         g.r.Intn(4) != 0,
		})
	}
	return out
}

func (g *generator) transactions(customers []Customer) []Transaction {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []Transaction
	id := int64(1)
	for _, c := range customers {
		n := g.between(5, 15)
		for k := 0; k < n; k++ {
			typ := g.pick(schema.TransactionTypes)
			var amount float64
			switch typ {
			case "Direct Deposit":
				amount = g.uniform(2000, 8000)
			case "Bill Payment":
				amount = g.uniform(800, 3000)
			case "Wire Transfer", "International Wire":
				amount = g.uniform(500, 15000)
			case "ATM Withdrawal":
				amount = atmSteps[g.r.Intn(len(atmSteps))]
			default:
				amount = g.uniform(10, 500)
			}
			category := g.pick(schema.TransactionCategories)

			out = append(out, Transaction{
				ID:          id,
				CustomerID:  c.ID,
				Type:        typ,
				Category:    category,
				Amount:      amount,
				Currency:    "USD",
				Date:        base.AddDate(0, 0, g.between(0, 310)).Format("2006-01-02"),
				Time:        fmt.Sprintf("%02d:%02d:%02d", g.r.Intn(24), g.r.Intn(60), g.r.Intn(60)),
				Status:      g.pick(transactionStatusWeights),
				Merchant:    fmt.Sprintf("Merchant_%d", g.between(1, 50)),
				Location:    g.pick(locations),
				Description: typ + " - " + category,
			})
			id++
		}
	}
	return out
}

type loanTerms struct {
	principalLo, principalHi float64
	rateLo, rateHi           float64
	terms                    []int
}

var termsByType = map[string]loanTerms{
	"Home Mortgage": {150000, 500000, 3.5, 6.5, []int{180, 240, 360}},
	"Auto Loan":     {15000, 60000, 4.0, 8.0, []int{36, 48, 60, 72}},
	"Business Loan": {25000, 200000, 5.5, 12.0, []int{36, 60, 84, 120}},
	"Student Loan":  {10000, 80000, 3.0, 6.5, []int{120, 180, 240}},
}

var defaultTerms = loanTerms{5000, 35000, 8.0, 18.0, []int{24, 36, 48, 60}}

func (g *generator) loans(customers []Customer) []Loan {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	holders := g.r.Perm(len(customers))[:loanCustomerCount]

	var out []Loan
	id := int64(1)
	for _, idx := range holders {
		c := customers[idx]
		n := g.between(1, 3)
		for k := 0; k < n; k++ {
			typ := g.pick(schema.LoanTypes)
			status := g.pick(loanStatusWeights)
			terms, ok := termsByType[typ]
			if !ok {
				terms = defaultTerms
			}
			principal := g.uniform(terms.principalLo, terms.principalHi)
			rate := g.uniform(terms.rateLo, terms.rateHi)
			term := terms.terms[g.r.Intn(len(terms.terms))]
			elapsed := g.between(1, min(term, 60))

			var outstanding float64
			switch status {
			case "Paid Off":
			case "Defaulted":
				outstanding = principal * (0.4 + g.r.Float64()*0.5)
			default:
				outstanding = principal * (1 - float64(elapsed)/float64(term))
			}

			monthly := rate / 100 / 12
			payment := principal * monthly / (1 - math.Pow(1+monthly, -float64(term)))

			out = append(out, Loan{
				ID:                    id,
				CustomerID:            c.ID,
				Type:                  typ,
				PrincipalAmount:       principal,
				OutstandingBalance:    round2(outstanding),
				InterestRate:          rate,
				TermMonths:            term,
				MonthlyPayment:        round2(payment),
				StartDate:             base.AddDate(0, 0, g.between(0, 1400)).Format("2006-01-02"),
				Status:                status,
				CreditScoreAtApproval: c.CreditScore + g.between(-30, 10),
			})
			id++
		}
	}
	return out
}
