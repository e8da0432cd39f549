package testutil

import (
	"time"

	"crmexport/internal/records"
)

// FixtureTime is the creation time stamped on fixture records
var FixtureTime = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

// Customers returns a small CRM customer collection. Field sets differ
// between records so the union of keys is exercised.
func Customers() records.Collection {
	return records.Collection{
		records.Of("id", 1, "name", "Asha Rao", "city", "Pune", "deal_value", 12000, "active", true, "created", FixtureTime),
		records.Of("id", 2, "name", "Bilal Khan", "city", "Mumbai", "deal_value", 8500.5, "active", false),
		records.Of("id", 3, "name", "Chen Wei", "city", "pune", "deal_value", 0, "email", "chen@example.com"),
		records.Of("id", 4, "name", "Dana \"DJ\" Jones", "city", "Delhi, NCR", "active", true),
	}
}

// Leads returns a lead collection used as a second batch section
func Leads() records.Collection {
	return records.Collection{
		records.Of("lead", "L-100", "source", "web", "score", 72),
		records.Of("lead", "L-101", "source", "referral", "score", 91),
	}
}

// CustomersJSON is Customers without the time field, as a request body
const CustomersJSON = `[
  {"id": 1, "name": "Asha Rao", "city": "Pune", "deal_value": 12000, "active": true},
  {"id": 2, "name": "Bilal Khan", "city": "Mumbai", "deal_value": 8500.5, "active": false},
  {"id": 3, "name": "Chen Wei", "city": "pune", "deal_value": 0, "email": "chen@example.com"},
  {"id": 4, "name": "Dana \"DJ\" Jones", "city": "Delhi, NCR", "active": true}
]`
