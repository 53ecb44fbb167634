package domain

// TagKeys lists the tag dimensions in ledger column order.
var TagKeys = []string{"department", "techgroup", "category", "subcategory", "priority"}

// Tags holds the categorical labels assigned to a ticket. A nil field means unknown.
type Tags struct {
	Department  *string
	TechGroup   *string
	Category    *string
	Subcategory *string
	Priority    *string
}

// Ticket is an immutable intake record. It is written once and never updated.
type Ticket struct {
	ID          int64
	Subject     string
	Description string
	Email       string
	Tags
}

// Value returns the tag stored under one of TagKeys.
func (t Tags) Value(key string) *string {
	switch key {
	case "department":
		return t.Department
	case "techgroup":
		return t.TechGroup
	case "category":
		return t.Category
	case "subcategory":
		return t.Subcategory
	case "priority":
		return t.Priority
	}
	return nil
}

// Set assigns the tag for key. Unknown keys are ignored.
func (t *Tags) Set(key string, value *string) {
	switch key {
	case "department":
		t.Department = value
	case "techgroup":
		t.TechGroup = value
	case "category":
		t.Category = value
	case "subcategory":
		t.Subcategory = value
	case "priority":
		t.Priority = value
	}
}
