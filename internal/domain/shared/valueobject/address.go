package valueobject

import (
	"encoding/json"
	"strings"
)

// Address is a value object representing a mailing address printed on a check.
// It is immutable - all operations return new Address instances.
// Vendor master data is loaded as-is, so no field is mandatory here.
type Address struct {
	line1      string
	line2      string
	city       string
	state      string
	postalCode string
}

// AddressOption is a functional option for configuring Address
type AddressOption func(*Address)

// WithLine2 sets the second address line (suite, building, PO box)
func WithLine2(line2 string) AddressOption {
	return func(a *Address) {
		a.line2 = strings.TrimSpace(line2)
	}
}

// WithPostalCode sets the postal code for the address
func WithPostalCode(postalCode string) AddressOption {
	return func(a *Address) {
		a.postalCode = strings.TrimSpace(postalCode)
	}
}

// NewAddress creates a new Address from its first line, city and state
func NewAddress(line1, city, state string, opts ...AddressOption) Address {
	addr := Address{
		line1: strings.TrimSpace(line1),
		city:  strings.TrimSpace(city),
		state: strings.TrimSpace(state),
	}
	for _, opt := range opts {
		opt(&addr)
	}
	return addr
}

// EmptyAddress returns an empty address (for vendors without remittance data)
func EmptyAddress() Address {
	return Address{}
}

// Line1 returns the first address line
func (a Address) Line1() string {
	return a.line1
}

// Line2 returns the second address line
func (a Address) Line2() string {
	return a.line2
}

// City returns the city
func (a Address) City() string {
	return a.city
}

// State returns the state or province code
func (a Address) State() string {
	return a.state
}

// PostalCode returns the postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// IsEmpty returns true if every field is blank
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Lines returns the address formatted as envelope lines:
// line1, optional line2, then "City, ST 12345".
func (a Address) Lines() []string {
	if a.IsEmpty() {
		return nil
	}

	lines := make([]string, 0, 3)
	if a.line1 != "" {
		lines = append(lines, a.line1)
	}
	if a.line2 != "" {
		lines = append(lines, a.line2)
	}

	last := a.city
	if a.state != "" {
		if last != "" {
			last += ", "
		}
		last += a.state
	}
	if a.postalCode != "" {
		if last != "" {
			last += " "
		}
		last += a.postalCode
	}
	if last != "" {
		lines = append(lines, last)
	}
	return lines
}

// String returns the address on a single line
func (a Address) String() string {
	return strings.Join(a.Lines(), ", ")
}

// Equals returns true if both addresses have identical fields
func (a Address) Equals(other Address) bool {
	return a == other
}

type addressJSON struct {
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		Address1:   a.line1,
		Address2:   a.line2,
		City:       a.city,
		State:      a.state,
		PostalCode: a.postalCode,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Address) UnmarshalJSON(data []byte) error {
	var aj addressJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	*a = NewAddress(aj.Address1, aj.City, aj.State, WithLine2(aj.Address2), WithPostalCode(aj.PostalCode))
	return nil
}
