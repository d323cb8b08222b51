// Package directory persists employees and their linked social accounts.
package directory

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the requested employee or account does not exist.
var ErrNotFound = errors.New("not found")

// NetworkSlack is the network name under which Slack accounts are linked.
const NetworkSlack = "slack"

// Date is a calendar date stored as ISO-8601 text, so it round-trips
// identically through SQLite and Postgres.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Format(dateLayout), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case time.Time:
		d.Time = v
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) parse(s string) error {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// MarshalJSON renders the date-only form.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

// UnmarshalJSON parses the date-only form.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// Employee is a person in the directory.
type Employee struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	DOB   *Date  `db:"dob"`
}

// Account links an employee to an identity on an external network, such as
// their Slack user within a given workspace.
type Account struct {
	ID              string  `db:"id" json:"id"`
	EmployeeID      string  `db:"employee_id" json:"employee_id"`
	Network         string  `db:"network" json:"network"`
	NetworkInstance string  `db:"network_instance" json:"network_instance"`
	Subject         *string `db:"subject" json:"subject,omitempty"`
	Name            *string `db:"name" json:"name,omitempty"`
	Nick            *string `db:"nick" json:"nick,omitempty"`
	URL             *string `db:"url" json:"url,omitempty"`
	Avatar          *string `db:"avatar" json:"avatar,omitempty"`
}
