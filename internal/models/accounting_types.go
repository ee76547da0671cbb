package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AccountingString handles the gateway's dynamic typing: empty text fields
// arrive as boolean false instead of "".
type AccountingString string

// UnmarshalJSON accepts a string or a boolean
func (s *AccountingString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = AccountingString(str)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*s = "true"
		} else {
			*s = ""
		}
		return nil
	}

	// numeric codes are kept as their literal text
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = AccountingString(n.String())
		return nil
	}

	return errors.New("AccountingString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (s AccountingString) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (s *AccountingString) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = ""
	case string:
		*s = AccountingString(v)
	case []byte:
		*s = AccountingString(string(v))
	default:
		return fmt.Errorf("failed to scan AccountingString: %v", value)
	}
	return nil
}

func (s AccountingString) String() string {
	return string(s)
}

// FlexBool accepts true/false as JSON booleans or as the strings "true"/"false"
// (any case), which older mobile clients send for the dataBase flag.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = FlexBool(v)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("FlexBool: expected boolean, got %s", string(data))
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("FlexBool: expected boolean, got %q", s)
	}
	*b = FlexBool(parsed)
	return nil
}

func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}
