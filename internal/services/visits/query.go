package visits

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jinzhu/now"

	"github.com/xelth-com/mprgo/internal/apperr"
)

// ListQuery holds the list filters as supplied by the caller
type ListQuery struct {
	ManagerID *string
	Author    *string
	Processed *bool
	Invoice   *bool
	Status    *int
	ClientINN *string
	DateFrom  *time.Time
	Limit     int
	DataBase  *bool
}

// ParseListQuery reads list filters from query parameters
func ParseListQuery(values url.Values) (ListQuery, error) {
	var q ListQuery

	q.ManagerID = stringParam(values, "managerID")
	q.Author = stringParam(values, "author")
	q.ClientINN = stringParam(values, "clientINN")

	var err error
	if q.Processed, err = boolParam(values, "processed"); err != nil {
		return q, err
	}
	if q.Invoice, err = boolParam(values, "invoice"); err != nil {
		return q, err
	}
	if q.DataBase, err = boolParam(values, "dataBase"); err != nil {
		return q, err
	}

	if s := values.Get("status"); s != "" {
		status, err := strconv.Atoi(s)
		if err != nil || status < -1 || status > 2 {
			return q, apperr.Validation("status must be one of -1, 0, 1, 2")
		}
		q.Status = &status
	}

	if s := values.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return q, apperr.Validation("limit must be a positive integer")
		}
		q.Limit = limit
	}

	if s := values.Get("date"); s != "" {
		t, err := now.ParseInLocation(time.UTC, s)
		if err != nil {
			return q, apperr.Validation("date must be a YYYY-MM-DD date")
		}
		from := now.With(t).BeginningOfDay()
		q.DateFrom = &from
	}

	return q, nil
}

func stringParam(values url.Values, key string) *string {
	if s := values.Get(key); s != "" {
		return &s
	}
	return nil
}

func boolParam(values url.Values, key string) (*bool, error) {
	s := values.Get(key)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Validation("%s must be true or false", key)
	}
	return &b, nil
}
