package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"natours/internal/domain"
)

// UserRef points at a user. It serializes as a bare id until populated.
type UserRef struct {
	ID    domain.ID
	Name  string
	Email string
	Photo string
	Role  domain.Role
}

type userRefJSON struct {
	ID    domain.ID   `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email,omitempty"`
	Photo string      `json:"photo,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

func (r UserRef) Populated() bool { return r.Name != "" }

func (r UserRef) MarshalJSON() ([]byte, error) {
	if !r.Populated() {
		return json.Marshal(r.ID)
	}
	return json.Marshal(userRefJSON(r))
}

func (r *UserRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var aux userRefJSON
		if err := json.Unmarshal(b, &aux); err != nil {
			return err
		}
		*r = UserRef(aux)
		return nil
	}
	id, err := parseRefID(b)
	if err != nil {
		return err
	}
	*r = UserRef{ID: id}
	return nil
}

// TourRef points at a tour. It serializes as a bare id until populated.
type TourRef struct {
	ID    domain.ID
	Name  string
	Slug  string
	Price float64
}

type tourRefJSON struct {
	ID    domain.ID `json:"id"`
	Name  string    `json:"name"`
	Slug  string    `json:"slug,omitempty"`
	Price float64   `json:"price,omitempty"`
}

func (r TourRef) Populated() bool { return r.Name != "" }

func (r TourRef) MarshalJSON() ([]byte, error) {
	if !r.Populated() {
		return json.Marshal(r.ID)
	}
	return json.Marshal(tourRefJSON(r))
}

func (r *TourRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '{' {
		var aux tourRefJSON
		if err := json.Unmarshal(b, &aux); err != nil {
			return err
		}
		*r = TourRef(aux)
		return nil
	}
	id, err := parseRefID(b)
	if err != nil {
		return err
	}
	*r = TourRef{ID: id}
	return nil
}

// parseRefID accepts 12, "12" and null.
func parseRefID(b []byte) (domain.ID, error) {
	if len(b) == 0 || string(b) == "null" {
		return 0, nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return 0, err
		}
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid reference id %q", s)
		}
		return domain.ID(n), nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return 0, fmt.Errorf("invalid reference id %s", b)
	}
	return domain.ID(n), nil
}
