package model

import (
	"fmt"
	"strings"
	"time"

	"gym-membership/internal/domain"
)

// Plan is a purchasable membership tier. Price is in the smallest currency
// unit and DurationMonths is a whole number of calendar months.
type Plan struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          int64     `json:"price"`
	DurationMonths int       `json:"duration"`
	Features       []string  `json:"features"`
	IsBestValue    bool      `json:"isBestValue"`
	HasDiscount    bool      `json:"hasDiscount"`
	OriginalPrice  int64     `json:"originalPrice"`
	DiscountPrice  int64     `json:"discountPrice"`
	DiscountAmount int64     `json:"discountAmount"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs an active plan.
func NewPlan(id, name, description string, price int64, durationMonths int, features []string) (*Plan, error) {
	p := &Plan{
		ID:             id,
		Name:           strings.TrimSpace(name),
		Description:    strings.TrimSpace(description),
		Price:          price,
		DurationMonths: durationMonths,
		Features:       features,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: plan name is required", domain.ErrValidation)
	case p.Description == "":
		return fmt.Errorf("%w: plan description is required", domain.ErrValidation)
	case p.Price <= 0:
		return fmt.Errorf("%w: plan price must be positive", domain.ErrValidation)
	case p.DurationMonths <= 0:
		return fmt.Errorf("%w: plan duration must be at least one month", domain.ErrValidation)
	case p.DiscountAmount < 0 || p.DiscountPrice < 0 || p.OriginalPrice < 0:
		return fmt.Errorf("%w: plan discount fields must not be negative", domain.ErrValidation)
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	return nil
}

// EndDate returns start advanced by the plan duration in calendar months.
func (p *Plan) EndDate(start time.Time) time.Time {
	return start.AddDate(0, p.DurationMonths, 0)
}
