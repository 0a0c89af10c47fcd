package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Journal represents a journal that accepts submissions
type Journal struct {
	ID            int64           `json:"id" db:"id"`
	Slug          string          `json:"slug" db:"slug"`
	NameEN        string          `json:"name_en" db:"name_en"`
	NameUZ        string          `json:"name_uz" db:"name_uz"`
	NameRU        string          `json:"name_ru" db:"name_ru"`
	DescriptionEN string          `json:"description_en" db:"description_en"`
	DescriptionUZ string          `json:"description_uz" db:"description_uz"`
	DescriptionRU string          `json:"description_ru" db:"description_ru"`
	IsPaid        bool            `json:"is_paid" db:"is_paid"`
	PricePerPage  decimal.Decimal `json:"price_per_page" db:"price_per_page"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Name returns the journal name for lang, falling back to English.
func (j *Journal) Name(lang string) string {
	var name string
	switch lang {
	case "uz":
		name = j.NameUZ
	case "ru":
		name = j.NameRU
	}
	if name == "" {
		return j.NameEN
	}
	return name
}

// Description returns the journal description for lang, falling back to English.
func (j *Journal) Description(lang string) string {
	switch lang {
	case "uz":
		if j.DescriptionUZ != "" {
			return j.DescriptionUZ
		}
	case "ru":
		if j.DescriptionRU != "" {
			return j.DescriptionRU
		}
	}
	return j.DescriptionEN
}

// JournalNDJSON represents a journal record from a catalog import file
type JournalNDJSON struct {
	Slug          string `json:"slug" validate:"required,slug"`
	NameEN        string `json:"name_en" validate:"required,max=255"`
	NameUZ        string `json:"name_uz" validate:"max=255"`
	NameRU        string `json:"name_ru" validate:"max=255"`
	DescriptionEN string `json:"description_en" validate:"required"`
	DescriptionUZ string `json:"description_uz"`
	DescriptionRU string `json:"description_ru"`
	IsPaid        bool   `json:"is_paid"`
	PricePerPage  string `json:"price_per_page" validate:"omitempty,money"`
}
