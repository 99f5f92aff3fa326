package models

import "time"

// DebitKind marks ledger rows written for vending purchases.
const DebitKind = "DEBIT"

// Debit is one ledger row mirroring a card debit.
type Debit struct {
	ID               int64     `db:"id" json:"id"`
	StudentNumber    string    `db:"student_number" json:"student_number"`
	Kind             string    `db:"kind" json:"kind"`
	AmountMinorUnits int       `db:"amount_minor_units" json:"amount_minor_units"`
	CardCounter      int64     `db:"card_counter" json:"card_counter"`
	Comment          string    `db:"comment" json:"comment"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Item is a product sold by the demo service.
type Item struct {
	ID    int    `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Emoji string `yaml:"emoji" json:"emoji,omitempty"`
}
