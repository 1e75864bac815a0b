// Package models contains the GORM persistence models. Domain types carry no
// ORM tags; each model converts to and from its aggregate with ToDomain and
// a ...FromDomain constructor.
//
// Nested value lists (session entity types, validation issues, payslip
// lines, routing operations) are stored as jsonb through datatypes.JSON.
package models
