// Package models contains GORM persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free
// of ORM concerns. Each model converts with ToDomain and FromDomain.
package models
