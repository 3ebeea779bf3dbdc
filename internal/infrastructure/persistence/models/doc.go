// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain types carry no GORM tags or infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. ToDomain converts a loaded model into its domain type
// 4. Repositories use persistence models for database operations
//
// The schema itself is owned by the SQL files in migrations/. Models must
// match it column for column.
package models
