// Package migrations registers the schema. Importing it (for side effects)
// is enough for migration.New(db).Run to create every table.
package migrations
