// Package database provides the PostgreSQL persistence layer: connection
// pooling, schema migrations and the repository implementations for tasks,
// comments, notifications and users.
package database
