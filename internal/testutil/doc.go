// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing messages, agents and pre-populated
// repositories. They are not intended for production usage.
package testutil
