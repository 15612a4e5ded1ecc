// Package storage provides persistent storage for recipes, schedule previews
// and cooking stats. It uses BadgerDB as the embedded database and stores
// values as JSON under string keys.
package storage
