package gorm

import (
	"github.com/pgvector/pgvector-go"
)

// toVector returns nil for an empty embedding so the column stores NULL.
func toVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}
