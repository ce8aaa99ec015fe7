package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// matchNotesSQL ranks a user's embedded notes by cosine similarity to a query vector.
const matchNotesSQL = `CREATE OR REPLACE FUNCTION match_notes(
	query_embedding vector(384),
	match_threshold float,
	match_count int,
	p_user_id text,
	p_exclude_id text
)
RETURNS TABLE (id text, similarity float)
LANGUAGE sql STABLE
AS $$
	SELECT n.id, 1 - (n.embedding <=> query_embedding) AS similarity
	FROM notes n
	WHERE n.embedding IS NOT NULL
		AND n.user_id = p_user_id
		AND n.id <> p_exclude_id
		AND 1 - (n.embedding <=> query_embedding) > match_threshold
	ORDER BY n.embedding <=> query_embedding, n.created_at DESC
	LIMIT match_count
$$`

// runMigrations runs all database migrations using gormigrate.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_vector_extension",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return nil
			},
		},

		{
			ID: "002_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Note{}, &UserStats{}, &DailyActivity{}, &UserAchievement{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("user_achievements", "daily_activity", "user_stats", "notes")
			},
		},

		// Approximate nearest neighbour index for cosine distance.
		{
			ID: "003_notes_embedding_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_notes_embedding
					ON notes USING hnsw (embedding vector_cosine_ops)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_notes_embedding").Error
			},
		},

		{
			ID: "004_match_notes_function",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(matchNotesSQL).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP FUNCTION IF EXISTS match_notes(vector, float, int, text, text)").Error
			},
		},
	})

	return m.Migrate()
}
