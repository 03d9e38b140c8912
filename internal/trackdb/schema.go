package trackdb

import "database/sql"

// InitSchema ensures the tracker DB has the tables needed for link,
// click, and conversion accounting.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS links (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            short_code TEXT UNIQUE NOT NULL,
            original_url TEXT NOT NULL,
            product_name TEXT NOT NULL,
            program TEXT,
            commission TEXT,
            notes TEXT,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS clicks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            link_id INTEGER NOT NULL,
            clicked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            source TEXT,
            platform TEXT,
            campaign TEXT,
            FOREIGN KEY (link_id) REFERENCES links(id)
        )`,
		`CREATE TABLE IF NOT EXISTS conversions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            link_id INTEGER NOT NULL,
            converted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            amount REAL NOT NULL DEFAULT 0,
            is_recurring BOOLEAN NOT NULL DEFAULT 0,
            notes TEXT,
            FOREIGN KEY (link_id) REFERENCES links(id)
        )`,
		`CREATE TABLE IF NOT EXISTS campaigns (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            platform TEXT,
            start_date DATE,
            end_date DATE,
            budget REAL,
            status TEXT NOT NULL DEFAULT 'active',
            notes TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_link ON clicks(link_id)`,
		`CREATE INDEX IF NOT EXISTS idx_clicks_date ON clicks(clicked_at)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_link ON conversions(link_id)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
