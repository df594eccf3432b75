package storage

import (
	_ "embed"
)

const (
	insertSavedSessionSQL = `
INSERT INTO saved_sessions (saved_at,
                            name,
                            resolution,
                            output_scale,
                            records,
                            directory)
VALUES (?, ?, ?, ?, ?, ?)`

	selectSavedSessionsSQL = `
SELECT id,
       saved_at,
       name,
       resolution,
       output_scale,
       records,
       directory
FROM saved_sessions
ORDER BY saved_at`
)

//go:embed schema.sql
var schemaSQL string
