package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id                  UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  email               TEXT        NOT NULL UNIQUE,
  name                TEXT        NOT NULL,
  storage_used_bytes  BIGINT      NOT NULL DEFAULT 0 CHECK (storage_used_bytes >= 0),
  storage_limit_bytes BIGINT      NOT NULL CHECK (storage_limit_bytes >= 0),
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_folders",
		SQL: `CREATE TABLE IF NOT EXISTS folders (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id     UUID        NOT NULL REFERENCES users (id),
  parent_id   UUID        REFERENCES folders (id) ON DELETE SET NULL,
  name        TEXT        NOT NULL,
  path        TEXT        NOT NULL,
  color       TEXT        NOT NULL DEFAULT '',
  description TEXT        NOT NULL DEFAULT '',
  is_root     BOOLEAN     NOT NULL DEFAULT FALSE,
  is_deleted  BOOLEAN     NOT NULL DEFAULT FALSE,
  deleted_at  TIMESTAMPTZ,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_folders_user_parent",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_folders_user_parent ON folders (user_id, parent_id) WHERE NOT is_deleted;`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id          UUID        NOT NULL REFERENCES users (id),
  folder_id        UUID        REFERENCES folders (id) ON DELETE SET NULL,
  name             TEXT        NOT NULL,
  original_name    TEXT        NOT NULL,
  file_size        BIGINT      NOT NULL CHECK (file_size >= 0),
  file_type        TEXT        NOT NULL DEFAULT '',
  mime_type        TEXT        NOT NULL DEFAULT 'application/octet-stream',
  category         TEXT        NOT NULL DEFAULT 'OTHERS',
  storage_key      TEXT        NOT NULL UNIQUE,
  checksum         TEXT        NOT NULL DEFAULT '',
  version          INT         NOT NULL DEFAULT 1,
  is_favorite      BOOLEAN     NOT NULL DEFAULT FALSE,
  download_count   BIGINT      NOT NULL DEFAULT 0,
  is_deleted       BOOLEAN     NOT NULL DEFAULT FALSE,
  deleted_at       TIMESTAMPTZ,
  last_accessed_at TIMESTAMPTZ,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_user_folder",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_user_folder ON documents (user_id, folder_id) WHERE NOT is_deleted;`,
	},
	{
		Name: "create_index_documents_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_category ON documents (user_id, category) WHERE NOT is_deleted;`,
	},
	{
		Name: "create_table_document_tags",
		SQL: `CREATE TABLE IF NOT EXISTS document_tags (
  document_id UUID NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  name        TEXT NOT NULL,
  PRIMARY KEY (document_id, name)
);`,
	},
	{
		Name: "create_table_document_versions",
		SQL: `CREATE TABLE IF NOT EXISTS document_versions (
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id    UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  version_number INT         NOT NULL,
  storage_key    TEXT        NOT NULL,
  file_size      BIGINT      NOT NULL,
  checksum       TEXT        NOT NULL DEFAULT '',
  change_note    TEXT        NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, version_number)
);`,
	},
	{
		Name: "create_table_document_metadata",
		SQL: `CREATE TABLE IF NOT EXISTS document_metadata (
  document_id      UUID        PRIMARY KEY REFERENCES documents (id) ON DELETE CASCADE,
  attributes       JSONB       NOT NULL DEFAULT '{}',
  extracted_text   TEXT,
  page_count       INT,
  width            INT,
  height           INT,
  duration_seconds BIGINT,
  author           TEXT,
  title            TEXT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_trash_items",
		SQL: `CREATE TABLE IF NOT EXISTS trash_items (
  id            UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id       UUID        NOT NULL REFERENCES users (id),
  item_type     TEXT        NOT NULL CHECK (item_type IN ('DOCUMENT', 'FOLDER')),
  item_id       UUID        NOT NULL,
  item_name     TEXT        NOT NULL,
  original_path TEXT        NOT NULL DEFAULT '',
  file_size     BIGINT,
  cascade_id    UUID        NOT NULL,
  deleted_at    TIMESTAMPTZ NOT NULL,
  expires_at    TIMESTAMPTZ NOT NULL,
  UNIQUE (item_type, item_id)
);`,
	},
	{
		Name: "create_index_trash_items_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_trash_items_expires_at ON trash_items (expires_at);`,
	},
	{
		Name: "create_table_share_grants",
		SQL: `CREATE TABLE IF NOT EXISTS share_grants (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  item_type  TEXT        NOT NULL CHECK (item_type IN ('DOCUMENT', 'FOLDER')),
  item_id    UUID        NOT NULL,
  owner_id   UUID        NOT NULL REFERENCES users (id),
  grantee_id UUID        NOT NULL REFERENCES users (id),
  permission TEXT        NOT NULL,
  expires_at TIMESTAMPTZ,
  message    TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (item_type, item_id, grantee_id)
);`,
	},
	{
		Name: "create_table_share_links",
		SQL: `CREATE TABLE IF NOT EXISTS share_links (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  token            TEXT        NOT NULL UNIQUE,
  item_type        TEXT        NOT NULL CHECK (item_type IN ('DOCUMENT', 'FOLDER')),
  item_id          UUID        NOT NULL,
  created_by       UUID        NOT NULL REFERENCES users (id),
  permission       TEXT        NOT NULL,
  expires_at       TIMESTAMPTZ,
  password_hash    TEXT,
  access_count     BIGINT      NOT NULL DEFAULT 0,
  max_access_count BIGINT,
  is_active        BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_share_links_expires_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_share_links_expires_at ON share_links (expires_at) WHERE is_active;`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
