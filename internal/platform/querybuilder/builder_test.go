package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := Select("payload", "fetched_at").
		From("raw_payloads").
		Where(Eq("entity_type", "video_stats"), Eq("entity_key", "vid-1"), IsNull("deleted_at")).
		OrderBy("fetched_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT payload, fetched_at FROM raw_payloads WHERE entity_type = $1 AND entity_key = $2 AND deleted_at IS NULL ORDER BY fetched_at DESC LIMIT 1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "video_stats" || args[1] != "vid-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel(t *testing.T) {
	t.Parallel()

	type row struct {
		Key     string `db:"entity_key"`
		Payload string `db:"payload,omitempty"`
		Skipped string `db:"-"`
		hidden  string `db:"hidden"`
	}

	query, args, err := InsertModel("raw_payloads", row{Key: "vid-1", Payload: "{}", hidden: "x"}, "ON CONFLICT (entity_key) DO NOTHING")
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO raw_payloads (entity_key, payload) VALUES ($1, $2) ON CONFLICT (entity_key) DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "vid-1" || args[1] != "{}" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := InsertModel("raw_payloads", (*row)(nil), ""); err == nil {
		t.Fatalf("expected error for nil model")
	}
	if _, _, err := InsertModel("raw_payloads", 42, ""); err == nil {
		t.Fatalf("expected error for non-struct model")
	}
}

func TestUpdateBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := Update("raw_payloads").
		SetExpr("deleted_at", "NOW()").
		Set("payload_hash", "").
		Where(Eq("entity_key", "vid-1"), IsNull("deleted_at")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE raw_payloads SET deleted_at = NOW(), payload_hash = $1 WHERE entity_key = $2 AND deleted_at IS NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "" || args[1] != "vid-1" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, _, err := Update("raw_payloads").ToSQL(); err == nil {
		t.Fatalf("expected error without assignments")
	}
}
