package repository

import (
	"context"
	"encoding/json"
	"testing"

	"crm_pipeline_backend/internal/pipeline/domain"
	"crm_pipeline_backend/platform/apperr"
)

func TestDecodeRecordRejectsMismatchedID(t *testing.T) {
	if _, err := decodeRecord[domain.Deal]("d1", []byte(`{"id":"d2"}`)); err == nil {
		t.Fatal("expected error for mismatched id")
	}
	if _, err := decodeRecord[domain.Deal]("d1", []byte(`{not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestDecodeRecordReadsOwner(t *testing.T) {
	task, err := decodeRecord[domain.Task]("t1", []byte(`{"id":"t1","owner":{"kind":"cuenta","id":"a1"},"titulo":"Llamar"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Owner != domain.AccountOwner("a1") {
		t.Fatalf("unexpected owner %+v", task.Owner)
	}
}

func TestEncodeRowsSortedByID(t *testing.T) {
	rows, err := encodeRows(map[string]domain.User{
		"b": {ID: "b", Name: "Beto"},
		"a": {ID: "a", Name: "Ana"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "a" || rows[1][0] != "b" {
		t.Fatalf("unexpected rows %v", rows)
	}
	var user domain.User
	if err := json.Unmarshal(rows[0][1].([]byte), &user); err != nil || user.Name != "Ana" {
		t.Fatalf("unexpected payload %s (%v)", rows[0][1], err)
	}
}

func TestUnconfiguredCollectionFails(t *testing.T) {
	var c *PGCollection[domain.Deal]
	if _, err := c.ReadAll(context.Background()); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err := NewPGCollection[domain.Deal](nil, TableDeals).Patch(context.Background(), nil, []string{"x"}); !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}
