package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// encodeMentions stores an empty list as NULL, which is the "no mentions" sentinel
func encodeMentions(ids []int64) (any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeMentions(ns sql.NullString) ([]int64, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(ns.String), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func encodeJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

var errNoRows = sql.ErrNoRows

// requireAffected returns ErrNotFound when an update or delete touched no rows
func requireAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(errNoRows, what)
	}
	return nil
}
