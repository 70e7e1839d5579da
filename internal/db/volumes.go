package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrVolumeNotFound is returned when no manifest entry exists.
var ErrVolumeNotFound = errors.New("volume not found in manifest")

// Volume is one generated scaled volume. Name is the file name inside the
// mode directory, so the manifest survives the data directory moving.
type Volume struct {
	Mode   string
	Name   string
	Factor float64
}

// UpsertVolume records the factor a volume was generated from.
func (db *DB) UpsertVolume(v Volume) error {
	_, err := db.Exec(`
		INSERT INTO volumes (mode, name, factor) VALUES (?, ?, ?)
		ON CONFLICT (mode, name) DO UPDATE SET factor = excluded.factor`,
		v.Mode, v.Name, v.Factor,
	)
	if err != nil {
		return fmt.Errorf("upsert volume %s/%s: %w", v.Mode, v.Name, err)
	}
	return nil
}

// VolumeByName returns the manifest entry for name in mode.
func (db *DB) VolumeByName(mode, name string) (Volume, error) {
	v := Volume{Mode: mode, Name: name}
	err := db.QueryRow(`SELECT factor FROM volumes WHERE mode = ? AND name = ?`, mode, name).Scan(&v.Factor)
	if errors.Is(err, sql.ErrNoRows) {
		return Volume{}, fmt.Errorf("%w: %s/%s", ErrVolumeNotFound, mode, name)
	}
	if err != nil {
		return Volume{}, fmt.Errorf("query volume %s/%s: %w", mode, name, err)
	}
	return v, nil
}

// Volumes lists the manifest entries for mode ordered by factor.
func (db *DB) Volumes(mode string) ([]Volume, error) {
	rows, err := db.Query(`SELECT name, factor FROM volumes WHERE mode = ? ORDER BY factor, name`, mode)
	if err != nil {
		return nil, fmt.Errorf("query volumes: %w", err)
	}
	defer rows.Close()

	var out []Volume
	for rows.Next() {
		v := Volume{Mode: mode}
		if err := rows.Scan(&v.Name, &v.Factor); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
