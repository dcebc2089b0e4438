// Package lims looks up mouse and session metadata in the LIMS database.
package lims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("lims: not found")

// Querier runs single-row queries. *pgxpool.Pool satisfies it.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	donorQuery = `
		SELECT d.id
		FROM donors d
		WHERE d.external_donor_name = $1::character varying`

	specimenQuery = `
		SELECT sp.id
		FROM specimens sp
		WHERE sp.external_specimen_name = $1::character varying`

	sessionQuery = `
		SELECT es.id, es.name, es.specimen_id, es.project_id, es.storage_directory, es.date_of_acquisition
		FROM ecephys_sessions es
		WHERE es.id = $1`
)

// Session is an ecephys session row.
type Session struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	SpecimenID        int64      `json:"specimen_id"`
	ProjectID         *int64     `json:"project_id,omitempty"`
	StorageDirectory  *string    `json:"storage_directory,omitempty"`
	DateOfAcquisition *time.Time `json:"date_of_acquisition,omitempty"`
}

// Client runs LIMS lookups.
type Client struct {
	db Querier
}

// New creates a Client.
func New(db Querier) *Client {
	return &Client{db: db}
}

// DonorID returns the donor id for a LabTracks mouse id.
func (c *Client) DonorID(ctx context.Context, labtracksID string) (int64, error) {
	var id int64
	if err := c.db.QueryRow(ctx, donorQuery, labtracksID).Scan(&id); err != nil {
		return 0, wrap("donor", labtracksID, err)
	}
	return id, nil
}

// SpecimenID returns the specimen id for a LabTracks mouse id.
func (c *Client) SpecimenID(ctx context.Context, labtracksID string) (int64, error) {
	var id int64
	if err := c.db.QueryRow(ctx, specimenQuery, labtracksID).Scan(&id); err != nil {
		return 0, wrap("specimen", labtracksID, err)
	}
	return id, nil
}

// EcephysSession returns the session with the given id.
func (c *Client) EcephysSession(ctx context.Context, id int64) (*Session, error) {
	var s Session
	err := c.db.QueryRow(ctx, sessionQuery, id).Scan(
		&s.ID, &s.Name, &s.SpecimenID, &s.ProjectID, &s.StorageDirectory, &s.DateOfAcquisition,
	)
	if err != nil {
		return nil, wrap("ecephys session", id, err)
	}
	return &s, nil
}

func wrap(what string, key any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, key, ErrNotFound)
	}
	return fmt.Errorf("query %s %v: %w", what, key, err)
}
