package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/GophContacts/internal/models"
)

const contactColumns = `id, name, surname, email, birthday, notes, user_id`

// PostgresContactRepository stores contacts in PostgreSQL.
// Every statement is restricted to the rows of a single owner.
type PostgresContactRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresContactRepository creates a new PostgresContactRepository using the provided *sql.DB.
func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{DB: db}
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Email, &c.Birthday, &c.Notes, &c.OwnerID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresContactRepository) queryContacts(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return contacts, nil
}

// Create inserts a contact owned by ownerID.
func (r *PostgresContactRepository) Create(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO contacts (name, surname, email, birthday, notes, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns,
		in.Name, in.Surname, in.Email, in.Birthday, in.Notes, ownerID,
	)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// List returns a page of the owner's contacts ordered by id.
func (r *PostgresContactRepository) List(ctx context.Context, ownerID int64, limit, offset int) ([]models.Contact, error) {
	contacts, err := r.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// All returns every contact of the owner.
func (r *PostgresContactRepository) All(ctx context.Context, ownerID int64) ([]models.Contact, error) {
	contacts, err := r.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE user_id = $1 ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("all contacts: %w", err)
	}
	return contacts, nil
}

// Get fetches one contact. A contact owned by someone else is reported as ErrNotFound.
func (r *PostgresContactRepository) Get(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2
	`, id, ownerID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Update replaces the writable fields of a contact and returns the stored row.
func (r *PostgresContactRepository) Update(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE contacts
		   SET name = $1, surname = $2, email = $3, birthday = $4, notes = $5
		 WHERE id = $6 AND user_id = $7
		RETURNING `+contactColumns,
		in.Name, in.Surname, in.Email, in.Birthday, in.Notes, id, ownerID,
	)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Delete removes a contact of the owner.
func (r *PostgresContactRepository) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return expectOneRow(res)
}

// Search matches query case-insensitively as a substring of name, surname or email.
func (r *PostgresContactRepository) Search(ctx context.Context, ownerID int64, query string) ([]models.Contact, error) {
	pattern := "%" + escapeLike(query) + "%"
	contacts, err := r.queryContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE user_id = $1
		  AND (name ILIKE $2 OR surname ILIKE $2 OR email ILIKE $2)
		ORDER BY id
	`, ownerID, pattern)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return contacts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
