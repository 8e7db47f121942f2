package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/GophContacts/internal/models"
)

var contactRowColumns = []string{"id", "name", "surname", "email", "birthday", "notes", "user_id"}

func setupContactMock(t *testing.T) (*PostgresContactRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresContactRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func birthday(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateContact(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	in := models.ContactInput{
		Name:     "Ann",
		Surname:  "Lee",
		Email:    "ann@example.com",
		Birthday: models.NewDate(1990, time.May, 4),
		Notes:    "met at conf",
	}
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO contacts (name, surname, email, birthday, notes, user_id)`)).
		WithArgs("Ann", "Lee", "ann@example.com", "1990-05-04", "met at conf", int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(int64(10), "Ann", "Lee", "ann@example.com", birthday(1990, time.May, 4), "met at conf", int64(1)))

	c, err := repo.Create(context.Background(), 1, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != 10 || c.OwnerID != 1 || c.Birthday.String() != "1990-05-04" {
		t.Errorf("unexpected contact: %+v", c)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListContacts(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs(int64(2), 50, 0).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(int64(1), "A", "", "", birthday(2000, time.January, 1), "", int64(2)).
			AddRow(int64(2), "B", "", "", birthday(2001, time.February, 2), "", int64(2)))

	contacts, err := repo.List(context.Background(), 2, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 2 || contacts[1].Name != "B" {
		t.Errorf("unexpected contacts: %+v", contacts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListContacts_EmptyIsNotNil(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE user_id = $1 ORDER BY id`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	contacts, err := repo.All(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contacts == nil || len(contacts) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", contacts)
	}
}

func TestGetContact_ScopedToOwner(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(int64(5), "Own", "", "", birthday(1980, time.March, 3), "", int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(5), int64(2)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	c, err := repo.Get(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Own" {
		t.Errorf("unexpected contact: %+v", c)
	}

	if _, err := repo.Get(context.Background(), 2, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUpdateContact(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	in := models.ContactInput{Name: "New", Birthday: models.NewDate(1999, time.December, 31)}
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE contacts SET name = $1, surname = $2, email = $3, birthday = $4, notes = $5 WHERE id = $6 AND user_id = $7`)).
		WithArgs("New", "", "", "1999-12-31", "", int64(4), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(int64(4), "New", "", "", birthday(1999, time.December, 31), "", int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE contacts`)).
		WithArgs("New", "", "", "1999-12-31", "", int64(4), int64(2)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	c, err := repo.Update(context.Background(), 1, 4, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "New" {
		t.Errorf("unexpected contact: %+v", c)
	}
	if _, err := repo.Update(context.Background(), 2, 4, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeleteContact(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM contacts WHERE id = $1 AND user_id = $2`)).
		WithArgs(int64(8), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM contacts`)).
		WithArgs(int64(8), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM contacts`)).
		WithArgs(int64(9), int64(1)).
		WillReturnError(errors.New("delete failed"))

	if err := repo.Delete(context.Background(), 1, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), 1, 8); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := repo.Delete(context.Background(), 1, 9); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSearchContacts_EscapesWildcards(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`(name ILIKE $2 OR surname ILIKE $2 OR email ILIKE $2)`)).
		WithArgs(int64(1), `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`ILIKE`)).
		WithArgs(int64(1), "%ann%").
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow(int64(1), "Ann", "", "", birthday(1990, time.May, 4), "", int64(1)))

	if _, err := repo.Search(context.Background(), 1, "50%_off"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := repo.Search(context.Background(), 1, "ann")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res) != 1 {
		t.Errorf("expected 1 result, got %d", len(res))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestListContacts_QueryError(t *testing.T) {
	repo, mock, cleanup := setupContactMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM contacts`)).
		WillReturnError(errors.New("boom"))

	if _, err := repo.List(context.Background(), 1, 10, 0); err == nil {
		t.Fatal("expected error, got nil")
	}
}
