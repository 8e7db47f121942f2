package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/repository"
)

// Paging and birthday window bounds.
const (
	DefaultPageSize     = 100
	MaxPageSize         = 500
	DefaultBirthdayDays = 7
	MaxBirthdayDays     = 366
)

// ContactRepository defines owner-scoped persistence for contacts.
// Operations on a contact of another owner behave as if it did not exist.
type ContactRepository interface {
	Create(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error)
	List(ctx context.Context, ownerID int64, limit, offset int) ([]models.Contact, error)
	All(ctx context.Context, ownerID int64) ([]models.Contact, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	Update(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id int64) error
	Search(ctx context.Context, ownerID int64, query string) ([]models.Contact, error)
}

// ContactService implements the address book of an authenticated user.
type ContactService struct {
	repo ContactRepository
	now  func() time.Time
}

// NewContactService constructs a ContactService using the provided repository.
func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo, now: time.Now}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrContactNotFound
	}
	return err
}

// Create adds a contact to the owner's address book.
func (s *ContactService) Create(ctx context.Context, owner *models.User, in models.ContactInput) (*models.Contact, error) {
	return s.repo.Create(ctx, owner.ID, in)
}

// List returns a page of the owner's contacts. Out-of-range paging values are clamped.
func (s *ContactService) List(ctx context.Context, owner *models.User, limit, offset int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, owner.ID, limit, offset)
}

// Get returns one of the owner's contacts or ErrContactNotFound.
func (s *ContactService) Get(ctx context.Context, owner *models.User, id int64) (*models.Contact, error) {
	c, err := s.repo.Get(ctx, owner.ID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// Update replaces one of the owner's contacts or returns ErrContactNotFound.
func (s *ContactService) Update(ctx context.Context, owner *models.User, id int64, in models.ContactInput) (*models.Contact, error) {
	c, err := s.repo.Update(ctx, owner.ID, id, in)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// Delete removes one of the owner's contacts or returns ErrContactNotFound.
func (s *ContactService) Delete(ctx context.Context, owner *models.User, id int64) error {
	return notFound(s.repo.Delete(ctx, owner.ID, id))
}

// Search finds the owner's contacts whose name, surname or email contains query.
func (s *ContactService) Search(ctx context.Context, owner *models.User, query string) ([]models.Contact, error) {
	return s.repo.Search(ctx, owner.ID, query)
}

// UpcomingBirthdays returns the owner's contacts whose next birthday falls
// within the next days days, today included, ordered by that date.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, owner *models.User, days int) ([]models.Contact, error) {
	if days <= 0 {
		days = DefaultBirthdayDays
	}
	if days > MaxBirthdayDays {
		days = MaxBirthdayDays
	}

	all, err := s.repo.All(ctx, owner.ID)
	if err != nil {
		return nil, err
	}

	today := models.DateOf(s.now())
	until := today.AddDays(days)

	type upcoming struct {
		contact models.Contact
		next    models.Date
	}
	matches := make([]upcoming, 0)
	for _, c := range all {
		if c.Birthday.IsZero() {
			continue
		}
		next := NextBirthday(c.Birthday, today)
		if !next.After(until) {
			matches = append(matches, upcoming{contact: c, next: next})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].next.Before(matches[j].next)
	})

	result := make([]models.Contact, 0, len(matches))
	for _, m := range matches {
		result = append(result, m.contact)
	}
	return result, nil
}

// NextBirthday returns the first anniversary of birthday on or after today.
// February 29 is celebrated on March 1 in non-leap years.
func NextBirthday(birthday, today models.Date) models.Date {
	next := models.NewDate(today.Year(), birthday.Month(), birthday.Day())
	if next.Before(today) {
		next = models.NewDate(today.Year()+1, birthday.Month(), birthday.Day())
	}
	return next
}
