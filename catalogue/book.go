package catalogue

import "time"

// Book represents one catalogue title together with its copy counters.
// AvailableCopies is a maintained counter: it must always equal TotalCopies
// minus the number of active borrow records referencing this book. Only the
// lending operations in the storage engine may change it after creation.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn"`
	Category        *string   `json:"category"`
	YearPublished   *int      `json:"year_published"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasAvailableCopy reports whether at least one copy can still be borrowed.
func (b Book) HasAvailableCopy() bool {
	return b.AvailableCopies > 0
}

// CountersAreConsistent reports whether the copy counters satisfy the
// invariant 0 <= available_copies <= total_copies.
func (b Book) CountersAreConsistent() bool {
	return b.AvailableCopies >= 0 && b.AvailableCopies <= b.TotalCopies
}

// NewBookInput carries the caller-supplied attributes for creating a book.
// AvailableCopies is not part of the input: a new book starts with all
// copies available.
type NewBookInput struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	ISBN          *string `json:"isbn"`
	Category      *string `json:"category"`
	YearPublished *int    `json:"year_published"`
	TotalCopies   int     `json:"total_copies"`
}

// Validate checks the required attributes and counter bounds.
func (in NewBookInput) Validate() error {
	if in.Title == "" || in.Author == "" {
		return ErrMissingTitleOrAuthor
	}

	if in.TotalCopies < 0 {
		return ErrNegativeCopyCount
	}

	return nil
}
