package models

import "time"

// Book represents a catalogued title with its available copy count.
type Book struct {
	BookID        int64     `db:"book_id" json:"book_id"`
	Title         string    `db:"title" json:"title"`
	PublisherID   *int64    `db:"publisher_id" json:"publisher_id,omitempty"`
	YearPublished int       `db:"year_published" json:"year_published"`
	Quantity      int       `db:"quantity" json:"quantity"`
	Status        bool      `db:"status" json:"status"`
	ImagePath     string    `db:"image_path" json:"image_path"`
	Description   string    `db:"description" json:"description"`
	Location      string    `db:"location" json:"location"`
	DownloadLink  string    `db:"download_link" json:"download_link"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// BookDetail joins the publisher name and attached categories/authors.
type BookDetail struct {
	Book
	PublisherName *string  `db:"publisher_name" json:"publisher_name,omitempty"`
	Categories    []string `db:"-" json:"categories,omitempty"`
	Authors       []string `db:"-" json:"authors,omitempty"`
}

// BookFilter encapsulates allowed search parameters for listing books.
type BookFilter struct {
	Search     string
	CategoryID *int64
	AuthorID   *int64
	Available  *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
