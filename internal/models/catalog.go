package models

// Author is a book author; linked to books via the book_authors join table.
type Author struct {
	AuthorID   int64  `db:"author_id" json:"author_id"`
	AuthorName string `db:"author_name" json:"author_name"`
}

// Publisher of catalogued books.
type Publisher struct {
	PublisherID   int64  `db:"publisher_id" json:"publisher_id"`
	PublisherName string `db:"publisher_name" json:"publisher_name"`
}

// Category groups books; linked via the book_categories join table.
type Category struct {
	CateID   int64  `db:"cate_id" json:"cate_id"`
	CateName string `db:"cate_name" json:"cate_name"`
}
