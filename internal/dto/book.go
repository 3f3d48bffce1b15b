package dto

// BookRequest carries the writable fields of a catalog book. Used for both
// create and full update. NewPublisherName registers a publisher inline when
// no publisher id is supplied.
type BookRequest struct {
	Title            string  `json:"title" validate:"required,max=255"`
	PublisherID      *int64  `json:"publisher_id" validate:"omitempty,gt=0"`
	NewPublisherName string  `json:"new_publisher_name" validate:"omitempty,max=100"`
	YearPublished    int     `json:"year_published" validate:"omitempty,gte=0"`
	Quantity         int     `json:"quantity" validate:"gte=0"`
	Status           bool    `json:"status"`
	Description      string  `json:"description"`
	Location         string  `json:"location" validate:"max=100"`
	DownloadLink     string  `json:"download_link" validate:"omitempty,url"`
	CategoryIDs      []int64 `json:"category_ids" validate:"dive,gt=0"`
	AuthorIDs        []int64 `json:"author_ids" validate:"dive,gt=0"`
}
