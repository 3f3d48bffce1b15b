package dto

// AuthorRequest carries the writable fields of an author.
type AuthorRequest struct {
	AuthorName string `json:"author_name" validate:"required,max=255"`
}

// PublisherRequest carries the writable fields of a publisher.
type PublisherRequest struct {
	PublisherName string `json:"publisher_name" validate:"required,max=255"`
}

// CategoryRequest carries the writable fields of a category.
type CategoryRequest struct {
	CateName string `json:"cate_name" validate:"required,max=255"`
}
