package database

type RepositoryOptions struct {
	// Deleted enables soft delete: documents whose deleted field holds a date
	// are hidden from every query.
	Deleted bool
}
