package dto

// AssignFoldersRequest grants folder paths to a role.
type AssignFoldersRequest struct {
	Role  string   `json:"role" validate:"required"`
	Paths []string `json:"paths" validate:"required,min=1"`
}
