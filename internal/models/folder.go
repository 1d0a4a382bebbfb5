package models

import "time"

// FolderMapping binds a folder path to a stable id.
type FolderMapping struct {
	FolderMappingID string `json:"folderMappingId"`
	Path            string `json:"path"`
}

// FolderAssignment lists the folders a role may access for one admin.
type FolderAssignment struct {
	Admin     string          `json:"admin"`
	Role      string          `json:"role"`
	Folders   []FolderMapping `json:"folders"`
	UpdatedAt time.Time       `json:"updated_at"`
}
