package config

const (
	// Database errors
	ErrInitializeDatabaseFmt = "Failed to initialize database: %v"
	ErrInitializeStorageFmt  = "Failed to initialize storage: %v"

	// API errors
	ErrMalformedBody       = "Malformed request body"
	ErrPostNotFound        = "Post not found"
	ErrInternalServerError = "Internal server error"

	// Config errors
	ErrLoadConfigFmt = "Failed to load config: %v"
)
