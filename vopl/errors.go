package vopl

// Error types attached to the errors returned by this package.
const (
	ErrTypeInvalidContainer = "invalid-container"
	ErrTypeInvalidPack      = "invalid-pack"
	ErrTypeInvalidEdit      = "invalid-edit"
)
